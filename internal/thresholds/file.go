package thresholds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonathan/monitoring-deck/internal/schemas"
	"github.com/jonathan/monitoring-deck/internal/types"
	schemafiles "github.com/jonathan/monitoring-deck/schemas"
)

// FileStore keeps one JSON record per metric type in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(metricType string) (string, error) {
	if err := ValidateMetricType(metricType); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, metricType+".json"), nil
}

// Load reads the record for metricType. A missing record is not an error.
func (s *FileStore) Load(ctx context.Context, metricType string) (*types.ThresholdConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(metricType)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read thresholds for %s: %w", metricType, err)
	}

	if err := schemas.Validate(schemafiles.Thresholds, data); err != nil {
		return nil, fmt.Errorf("threshold record for %s is invalid: %w", metricType, err)
	}

	var cfg types.ThresholdConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse thresholds for %s: %w", metricType, err)
	}
	return &cfg, nil
}

// Save writes the record through a temp file and rename, so readers see
// either the old record or the new one.
func (s *FileStore) Save(ctx context.Context, metricType string, cfg types.ThresholdConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(metricType)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal thresholds for %s: %w", metricType, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create thresholds directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+metricType+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write thresholds for %s: %w", metricType, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync thresholds for %s: %w", metricType, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace thresholds for %s: %w", metricType, err)
	}
	return nil
}
