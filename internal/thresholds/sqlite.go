package thresholds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonathan/monitoring-deck/internal/types"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps threshold records in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init tables: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS thresholds (
		metric_type TEXT PRIMARY KEY,
		green REAL NOT NULL,
		amber_lower REAL NOT NULL,
		amber_upper REAL NOT NULL,
		red REAL NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// Load returns the stored config for metricType, or nil when there is none.
func (s *SQLiteStore) Load(ctx context.Context, metricType string) (*types.ThresholdConfig, error) {
	if err := ValidateMetricType(metricType); err != nil {
		return nil, err
	}

	var cfg types.ThresholdConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT green, amber_lower, amber_upper, red FROM thresholds WHERE metric_type = ?`,
		metricType,
	).Scan(&cfg.Green, &cfg.AmberLower, &cfg.AmberUpper, &cfg.Red)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load thresholds for %s: %w", metricType, err)
	}
	return &cfg, nil
}

// Save upserts the config for metricType.
func (s *SQLiteStore) Save(ctx context.Context, metricType string, cfg types.ThresholdConfig) error {
	if err := ValidateMetricType(metricType); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO thresholds (metric_type, green, amber_lower, amber_upper, red, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(metric_type) DO UPDATE SET
			green = excluded.green,
			amber_lower = excluded.amber_lower,
			amber_upper = excluded.amber_upper,
			red = excluded.red,
			updated_at = CURRENT_TIMESTAMP`,
		metricType, cfg.Green, cfg.AmberLower, cfg.AmberUpper, cfg.Red,
	)
	if err != nil {
		return fmt.Errorf("failed to save thresholds for %s: %w", metricType, err)
	}
	return nil
}
