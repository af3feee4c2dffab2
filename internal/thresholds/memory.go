package thresholds

import (
	"context"
	"sync"

	"github.com/jonathan/monitoring-deck/internal/types"
)

// MemoryStore is a process-local Store, used by tests and the serve command
// when no persistent backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.ThresholdConfig
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]types.ThresholdConfig)}
}

// Load returns a copy of the stored config, or nil.
func (s *MemoryStore) Load(_ context.Context, metricType string) (*types.ThresholdConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.records[metricType]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

// Save replaces the config for metricType.
func (s *MemoryStore) Save(_ context.Context, metricType string, cfg types.ThresholdConfig) error {
	if err := ValidateMetricType(metricType); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[metricType] = cfg
	return nil
}
