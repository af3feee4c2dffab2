package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// ThresholdStore keeps threshold records in the threshold_configs table.
// It satisfies thresholds.Store.
type ThresholdStore struct {
	db *DB
}

// Thresholds returns a threshold store backed by db.
func (db *DB) Thresholds() *ThresholdStore {
	return &ThresholdStore{db: db}
}

var _ thresholds.Store = (*ThresholdStore)(nil)

// Load returns nil, nil when no record exists for metricType.
func (s *ThresholdStore) Load(ctx context.Context, metricType string) (*types.ThresholdConfig, error) {
	if err := thresholds.ValidateMetricType(metricType); err != nil {
		return nil, err
	}
	var cfg types.ThresholdConfig
	err := s.db.pool.QueryRow(ctx,
		`SELECT green, amber_lower, amber_upper, red FROM threshold_configs WHERE metric_type = $1`,
		metricType,
	).Scan(&cfg.Green, &cfg.AmberLower, &cfg.AmberUpper, &cfg.Red)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load thresholds for %s: %w", metricType, err)
	}
	return &cfg, nil
}

// Save replaces the record for metricType.
func (s *ThresholdStore) Save(ctx context.Context, metricType string, cfg types.ThresholdConfig) error {
	if err := thresholds.ValidateMetricType(metricType); err != nil {
		return err
	}
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO threshold_configs (metric_type, green, amber_lower, amber_upper, red)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (metric_type) DO UPDATE
		 SET green = $2, amber_lower = $3, amber_upper = $4, red = $5, updated_at = NOW()`,
		metricType, cfg.Green, cfg.AmberLower, cfg.AmberUpper, cfg.Red,
	)
	if err != nil {
		return fmt.Errorf("failed to save thresholds for %s: %w", metricType, err)
	}
	return nil
}
