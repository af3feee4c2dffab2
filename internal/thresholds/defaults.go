package thresholds

import (
	"context"
	"fmt"

	"github.com/jonathan/monitoring-deck/internal/types"
)

// Source says where a resolved config came from.
type Source string

const (
	SourcePersisted Source = "persisted"
	SourceDefault   Source = "default"
)

// defaults holds the documented cut points used when nothing is saved.
var defaults = map[string]types.ThresholdConfig{
	"gini": {Green: 0.40, AmberLower: 0.30, AmberUpper: 0.40, Red: 0.30},
}

// Default returns the documented default config for metricType, if any.
func Default(metricType string) (types.ThresholdConfig, bool) {
	cfg, ok := defaults[metricType]
	return cfg, ok
}

// Resolve loads the saved config for metricType and falls back to the
// documented default. It wraps ErrConfigMissing when neither exists.
func Resolve(ctx context.Context, store Store, metricType string) (*types.ThresholdConfig, Source, error) {
	if store != nil {
		cfg, err := store.Load(ctx, metricType)
		if err != nil {
			return nil, "", err
		}
		if cfg != nil {
			return cfg, SourcePersisted, nil
		}
	}

	if cfg, ok := Default(metricType); ok {
		return &cfg, SourceDefault, nil
	}
	return nil, "", fmt.Errorf("%w for metric type %q", ErrConfigMissing, metricType)
}
