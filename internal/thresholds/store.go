// Package thresholds persists per-metric threshold configurations.
package thresholds

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jonathan/monitoring-deck/internal/types"
)

// Store loads and saves threshold configs keyed by metric type.
//
// Load returns (nil, nil) when nothing has been saved for the metric type.
// Save replaces any earlier record for the same metric type; the last write wins.
type Store interface {
	Load(ctx context.Context, metricType string) (*types.ThresholdConfig, error)
	Save(ctx context.Context, metricType string, cfg types.ThresholdConfig) error
}

// ErrConfigMissing is returned by Resolve when a metric type has neither a
// saved record nor a documented default.
var ErrConfigMissing = errors.New("no threshold config")

var metricTypePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateMetricType rejects metric type keys that cannot be used as a
// record key on every backend.
func ValidateMetricType(metricType string) error {
	if !metricTypePattern.MatchString(metricType) {
		return fmt.Errorf("invalid metric type %q", metricType)
	}
	return nil
}
