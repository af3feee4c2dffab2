// Package types provides type definitions for structured data used throughout the monitoring deck system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ThresholdConfig holds the three-band cut points for one metric type.
// The intended ordering is Red <= AmberLower < AmberUpper <= Green, but
// nothing downstream relies on it.
type ThresholdConfig struct {
	Green      float64 `json:"green" yaml:"green"`
	AmberLower float64 `json:"amber_lower" yaml:"amber_lower"`
	AmberUpper float64 `json:"amber_upper" yaml:"amber_upper"`
	Red        float64 `json:"red" yaml:"red"`
}

// MisconfiguredError reports a threshold config whose cut points are out of order.
type MisconfiguredError struct {
	Violations []string
}

func (e *MisconfiguredError) Error() string {
	return fmt.Sprintf("misconfigured thresholds: %s", strings.Join(e.Violations, "; "))
}

// Validate checks the intended ordering of the cut points. A config that
// fails validation can still be saved and classified against.
func (c *ThresholdConfig) Validate() error {
	var violations []string

	for name, v := range map[string]float64{
		"green":       c.Green,
		"amber_lower": c.AmberLower,
		"amber_upper": c.AmberUpper,
		"red":         c.Red,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			violations = append(violations, fmt.Sprintf("%s is not a finite number", name))
		}
	}
	if len(violations) > 0 {
		// map iteration order is random
		sort.Strings(violations)
		return &MisconfiguredError{Violations: violations}
	}

	if c.Red > c.AmberLower {
		violations = append(violations, fmt.Sprintf("red (%g) is above amber_lower (%g)", c.Red, c.AmberLower))
	}
	if c.AmberLower >= c.AmberUpper {
		violations = append(violations, fmt.Sprintf("amber_lower (%g) is not below amber_upper (%g)", c.AmberLower, c.AmberUpper))
	}
	if c.AmberUpper > c.Green {
		violations = append(violations, fmt.Sprintf("amber_upper (%g) is above green (%g)", c.AmberUpper, c.Green))
	}

	if len(violations) > 0 {
		return &MisconfiguredError{Violations: violations}
	}
	return nil
}
