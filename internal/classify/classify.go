// Package classify maps metric values onto threshold bands.
package classify

import "github.com/jonathan/monitoring-deck/internal/types"

// Classify returns the band for value under cfg. Rules are checked in order:
// no config, above green, inside (amberLower, amberUpper], at or below red.
// Anything left over, NaN included, is unclassified.
func Classify(value float64, cfg *types.ThresholdConfig) types.Band {
	if cfg == nil {
		return types.BandUnclassified
	}
	if value > cfg.Green {
		return types.BandGreen
	}
	if cfg.AmberLower < value && value <= cfg.AmberUpper {
		return types.BandAmber
	}
	if value <= cfg.Red {
		return types.BandRed
	}
	return types.BandUnclassified
}

// Target classifies the cell named by target. The second return value is
// false when the cell does not exist or is not numeric, in which case the
// band is unclassified.
func Target(table *types.Table, target types.ClassificationTarget, cfg *types.ThresholdConfig) (types.Band, bool) {
	row, col, ok := target.Locate(table)
	if !ok {
		return types.BandUnclassified, false
	}
	cell, _ := table.Cell(row, col)
	v, ok := cell.Numeric()
	if !ok {
		return types.BandUnclassified, false
	}
	return Classify(v, cfg), true
}
