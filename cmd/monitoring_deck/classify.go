package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/monitoring-deck/internal/classify"
	"github.com/jonathan/monitoring-deck/internal/observability"
	"github.com/jonathan/monitoring-deck/internal/schemas"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
	"github.com/jonathan/monitoring-deck/internal/types"
	schemafiles "github.com/jonathan/monitoring-deck/schemas"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify one metric value",
	Long:  "Prints the band (GREEN, AMBER, RED or UNCLASSIFIED) of a value against the metric type's thresholds or an explicit thresholds file.",
	RunE:  runClassify,
}

var (
	classifyMetric     string
	classifyValue      float64
	classifyThresholds string
)

func init() {
	classifyCmd.Flags().StringVarP(&classifyMetric, "metric", "m", "", "Metric type whose thresholds to use")
	classifyCmd.Flags().Float64Var(&classifyValue, "value", 0, "Value to classify (required)")
	classifyCmd.Flags().StringVarP(&classifyThresholds, "thresholds", "t", "", "Path to a thresholds JSON file (overrides --metric)")
	_ = classifyCmd.MarkFlagRequired("value")

	rootCmd.AddCommand(classifyCmd)
}

// readThresholdsFile loads a single thresholds record from a JSON file.
func readThresholdsFile(path string) (*types.ThresholdConfig, error) {
	if err := schemas.ValidateFile(schemafiles.Thresholds, path); err != nil {
		return nil, fmt.Errorf("invalid thresholds file %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read thresholds file: %w", err)
	}
	var cfg types.ThresholdConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse thresholds file: %w", err)
	}
	return &cfg, nil
}

func runClassify(cmd *cobra.Command, _ []string) error {
	if classifyMetric == "" && classifyThresholds == "" {
		return fmt.Errorf("one of --metric or --thresholds is required")
	}

	var (
		cfg    *types.ThresholdConfig
		source string
		err    error
	)
	if classifyThresholds != "" {
		cfg, err = readThresholdsFile(classifyThresholds)
		if err != nil {
			return err
		}
		source = classifyThresholds
	} else {
		if err := thresholds.ValidateMetricType(classifyMetric); err != nil {
			return err
		}
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		store, closeStore, err := openThresholdStore(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer closeStore()

		resolved, src, err := thresholds.Resolve(cmd.Context(), store, classifyMetric)
		if err != nil && !errors.Is(err, thresholds.ErrConfigMissing) {
			return err
		}
		cfg, source = resolved, string(src)
	}

	band := classify.Classify(classifyValue, cfg)
	if verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintClassification(classifyMetric, classifyValue, cfg, source, band)
		return nil
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), band)
	return nil
}
