package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/thresholds"
	"github.com/jonathan/monitoring-deck/internal/types"
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Read and save per-metric threshold configs",
}

var thresholdsGetCmd = &cobra.Command{
	Use:   "get <metric-type>",
	Short: "Print the threshold config of a metric type",
	Long:  "Prints the saved config of a metric type as JSON, or its documented default when nothing has been saved.",
	Args:  cobra.ExactArgs(1),
	RunE:  runThresholdsGet,
}

var thresholdsSetCmd = &cobra.Command{
	Use:   "set <metric-type>",
	Short: "Save the threshold config of a metric type",
	Long:  "Saves the four cut points of a metric type, replacing any earlier config. Misordered cut points are saved as given and reported.",
	Args:  cobra.ExactArgs(1),
	RunE:  runThresholdsSet,
}

var (
	setGreen      float64
	setAmberLower float64
	setAmberUpper float64
	setRed        float64
)

func init() {
	thresholdsSetCmd.Flags().Float64Var(&setGreen, "green", 0, "Values above this are GREEN (required)")
	thresholdsSetCmd.Flags().Float64Var(&setAmberLower, "amber-lower", 0, "Open lower bound of AMBER (required)")
	thresholdsSetCmd.Flags().Float64Var(&setAmberUpper, "amber-upper", 0, "Closed upper bound of AMBER (required)")
	thresholdsSetCmd.Flags().Float64Var(&setRed, "red", 0, "Values at or below this are RED (required)")
	for _, f := range []string{"green", "amber-lower", "amber-upper", "red"} {
		_ = thresholdsSetCmd.MarkFlagRequired(f)
	}

	thresholdsCmd.AddCommand(thresholdsGetCmd, thresholdsSetCmd)
	rootCmd.AddCommand(thresholdsCmd)
}

type thresholdsOutput struct {
	MetricType string                 `json:"metric_type"`
	Source     thresholds.Source      `json:"source"`
	Thresholds *types.ThresholdConfig `json:"thresholds"`
}

func runThresholdsGet(cmd *cobra.Command, args []string) error {
	metric := args[0]
	if err := thresholds.ValidateMetricType(metric); err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := openThresholdStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	resolved, source, err := thresholds.Resolve(cmd.Context(), store, metric)
	if err != nil {
		if errors.Is(err, thresholds.ErrConfigMissing) {
			return fmt.Errorf("%w; save one with 'thresholds set %s'", err, metric)
		}
		return err
	}

	out, err := json.MarshalIndent(thresholdsOutput{MetricType: metric, Source: source, Thresholds: resolved}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal thresholds: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runThresholdsSet(cmd *cobra.Command, args []string) error {
	metric := args[0]
	if err := thresholds.ValidateMetricType(metric); err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := openThresholdStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	record := types.ThresholdConfig{Green: setGreen, AmberLower: setAmberLower, AmberUpper: setAmberUpper, Red: setRed}
	if err := store.Save(cmd.Context(), metric, record); err != nil {
		return fmt.Errorf("failed to save thresholds: %w", err)
	}

	out := cmd.OutOrStdout()
	if verr := record.Validate(); verr != nil {
		logger.Warn("saved misordered thresholds", zap.String("metric_type", metric), zap.Error(verr))
		_, _ = fmt.Fprintf(out, "Warning: %v\n", verr)
	}
	_, _ = fmt.Fprintf(out, "Saved thresholds for %s\n", metric)
	return nil
}
