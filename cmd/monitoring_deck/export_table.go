package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/tabular"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
	"github.com/jonathan/monitoring-deck/internal/types"
)

var exportTableCmd = &cobra.Command{
	Use:   "export-table",
	Short: "Export a metric table as a spreadsheet",
	Long:  "Writes the table as a single-sheet .xlsx with native numeric cells. With --metric and --target-column the classified cell is filled with its band color.",
	RunE:  runExportTable,
}

var (
	tableInput        string
	tableOutput       string
	tableMetric       string
	tableTargetColumn string
	tableTargetRow    int
)

func init() {
	exportTableCmd.Flags().StringVar(&tableInput, "table", "", "Metric table (.xlsx, .csv or .json) (required)")
	exportTableCmd.Flags().StringVarP(&tableOutput, "out", "o", "", "Output .xlsx path (required)")
	exportTableCmd.Flags().StringVarP(&tableMetric, "metric", "m", "", "Metric type used for highlighting")
	exportTableCmd.Flags().StringVar(&tableTargetColumn, "target-column", "", "Column holding the classified value")
	exportTableCmd.Flags().IntVar(&tableTargetRow, "target-row", -1, "Row of the classified value; negative counts from the end")
	_ = exportTableCmd.MarkFlagRequired("table")
	_ = exportTableCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(exportTableCmd)
}

// tableThresholds resolves the thresholds of metric. A metric type with no
// config yields nil, which classifies every value as UNCLASSIFIED.
func tableThresholds(ctx context.Context, cmd *cobra.Command, metric string) (*types.ThresholdConfig, error) {
	if metric == "" {
		return nil, nil
	}
	if err := thresholds.ValidateMetricType(metric); err != nil {
		return nil, err
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openThresholdStore(ctx, settings)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	cfg, _, err := thresholds.Resolve(ctx, store, metric)
	if errors.Is(err, thresholds.ErrConfigMissing) {
		logger.Warn("no thresholds, table is not highlighted", zap.String("metric_type", metric))
		return nil, nil
	}
	return cfg, err
}

func runExportTable(cmd *cobra.Command, _ []string) error {
	if tableMetric != "" && tableTargetColumn == "" {
		return fmt.Errorf("--target-column is required with --metric")
	}
	table, err := tabular.LoadTable(tableInput)
	if err != nil {
		return err
	}
	cfg, err := tableThresholds(cmd.Context(), cmd, tableMetric)
	if err != nil {
		return err
	}

	var hl *tabular.Highlight
	if cfg != nil {
		hl = &tabular.Highlight{
			Target:     types.ClassificationTarget{Column: tableTargetColumn, Row: tableTargetRow},
			Thresholds: cfg,
		}
	}
	data, err := tabular.XLSX(table, hl)
	if err != nil {
		return err
	}
	if err := writeOutput(tableOutput, data); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d rows)\n", tableOutput, len(table.Rows))
	return nil
}
