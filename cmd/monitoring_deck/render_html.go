package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/monitoring-deck/internal/htmlview"
	"github.com/jonathan/monitoring-deck/internal/tabular"
	"github.com/jonathan/monitoring-deck/internal/types"
)

var renderHTMLCmd = &cobra.Command{
	Use:   "render-html",
	Short: "Render a metric table as highlighted HTML",
	RunE:  runRenderHTML,
}

var (
	htmlTable        string
	htmlOutput       string
	htmlMetric       string
	htmlTargetColumn string
	htmlTargetRow    int
	htmlWholeColumn  bool
)

func init() {
	f := renderHTMLCmd.Flags()
	f.StringVar(&htmlTable, "table", "", "Metric table (.xlsx, .csv or .json) (required)")
	f.StringVarP(&htmlOutput, "out", "o", "", "Output .html path (default: stdout)")
	f.StringVarP(&htmlMetric, "metric", "m", "", "Metric type used for highlighting")
	f.StringVar(&htmlTargetColumn, "target-column", "", "Column holding the classified value")
	f.IntVar(&htmlTargetRow, "target-row", -1, "Row of the classified value; negative counts from the end")
	f.BoolVar(&htmlWholeColumn, "whole-column", false, "Highlight every value of the target column")
	_ = renderHTMLCmd.MarkFlagRequired("table")

	rootCmd.AddCommand(renderHTMLCmd)
}

func runRenderHTML(cmd *cobra.Command, _ []string) error {
	table, err := tabular.LoadTable(htmlTable)
	if err != nil {
		return err
	}
	cfg, err := tableThresholds(cmd.Context(), cmd, htmlMetric)
	if err != nil {
		return err
	}

	var opts *htmlview.Options
	if htmlTargetColumn != "" {
		opts = &htmlview.Options{
			Target:      types.ClassificationTarget{Column: htmlTargetColumn, Row: htmlTargetRow},
			Thresholds:  cfg,
			WholeColumn: htmlWholeColumn,
		}
	}

	markup, err := htmlview.String(table, opts)
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	if htmlOutput == "" {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), markup)
		return nil
	}
	return writeOutput(htmlOutput, []byte(markup))
}
