package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/config"
	"github.com/jonathan/monitoring-deck/internal/observability"
	"github.com/jonathan/monitoring-deck/internal/pipeline"
	"github.com/jonathan/monitoring-deck/internal/tabular"
)

var buildTopicCmd = &cobra.Command{
	Use:   "build-topic",
	Short: "Build the three-slide deck of one topic",
	Long:  "Builds a title slide, a data slide with the highlighted metric table and a chart slide for one monitoring topic.",
	RunE:  runBuildTopic,
}

var (
	topicID           string
	topicTitle        string
	topicTableTitle   string
	topicChartTitle   string
	topicTable        string
	topicChart        string
	topicMetric       string
	topicTargetColumn string
	topicTargetRow    int
	topicDataComment  string
	topicGraphComment string
	topicOutput       string
	topicXLSX         string
)

func init() {
	f := buildTopicCmd.Flags()
	f.StringVar(&topicID, "topic", "", "Topic id, e.g. gini (required)")
	f.StringVar(&topicTitle, "title", "", "Title slide text")
	f.StringVar(&topicTableTitle, "table-title", "", "Data slide title (default: \"<Metric> calculation\")")
	f.StringVar(&topicChartTitle, "chart-title", "", "Chart slide title (default: Graph)")
	f.StringVar(&topicTable, "table", "", "Metric table (.xlsx, .csv or .json) (required)")
	f.StringVar(&topicChart, "chart", "", "Chart image, PNG/JPEG/GIF (required)")
	f.StringVarP(&topicMetric, "metric", "m", "", "Metric type used for classification")
	f.StringVar(&topicTargetColumn, "target-column", "", "Column holding the classified value (required with --metric)")
	f.IntVar(&topicTargetRow, "target-row", -1, "Row of the classified value; negative counts from the end")
	f.StringVar(&topicDataComment, "data-comment", "", "Comment shown under the table")
	f.StringVar(&topicGraphComment, "graph-comment", "", "Comment shown under the chart")
	f.StringVarP(&topicOutput, "out", "o", "", "Output .pptx path (required)")
	f.StringVar(&topicXLSX, "xlsx", "", "Also export the highlighted table to this .xlsx path")
	for _, name := range []string{"topic", "table", "chart", "out"} {
		_ = buildTopicCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(buildTopicCmd)
}

func runBuildTopic(cmd *cobra.Command, _ []string) error {
	spec := config.TopicSpec{
		ID:           topicID,
		Title:        topicTitle,
		TableTitle:   topicTableTitle,
		ChartTitle:   topicChartTitle,
		MetricType:   topicMetric,
		Table:        topicTable,
		Chart:        topicChart,
		TargetColumn: topicTargetColumn,
		DataComment:  topicDataComment,
		GraphComment: topicGraphComment,
	}
	if cmd.Flags().Changed("target-row") {
		row := topicTargetRow
		spec.TargetRow = &row
	}
	if spec.MetricType != "" && spec.TargetColumn == "" {
		return fmt.Errorf("--target-column is required with --metric")
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
	style, err := resolveStyle(cfg)
	if err != nil {
		return err
	}

	topic, err := pipeline.LoadTopic(spec)
	if err != nil {
		return err
	}

	engine := &pipeline.Engine{
		Thresholds: store,
		Style:      style,
		Logger:     logger,
		OnProgress: func(ev pipeline.ProgressEvent) {
			logger.Debug(ev.Message, zap.String("step", ev.Step), zap.String("topic", string(ev.Topic)))
		},
	}
	rec, err := engine.RunTopic(cmd.Context(), topic)
	if err != nil {
		return err
	}

	if err := writeOutput(topicOutput, rec.Deck); err != nil {
		return err
	}
	if topicXLSX != "" {
		a := rec.Artifact
		data, err := tabular.XLSX(&a.Table, &tabular.Highlight{Target: a.Target, Thresholds: a.Thresholds})
		if err != nil {
			return err
		}
		if err := writeOutput(topicXLSX, data); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if verbose {
		observability.NewPrinter(out).PrintTopicDeck(observability.TopicSummary{
			Topic:      rec.Artifact.Topic,
			Title:      rec.Artifact.Title,
			Slides:     rec.Slides,
			Band:       rec.Artifact.Band,
			Classified: rec.Classified,
		})
	}
	_, _ = fmt.Fprintf(out, "Wrote %s (%d slides, %s)\n", topicOutput, rec.Slides, rec.Artifact.Band)
	return nil
}
