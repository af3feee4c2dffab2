package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/config"
	"github.com/jonathan/monitoring-deck/internal/observability"
	"github.com/jonathan/monitoring-deck/internal/pipeline"
	"github.com/jonathan/monitoring-deck/internal/pptx"
	"github.com/jonathan/monitoring-deck/internal/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [flags] deck.pptx...",
	Short: "Merge topic decks into one report",
	Long: `Copies every slide of every deck, in argument order, into one deck and
reapplies the slide skeleton at the positions named by the restyle table.
Decks that cannot be read are skipped and reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

var (
	mergeOutput             string
	mergeRestyle            string
	mergeRestyleMode        string
	mergePreserveBackground bool
)

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "out", "o", "", "Output .pptx path (required)")
	mergeCmd.Flags().StringVar(&mergeRestyle, "restyle", "", "Restyle table file (YAML or JSON)")
	mergeCmd.Flags().StringVar(&mergeRestyleMode, "restyle-mode", config.RestyleModeDefault, "Restyle table when no file is given: default or topic")
	mergeCmd.Flags().BoolVar(&mergePreserveBackground, "preserve-background", false, "Keep source slide backgrounds")
	_ = mergeCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	switch mergeRestyleMode {
	case config.RestyleModeDefault, config.RestyleModeTopic:
	default:
		return fmt.Errorf("unknown --restyle-mode %q", mergeRestyleMode)
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	style, err := resolveStyle(cfg)
	if err != nil {
		return err
	}
	table, err := restyleTable(mergeRestyle)
	if err != nil {
		return err
	}

	// Each file is published as its own topic so the collector hands the
	// decks to the merger in argument order.
	collector := artifact.NewCollector()
	order := make([]types.TopicID, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read deck: %w", err)
		}
		topic := types.TopicID(path)
		if _, dup := collector.Get(topic); dup {
			return fmt.Errorf("deck %s listed twice", path)
		}
		slides := 0
		if d, err := pptx.Decode(data); err == nil {
			slides = d.Len()
		}
		collector.Publish(artifact.Record{Artifact: types.TopicArtifact{Topic: topic}, Deck: data, Slides: slides})
		order = append(order, topic)
	}

	engine := &pipeline.Engine{Style: style, Logger: logger}
	res, err := engine.Merge(cmd.Context(), collector, order, pipeline.MergeOptions{
		Restyle:            table,
		RestyleMode:        mergeRestyleMode,
		PreserveBackground: mergePreserveBackground,
	})
	if err != nil {
		return err
	}
	if err := writeOutput(mergeOutput, res.Deck); err != nil {
		return err
	}

	for _, s := range res.Report.Skipped {
		logger.Warn("deck skipped", zap.String("deck", s.Name), zap.Error(s.Err))
	}
	out := cmd.OutOrStdout()
	if verbose {
		observability.NewPrinter(out).PrintMergeReport(res.Report, res.Missing)
	}
	_, _ = fmt.Fprintf(out, "Wrote %s (%d slides from %d decks)\n", mergeOutput, res.Report.Slides, len(args)-len(res.Report.Skipped))
	return nil
}
