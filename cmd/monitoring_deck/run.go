package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/observability"
	"github.com/jonathan/monitoring-deck/internal/pipeline"
	"github.com/jonathan/monitoring-deck/internal/tabular"
	"github.com/jonathan/monitoring-deck/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build every configured topic and merge the report",
	Long: `Runs each topic of the config file in order, then merges the topic decks
into one report. A topic whose inputs cannot be read or whose chart is
malformed is reported and left out; the report is still written.`,
	RunE: runRun,
}

var (
	runOutput    string
	runExportDir string
)

func init() {
	runCmd.Flags().StringVarP(&runOutput, "out", "o", "", "Merged deck path (overrides config)")
	runCmd.Flags().StringVar(&runExportDir, "export-dir", "", "Write per-topic decks and spreadsheets here (overrides config)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if runOutput != "" {
		cfg.Output = runOutput
	}
	if runExportDir != "" {
		cfg.ExportDir = runExportDir
	}
	if len(cfg.Topics) == 0 {
		return fmt.Errorf("config lists no topics")
	}

	ctx := cmd.Context()
	store, closeStore, err := openThresholdStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	style, err := resolveStyle(cfg)
	if err != nil {
		return err
	}
	table, err := restyleTable(cfg.Restyle)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)
	engine := &pipeline.Engine{
		Thresholds: store,
		Style:      style,
		Logger:     logger,
		SessionID:  uuid.New(),
		OnProgress: func(ev pipeline.ProgressEvent) {
			logger.Debug(ev.Message, zap.String("step", ev.Step), zap.String("topic", string(ev.Topic)))
		},
	}

	if cfg.DatabaseURL != "" {
		database, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if _, err := database.CreateSession(ctx, engine.SessionID); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		engine.Recorder = database
	}
	if engine.Store, err = s3Store(cfg); err != nil {
		return err
	}

	var (
		topics  []pipeline.Topic
		skipped []types.TopicID
	)
	for _, spec := range cfg.Topics {
		topic, err := pipeline.LoadTopic(spec)
		if err != nil {
			logger.Error("topic inputs unreadable", zap.String("topic", spec.ID), zap.Error(err))
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Topic %s skipped: %v\n", spec.ID, err)
			skipped = append(skipped, types.TopicID(spec.ID))
			continue
		}
		topics = append(topics, topic)
	}

	collector := artifact.NewCollector()
	res, err := engine.Run(ctx, collector, topics, pipeline.MergeOptions{Restyle: table, RestyleMode: cfg.RestyleMode})
	if res != nil {
		for _, f := range res.Failed {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Topic %s failed: %v\n", f.Topic, f.Err)
		}
	}
	if err != nil {
		var notReady *artifact.NotReadyError
		if errors.As(err, &notReady) {
			return fmt.Errorf("%w: no topic could be built", artifact.ErrNotReady)
		}
		return err
	}

	if cfg.ExportDir != "" {
		if err := exportTopics(cfg.ExportDir, res.Records); err != nil {
			return err
		}
	}
	if err := writeOutput(cfg.Output, res.Merge.Deck); err != nil {
		return err
	}

	if cfg.Verbose {
		for _, rec := range res.Records {
			printer.PrintTopicDeck(observability.TopicSummary{
				Topic:      rec.Artifact.Topic,
				Title:      rec.Artifact.Title,
				Slides:     rec.Slides,
				Band:       rec.Artifact.Band,
				Classified: rec.Classified,
			})
		}
		printer.PrintMergeReport(res.Merge.Report, append(skipped, res.Merge.Missing...))
	}
	_, _ = fmt.Fprintf(out, "Wrote %s (%d slides, %d of %d topics)\n",
		cfg.Output, res.Merge.Report.Slides, len(res.Records), len(cfg.Topics))
	return nil
}

// exportTopics writes each topic's deck and highlighted table to dir.
func exportTopics(dir string, records []artifact.Record) error {
	for _, rec := range records {
		a := rec.Artifact
		if err := writeOutput(filepath.Join(dir, string(a.Topic)+".pptx"), rec.Deck); err != nil {
			return err
		}
		data, err := tabular.XLSX(&a.Table, &tabular.Highlight{Target: a.Target, Thresholds: a.Thresholds})
		if err != nil {
			return fmt.Errorf("topic %s: %w", a.Topic, err)
		}
		if err := writeOutput(filepath.Join(dir, string(a.Topic)+".xlsx"), data); err != nil {
			return err
		}
	}
	return nil
}
