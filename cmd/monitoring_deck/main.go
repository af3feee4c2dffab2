// Package main provides the monitoring_deck CLI: threshold management,
// topic deck builds, deck merges and the HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/observability"
)

var (
	verbose           bool
	configPath        string
	thresholdsBackend string
	thresholdsDir     string
	thresholdsDB      string
	databaseURL       string
	stylePath         string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "monitoring_deck",
	Short:         "Model monitoring report builder",
	Long:          "monitoring_deck classifies monitoring metrics against per-metric thresholds, builds a three-slide deck per topic and merges topic decks into one restyled report.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		l, err := observability.NewLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print detailed output and debug logs")
	flags.StringVarP(&configPath, "config", "c", "", "Path to JSON config file")
	flags.StringVar(&thresholdsBackend, "thresholds-backend", "", "Threshold storage: file, sqlite or postgres")
	flags.StringVar(&thresholdsDir, "thresholds-dir", "", "Directory of threshold records (file backend)")
	flags.StringVar(&thresholdsDB, "thresholds-db", "", "SQLite database file (sqlite backend)")
	flags.StringVar(&databaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	flags.StringVar(&stylePath, "style", "", "Style file (YAML or JSON)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
