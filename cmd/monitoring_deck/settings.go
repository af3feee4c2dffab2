package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/config"
	"github.com/jonathan/monitoring-deck/internal/db"
	"github.com/jonathan/monitoring-deck/internal/merge"
	"github.com/jonathan/monitoring-deck/internal/skeleton"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
)

// loadSettings merges, in increasing priority, the defaults, the config
// file, the environment and explicitly set flags.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(os.Getenv)

	flags := cmd.Flags()
	override := func(name string, field *string, value string) {
		if flags.Changed(name) {
			*field = value
		}
	}
	override("thresholds-backend", &cfg.ThresholdsBackend, thresholdsBackend)
	override("thresholds-dir", &cfg.ThresholdsDir, thresholdsDir)
	override("thresholds-db", &cfg.ThresholdsDB, thresholdsDB)
	override("db-url", &cfg.DatabaseURL, databaseURL)
	override("style", &cfg.Style, stylePath)
	cfg.Verbose = cfg.Verbose || verbose

	merged := cfg.MergeWithDefaults(config.Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// openThresholdStore opens the configured backend. The returned func
// releases it.
func openThresholdStore(ctx context.Context, cfg *config.Config) (thresholds.Store, func(), error) {
	switch cfg.ThresholdsBackend {
	case config.BackendSQLite:
		store, err := thresholds.OpenSQLiteStore(ctx, cfg.ThresholdsDB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.BackendPostgres:
		database, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return database.Thresholds(), database.Close, nil
	default:
		return thresholds.NewFileStore(cfg.ThresholdsDir), func() {}, nil
	}
}

func openDatabase(ctx context.Context, url string) (*db.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL not set and --db-url not provided")
	}
	database, err := db.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// resolveStyle loads the style file if one is configured. Bad values fall
// back to defaults and are logged.
func resolveStyle(cfg *config.Config) (skeleton.Resolved, error) {
	if cfg.Style == "" {
		return skeleton.DefaultResolved(), nil
	}
	style, err := skeleton.LoadStyle(cfg.Style)
	if err != nil {
		return skeleton.Resolved{}, err
	}
	resolved, warnings := skeleton.Resolve(style)
	for _, w := range warnings {
		logger.Warn("style fallback", zap.String("detail", w))
	}
	return resolved, nil
}

// restyleTable returns the configured restyle file's table, or nil to let
// the restyle mode decide.
func restyleTable(path string) (merge.RestyleTable, error) {
	if path == "" {
		return nil, nil
	}
	return merge.LoadRestyleTable(path)
}

func s3Store(cfg *config.Config) (artifact.Store, error) {
	if cfg.S3 == nil {
		return nil, nil
	}
	store, err := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
