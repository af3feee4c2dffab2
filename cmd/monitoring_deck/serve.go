package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/monitoring-deck/internal/server"
)

var (
	servePort      int
	serveCacheSize int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server that exposes threshold, classification, topic build and merge endpoints. Each session keeps its own topic decks.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().IntVar(&serveCacheSize, "cache-size", server.DefaultCacheSize, "Merged decks kept in memory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
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

	srvCfg := server.Config{
		Port:        servePort,
		Thresholds:  store,
		Style:       style,
		Restyle:     table,
		RestyleMode: cfg.RestyleMode,
		Logger:      logger,
		CacheSize:   serveCacheSize,
	}
	if cfg.DatabaseURL != "" {
		database, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		srvCfg.Recorder = database
	}
	if srvCfg.Store, err = s3Store(cfg); err != nil {
		return err
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
