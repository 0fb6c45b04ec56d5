package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/incentive-engine/config"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/source"
	"github.com/warp/incentive-engine/store/sqlite"
)

type rootOptions struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "incentive",
		Short: "Sales commission and quota engine",
		Long: `Ingests contracts from the CRM, normalizes them, and serves
per-seller commission, tier, accelerator and quota projections.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "incentive.yaml", "YAML config path")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")

	root.AddCommand(newServerCmd(opts), newSyncCmd(opts), newImportCmd(opts))
	return root
}

// app is the wired component graph shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *sqlite.Store
	syncer *source.Syncer
}

func bootstrap(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run returns ErrNoFetcher when no source is configured; the interface
	// must stay nil rather than hold a nil *Client.
	var fetcher source.Fetcher
	if cfg.Source.BaseURL != "" {
		fetcher = source.NewClient(cfg.SourceClient(),
			&http.Client{Timeout: cfg.SourceTimeout()},
			source.SystemClock(),
			logger.Named("source"))
	}

	normalizer := contract.NewNormalizer(cfg.Sentinels, logger.Named("normalizer"))
	syncer := source.NewSyncer(fetcher, normalizer, store, store, source.SystemClock(), logger.Named("sync"))

	logger.Debug("components wired",
		zap.String("database", cfg.Database.Path),
		zap.Bool("source_configured", fetcher != nil))

	return &app{cfg: cfg, logger: logger, store: store, syncer: syncer}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	a.logger.Sync()
}
