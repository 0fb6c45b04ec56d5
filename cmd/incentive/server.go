package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/incentive-engine/api"
	"github.com/warp/incentive-engine/dashboard"
)

const shutdownTimeout = 30 * time.Second

func newServerCmd(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the API server",
		Long: `Start the HTTP API server. When sync.enabled is set, contracts are
also pulled from the source on the sync.cron schedule.

On SIGINT/SIGTERM the server stops accepting connections, waits up to 30s
for active requests and any running sync, then closes the database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port (overrides config)")
	return cmd
}

func serve(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plan, err := a.cfg.CommissionPlan()
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.Deps{
		Dashboard: dashboard.NewService(a.store, a.store, plan),
		Contracts: a.store,
		Quotas:    a.store,
		Runs:      a.store,
		Syncer:    a.syncer,
		Resetter:  a.store,
		Logger:    a.logger.Named("api"),
	})
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		StaticDir:      a.cfg.Server.StaticDir,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // POST /api/sync waits for the whole run
		IdleTimeout:  60 * time.Second,
	}

	var scheduler *api.SyncScheduler
	if a.cfg.Sync.Enabled {
		scheduler, err = api.NewSyncScheduler(a.syncer, a.cfg.Sync.Cron, a.logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if scheduler != nil {
		scheduler.Start()
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if scheduler != nil {
			select {
			case <-scheduler.Stop().Done():
			case <-shutdownCtx.Done():
				a.logger.Warn("scheduled sync still running at shutdown")
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		a.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
