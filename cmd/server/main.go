package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/handler"
	"taskflow/internal/logger"
	"taskflow/internal/realtime"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	serve := func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), configFile)
	}

	cmd := &cobra.Command{
		Use:          "taskflow-server",
		Short:        "TaskFlow API server",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve with etc/config-dev.yaml or environment variables
  taskflow-server

  # Create or update the schema and exit
  taskflow-server migrate --config etc/config-prod.yaml
`),
		RunE: serve,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (e.g. etc/config-dev.yaml)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  serve,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(configFile)
			logger.Init(cfg.Log)
			db, err := cfg.OpenGormDB()
			if err != nil {
				logger.Error("db connect failed", "err", err)
				return err
			}
			if err := service.Migrate(db); err != nil {
				logger.Error("migrate failed", "err", err)
				return err
			}
			logger.Info("migrate done")
			return nil
		},
	})
	return cmd
}

func runServe(parent context.Context, configFile string) error {
	cfg := config.Load(configFile)
	logger.Init(cfg.Log)
	gin.SetMode(gin.ReleaseMode)

	var router *gin.Engine
	if missing := cfg.MissingRequired(); len(missing) > 0 {
		logger.Warn("setup required", "missing", missing)
		router = handler.NewSetupRouter(cfg, missing)
	} else {
		db, err := cfg.OpenGormDB()
		if err != nil {
			logger.Error("db connect failed", "err", err)
			return err
		}
		if err := service.Migrate(db); err != nil {
			logger.Error("migrate failed", "err", err)
			return err
		}
		hub := realtime.NewHub()
		svc := service.New(db, cfg, hub)
		if !svc.AI.Enabled() {
			logger.Warn("ai disabled", "reason", "AI_BASE_URL or AI_API_KEY missing")
		}
		router = handler.NewRouter(cfg, svc, hub)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr(), Handler: router, ReadHeaderTimeout: 10 * time.Second}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("server stopping")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server failed", "err", err)
		return err
	}
	return nil
}
