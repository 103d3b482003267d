package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GDiazF/calendario/api"
	"github.com/GDiazF/calendario/audit"
	"github.com/GDiazF/calendario/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

// serve runs until SIGINT or SIGTERM, then drains requests for up to 30s.
func serve() error {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := api.NewMetrics(reg, "calendario")

	opts := []audit.Option{
		audit.WithLogger(logger.Named("audit")),
		audit.WithFailureHook(metrics.AuditFailure),
	}
	if cfg.NATS.URL != "" {
		pub, err := audit.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, audit.WithPublisher(pub))
		logger.Info("publishing audit events", zap.String("url", cfg.NATS.URL), zap.String("subject", cfg.NATS.Subject))
	}

	handler := api.NewHandler(store, audit.NewRecorder(store, opts...), logger)
	handler.Metrics = metrics
	handler.Workers = cfg.Calendar.Workers
	handler.RetentionDays = cfg.Audit.RetentionDays

	scheduler := api.NewRetentionScheduler(store, cfg.Audit.RetentionDays, logger)
	scheduler.Metrics = metrics
	scheduler.CheckInterval = cfg.Audit.PurgeInterval
	scheduler.Enabled = cfg.Audit.PurgeInterval > 0
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("database", cfg.Database.Path),
			zap.Int("workers", handler.Workers))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
