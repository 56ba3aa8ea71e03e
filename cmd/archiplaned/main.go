// Command archiplaned runs the control plane: it loads configuration,
// wires the model actor, apply engine, operation queue, undo log, and
// diagnostics scheduler, and serves the HTTP surface spec.md §6 names
// until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"archiplane/internal/apply"
	"archiplane/internal/config"
	"archiplane/internal/diagnostics"
	"archiplane/internal/httpx"
	"archiplane/internal/logging"
	"archiplane/internal/metrics"
	"archiplane/internal/model"
	"archiplane/internal/modelactor"
	"archiplane/internal/opqueue"
	"archiplane/internal/tracing"
	"archiplane/internal/undo"
)

// newLogger builds the root logger via internal/logging, choosing prod/dev
// encoding off the configured log format rather than off process
// environment, since an operator may want JSON logs from a development
// deploy or console logs while debugging production.
func newLogger(cfg config.Logging) *zap.Logger {
	environment := "production"
	if cfg.Format == "console" {
		environment = "development"
	}
	logger, err := logging.New(environment)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.Logging)
	ctx = logging.WithContext(ctx, logger)
	defer func() { _ = logger.Sync() }()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	tracer, err := tracing.Init(tracing.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown error", zap.Error(err))
		}
	}()

	m := model.New()
	actor := modelactor.New(m, 256, logger)
	undoLog := undo.NewLog()
	store := opqueue.NewStore()
	notifier := opqueue.NewNotifier(store)
	engine := apply.New(actor, notifier, undoLog, logger)

	scheduler := diagnostics.NewScheduler(actor, 1*time.Minute, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go gcLoop(ctx, store, cfg.Queue.GCInterval, cfg.Queue.OperationTTL)

	server := httpx.NewServer(actor, engine, notifier, undoLog, logger, collector, tracer)
	server.RequestTimeout = cfg.Server.RequestTimeout

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		logger.Fatal("failed to start configuration watcher", zap.Error(err))
	}
	watcher.OnChange(func(next *config.Config) {
		server.RequestTimeout = next.Server.RequestTimeout
	})
	defer watcher.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.BindAddress,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting archiplaned",
			zap.String("address", cfg.Server.BindAddress),
			zap.String("environment", string(cfg.Environment)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down archiplaned...")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

// gcLoop periodically evicts operations past their TTL, grounded on the
// queue config's operation_ttl/gc_interval knobs.
func gcLoop(ctx context.Context, store *opqueue.Store, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			store.GC(ttl, now)
		}
	}
}
