package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "InvestCore/internal/domain/repository"
	"InvestCore/internal/registry"
	"InvestCore/internal/retrain"
	"InvestCore/internal/service/drift"
	pkgch "InvestCore/pkg/clickhouse"
	"InvestCore/pkg/config"
	xhttp "InvestCore/pkg/http"
	pkgkafka "InvestCore/pkg/kafka"
	applogger "InvestCore/pkg/logger"
	"InvestCore/pkg/queue"
)

// App owns the application lifecycle: restore artifacts, start the retrain
// queue and optional background consumers, serve HTTP, and unwind everything
// on SIGINT/SIGTERM.
type App struct {
	cfg      *config.Config
	logger   *applogger.Logger
	registry *registry.Registry
	queue    queue.Queue
	worker   *retrain.Worker
	handler  xhttp.Handler

	consumer     *pkgkafka.Consumer
	driftHandler pkgkafka.MessageHandler
	poller       *drift.Poller
	exporter     domrepo.FeedbackExporter
	store        domrepo.FeedbackStore
	chClient     *pkgch.Client

	httpServer *xhttp.Server
}

// New creates the app with its required components. Optional background
// pieces are attached with the Set methods.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	reg *registry.Registry,
	q queue.Queue,
	worker *retrain.Worker,
	handler xhttp.Handler,
	store domrepo.FeedbackStore,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger.With("app"),
		registry: reg,
		queue:    q,
		worker:   worker,
		handler:  handler,
		store:    store,
	}
}

// SetConsumer attaches the Kafka drift-score consumer.
func (a *App) SetConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) {
	a.consumer = c
	a.driftHandler = h
}

// SetPoller attaches the pull-based drift poller.
func (a *App) SetPoller(p *drift.Poller) { a.poller = p }

// SetExporter attaches the feedback exporter so it is closed on shutdown.
func (a *App) SetExporter(e domrepo.FeedbackExporter) { a.exporter = e }

// SetClickHouse attaches the ClickHouse client so it is closed on shutdown.
func (a *App) SetClickHouse(c *pkgch.Client) { a.chClient = c }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// restore published bundles from the last run; serving can start
	// without them, instruments just report model-unavailable
	if err := a.registry.LoadArtifacts(a.cfg.Instruments); err != nil {
		a.logger.Warn("artifact restore failed", applogger.Error(err))
	}

	if err := a.queue.Start(a.worker.Handle); err != nil {
		return err
	}

	if a.consumer != nil && a.driftHandler != nil {
		a.consumer.RegisterHandler(a.driftHandler)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start failed", applogger.Error(err))
			return err
		}
	}

	if a.poller != nil {
		a.poller.Start()
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.logger.Info("serving",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("storage", a.cfg.Storage.Type),
		applogger.String("queue", a.cfg.Queue.Type),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops intake first, then drains the queue, then closes clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.poller != nil {
		a.poller.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.queue.Stop(shutdownCtx); err != nil {
		a.logger.Warn("queue stop error", applogger.Error(err))
	}

	if a.exporter != nil {
		if err := a.exporter.Close(); err != nil {
			a.logger.Warn("exporter close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
