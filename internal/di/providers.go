package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"InvestCore/internal/domain/repository"
	"InvestCore/internal/handler/api"
	"InvestCore/internal/registry"
	internalrepo "InvestCore/internal/repository"
	"InvestCore/internal/retrain"
	"InvestCore/internal/service/drift"
	"InvestCore/internal/service/notifier"
	"InvestCore/internal/usecase"
	pkgch "InvestCore/pkg/clickhouse"
	"InvestCore/pkg/config"
	pkgkafka "InvestCore/pkg/kafka"
	applogger "InvestCore/pkg/logger"
	"InvestCore/pkg/metrics"
	"InvestCore/pkg/queue"
	"InvestCore/pkg/server"
)

// ProvideLogger creates the root structured logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRegistry creates the model registry with artifact snapshots.
func ProvideRegistry(cfg *config.Config, logger *applogger.Logger) *registry.Registry {
	return registry.New(logger, registry.WithArtifacts(cfg.Registry.ArtifactDir))
}

// Storage bundles the configured store backends plus the ClickHouse client
// they may share, so the app can close it on shutdown.
type Storage struct {
	Feedback  repository.FeedbackStore
	Reference repository.ReferenceStore
	CH        *pkgch.Client
}

// ProvideStorage creates the feedback and reference stores for the
// configured backend.
func ProvideStorage(cfg *config.Config, logger *applogger.Logger) (*Storage, error) {
	switch cfg.Storage.Type {
	case "clickhouse":
		ch, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ch.InitSchema(ctx, internalrepo.ClickHouseSchema(cfg.ClickHouse.Database)); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}

		fb, err := internalrepo.NewCHFeedbackStore(ch, cfg.ClickHouse.Database, logger)
		if err != nil {
			_ = ch.Close()
			return nil, err
		}
		return &Storage{
			Feedback:  fb,
			Reference: internalrepo.NewCHReferenceStore(ch, cfg.ClickHouse.Database),
			CH:        ch,
		}, nil

	default: // file
		fb, err := internalrepo.NewFileFeedbackStore(cfg.Storage.DataDir, logger)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Feedback:  fb,
			Reference: internalrepo.NewFileReferenceStore(cfg.Storage.DataDir),
		}, nil
	}
}

// ProvideQueue creates the retrain job queue for the configured backend.
func ProvideQueue(cfg *config.Config, logger *applogger.Logger) (queue.Queue, error) {
	switch cfg.Queue.Type {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return queue.NewRedisQueue(client, logger,
			queue.WithWorkers(cfg.Retrain.Workers),
		), nil
	default:
		return queue.NewMemoryQueue(cfg.Retrain.QueueSize, cfg.Retrain.Workers, logger), nil
	}
}

// Messaging bundles the optional Kafka pieces: the feedback exporter feeding
// the drift monitor and the consumer reading its scores back.
type Messaging struct {
	Producer *pkgkafka.Producer
	Consumer *pkgkafka.Consumer
	Exporter repository.FeedbackExporter
}

// ProvideMessaging creates Kafka clients when enabled, or an empty bundle.
func ProvideMessaging(cfg *config.Config, logger *applogger.Logger) (*Messaging, error) {
	if !cfg.Kafka.Enabled {
		return &Messaging{}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithProducerTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	m := &Messaging{
		Producer: producer,
		Exporter: internalrepo.NewKafkaExporter(producer, cfg.Kafka.ExportTopic),
	}

	if cfg.Kafka.DriftTopic != "" {
		consumer, err := pkgkafka.NewConsumer(logger,
			pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		m.Consumer = consumer
	}
	return m, nil
}

// ProvideTracker creates the in-flight job tracker.
func ProvideTracker() *retrain.Tracker {
	return retrain.NewTracker()
}

// ProvideTrigger creates the retrain trigger.
func ProvideTrigger(
	cfg *config.Config,
	q queue.Queue,
	tracker *retrain.Tracker,
	m repository.Metrics,
	logger *applogger.Logger,
) *retrain.Trigger {
	return retrain.NewTrigger(
		retrain.TriggerConfig{
			FeedbackThreshold: int64(cfg.Retrain.FeedbackThreshold),
			DriftThreshold:    cfg.Retrain.DriftThreshold,
		},
		q, tracker, m, logger,
	)
}

// ProvideWorker creates the retrain worker.
func ProvideWorker(
	cfg *config.Config,
	reg *registry.Registry,
	storage *Storage,
	tracker *retrain.Tracker,
	m repository.Metrics,
	logger *applogger.Logger,
) *retrain.Worker {
	return retrain.NewWorker(
		retrain.WorkerConfig{
			MinSamples: cfg.Retrain.MinSamples,
			JobTimeout: cfg.Retrain.JobTimeout,
		},
		reg, storage.Feedback, storage.Reference, tracker, m, logger,
	)
}

// ProvidePredictionService creates the prediction use case.
func ProvidePredictionService(reg *registry.Registry, m repository.Metrics, logger *applogger.Logger) *usecase.PredictionService {
	return usecase.NewPredictionService(reg, m, logger)
}

// ProvideFeedbackService creates the feedback-ingest use case.
func ProvideFeedbackService(
	reg *registry.Registry,
	storage *Storage,
	trigger *retrain.Trigger,
	msg *Messaging,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.FeedbackService {
	return usecase.NewFeedbackService(reg, storage.Feedback, trigger, msg.Exporter, m, logger)
}

// ProvideNotifyService creates the notification use case with its HTTP
// dispatcher.
func ProvideNotifyService(cfg *config.Config, logger *applogger.Logger) *usecase.NotifyService {
	dispatcher := notifier.NewHTTPDispatcher(
		cfg.Notifier.DispatcherURL,
		cfg.Notifier.Timeout,
		cfg.Notifier.MaxRetries,
		logger,
	)
	return usecase.NewNotifyService(dispatcher, cfg.Notifier.PublicBaseURL, cfg.Notifier.Timeout, logger)
}

// ProvideDriftHandler creates the Kafka drift-score handler.
func ProvideDriftHandler(cfg *config.Config, trigger *retrain.Trigger, logger *applogger.Logger) *usecase.DriftSignalHandler {
	return usecase.NewDriftSignalHandler(cfg.Kafka.DriftTopic, trigger, cfg.Supported, logger)
}

// ProvideCoreHandler creates the HTTP handler.
func ProvideCoreHandler(
	cfg *config.Config,
	predictor *usecase.PredictionService,
	feedback *usecase.FeedbackService,
	notify *usecase.NotifyService,
	trigger *retrain.Trigger,
	storage *Storage,
	logger *applogger.Logger,
) *api.CoreHandler {
	return api.NewCoreHandler(predictor, feedback, notify, trigger, storage.Feedback, cfg.Supported, logger)
}

// ProvideApp assembles the application server and attaches the optional
// background pieces.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	reg *registry.Registry,
	q queue.Queue,
	worker *retrain.Worker,
	handler *api.CoreHandler,
	storage *Storage,
	msg *Messaging,
	trigger *retrain.Trigger,
) *server.App {
	app := server.New(cfg, logger, reg, q, worker, handler, storage.Feedback)

	if storage.CH != nil {
		app.SetClickHouse(storage.CH)
	}
	if msg.Exporter != nil {
		app.SetExporter(msg.Exporter)
	}
	if msg.Consumer != nil {
		app.SetConsumer(msg.Consumer, ProvideDriftHandler(cfg, trigger, logger))
	}
	if cfg.Drift.PollEnabled && cfg.Drift.ScorerURL != "" {
		scorer := drift.NewHTTPScorer(cfg.Drift.ScorerURL, cfg.Drift.Timeout)
		app.SetPoller(drift.NewPoller(
			scorer, trigger, cfg.Instruments,
			cfg.Drift.PollInterval, cfg.Drift.Timeout, logger,
		))
	}
	return app
}
