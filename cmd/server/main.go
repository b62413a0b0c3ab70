package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astracore/gl-service/internal/application/posting"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/astracore/gl-service/internal/infrastructure/anomaly"
	"github.com/astracore/gl-service/internal/infrastructure/cache"
	"github.com/astracore/gl-service/internal/infrastructure/config"
	"github.com/astracore/gl-service/internal/infrastructure/event"
	"github.com/astracore/gl-service/internal/infrastructure/logger"
	"github.com/astracore/gl-service/internal/infrastructure/messaging"
	"github.com/astracore/gl-service/internal/infrastructure/persistence"
	"github.com/astracore/gl-service/internal/infrastructure/telemetry"
	"github.com/astracore/gl-service/internal/interfaces/http/handler"
	"github.com/astracore/gl-service/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("GL service stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// closer is one step of the shutdown sequence
type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func run(cfg *config.Config, baseLog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].fn(shutdownCtx); err != nil {
				baseLog.Error("Shutdown step failed", zap.String("component", closers[i].name), zap.Error(err))
			}
		}
		baseLog.Info("GL service stopped")
	}()
	onShutdown := func(name string, fn func(ctx context.Context) error) {
		closers = append(closers, closer{name: name, fn: fn})
	}

	// Telemetry
	providers, err := telemetry.Setup(ctx, telemetry.ExportConfig{
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Traces:            cfg.Telemetry.Enabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ProfileSpans:      cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.LinkSpans,
		Metrics:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		Logs:              cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
	}, baseLog)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	onShutdown("telemetry providers", providers.Shutdown)

	prof := cfg.Telemetry.Profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              prof.Enabled,
		ServerAddress:        prof.ServerAddress,
		ApplicationName:      cfg.Telemetry.ServiceName,
		BasicAuthUser:        prof.BasicAuthUser,
		BasicAuthPassword:    prof.BasicAuthPassword,
		ProfileTypes:         prof.ProfileTypes,
		MutexProfileFraction: prof.MutexProfileFraction,
		BlockProfileRate:     prof.BlockProfileRate,
	}, baseLog)
	if err != nil {
		return fmt.Errorf("profiler: %w", err)
	}
	onShutdown("profiler", profiler.Stop)

	log := telemetry.Bridge(baseLog, providers, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))
	log.Info("Starting GL service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	// Database
	gormLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(logger.NewGormLogger(log, gormLevel,
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	onShutdown("database", func(context.Context) error { return db.Close() })
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	meter := providers.Meter("gl-service")
	observer, err := telemetry.NewDBObserver(meter, telemetry.DBObserverConfig{
		TraceEnabled:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		return fmt.Errorf("db observer: %w", err)
	}
	if err := db.DB.Use(observer); err != nil {
		return fmt.Errorf("register db observer: %w", err)
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		observer.StartPoolStats(ctx, sqlDB)
	}
	onShutdown("db observer", func(context.Context) error { observer.Stop(); return nil })

	// Ledger store and outbox
	accounts := persistence.NewGormAccountRepository(db.DB)
	transactions := persistence.NewGormTransactionRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	serializer := event.NewLedgerEventSerializer()
	scope := persistence.NewGormTransactionScope(db.DB,
		event.NewOutboxPublisher(serializer, event.WithMaxRetries(cfg.Outbox.MaxRetries)))

	metrics, err := telemetry.NewPostingMetrics(telemetry.PostingMetricsConfig{
		Meter:          meter,
		Logger:         log,
		OutboxProvider: outboxRepo,
	})
	if err != nil {
		return fmt.Errorf("posting metrics: %w", err)
	}
	if providers.MetricsEnabled() {
		metrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	}
	onShutdown("posting metrics", func(context.Context) error { metrics.Stop(); return nil })

	postingService := posting.NewPostingService(scope, nil, log)
	postingService.SetMetrics(metrics)

	// Posted-event subscribers
	bus := event.NewInMemoryEventBus(log)
	if cfg.Kafka.PublishPosted {
		relay := messaging.NewKafkaEventRelay(
			messaging.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.PostedTopic, cfg.Kafka.WriteTimeout), log)
		bus.Subscribe(relay, relay.EventTypes()...)
		onShutdown("posted-event relay", func(context.Context) error { return relay.Close() })
		log.Info("Relaying posted events", zap.String("topic", cfg.Kafka.PostedTopic))
	}
	anomalyHandler := posting.NewAnomalyAdvisorHandler(anomaly.NewAdvisor(cfg.Anomaly, log), cfg.Anomaly.Timeout, log)
	anomalyHandler.SetMetrics(metrics)
	bus.Subscribe(anomalyHandler, anomalyHandler.EventTypes()...)

	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	onShutdown("event bus", bus.Stop)

	if cfg.Outbox.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Outbox.BatchSize
		processorCfg.PollInterval = cfg.Outbox.PollInterval
		processorCfg.CleanupEnabled = cfg.Outbox.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Outbox.CleanupRetention
		processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, processorCfg, log)
		if err := processor.Start(ctx); err != nil {
			return fmt.Errorf("start outbox processor: %w", err)
		}
		onShutdown("outbox processor", processor.Stop)
	}

	// Inbound invoice facts
	store, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Idempotency, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}
	onShutdown("idempotency store", func(context.Context) error { return store.Close() })

	invoiceHandler := event.NewIdempotentHandler(
		posting.NewInvoiceIssuedHandler(postingService, log),
		store,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Idempotency.TTL,
			Enabled: cfg.Idempotency.Enabled,
		}),
		event.WithDedupRecorder(metrics),
	)

	consumerOpts := []messaging.ConsumerOption{messaging.WithPermanentErrors(posting.IsPermanent)}
	if cfg.Kafka.DeadLetterTopic != "" {
		dlq := messaging.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic, cfg.Kafka.WriteTimeout)
		consumerOpts = append(consumerOpts, messaging.WithDeadLetterWriter(dlq))
		onShutdown("dead-letter writer", func(context.Context) error { return dlq.Close() })
	}
	consumer := messaging.NewConsumerPool(
		messaging.ConsumerConfig{
			Workers:        cfg.Kafka.Workers,
			RejoinBackoff:  cfg.Kafka.RejoinBackoff,
			HandlerTimeout: cfg.Kafka.HandlerTimeout,
		},
		messaging.NewGroupReaderFactory(cfg.Kafka),
		messaging.DecodeInvoiceIssuedEvent,
		invoiceHandler,
		log,
		consumerOpts...,
	)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	onShutdown("consumer pool", consumer.Stop)
	log.Info("Consuming invoice facts",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.InvoiceTopic),
		zap.String("group", cfg.Kafka.GroupID),
		zap.Int("workers", cfg.Kafka.Workers),
	)

	// Operational HTTP surface
	if cfg.HTTP.Enabled {
		srv, err := newHTTPServer(cfg, log, meter, db, store, accounts, transactions, outboxRepo)
		if err != nil {
			return err
		}
		serveErr := make(chan error, 1)
		go func() {
			log.Info("HTTP server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
		onShutdown("http server", srv.Shutdown)

		select {
		case <-ctx.Done():
		case err := <-serveErr:
			return fmt.Errorf("http server: %w", err)
		}
	} else {
		<-ctx.Done()
	}

	log.Info("Shutdown signal received")
	return nil
}

func newHTTPServer(
	cfg *config.Config,
	log *zap.Logger,
	meter metric.Meter,
	db *persistence.Database,
	store shared.IdempotencyStore,
	accounts *persistence.GormAccountRepository,
	transactions *persistence.GormTransactionRepository,
	outbox *event.GormOutboxRepository,
) (*http.Server, error) {
	checks := map[string]handler.Checker{"database": db}
	if pinger, ok := store.(handler.Checker); ok {
		checks["redis"] = pinger
	}

	mode := gin.ReleaseMode
	if cfg.App.Env == "development" {
		mode = gin.DebugMode
	}

	engine, err := router.NewEngine(router.Options{
		Logger:         log,
		Mode:           mode,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		Meter:          meter,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Health:         handler.NewHealthHandler(version, checks),
		Ledger:         handler.NewLedgerHandler(accounts, transactions),
		Outbox:         handler.NewOutboxHandler(outbox),
	})
	if err != nil {
		return nil, fmt.Errorf("build http engine: %w", err)
	}

	return &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}, nil
}
