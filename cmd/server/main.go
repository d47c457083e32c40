package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	eventapp "github.com/lousydropout/invoice-me-sub000/internal/application/event"
	invoicingapp "github.com/lousydropout/invoice-me-sub000/internal/application/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/cache"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/config"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/event"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/logger"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/persistence"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/telemetry"
	"github.com/lousydropout/invoice-me-sub000/internal/interfaces/http/handler"
	"github.com/lousydropout/invoice-me-sub000/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

//	@title			Invoicing Ledger API
//	@version		1.0
//	@description	Invoice lifecycle (draft, send, pay) with payments applied against the outstanding balance

//	@host		localhost:8080
//	@BasePath	/api/v1

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(baseLog)
	}()

	ctx := context.Background()

	// Telemetry: logs bridge first so every later component logs through it
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log := loggerProvider.Bridge(baseLog)

	log.Info("Starting invoicing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	defer func() {
		shutdownCtx := context.Background()
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis backs the idempotency store and the event stream when enabled
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	var kv cache.KeyValue
	if rdb != nil {
		kv = rdb
	}
	idempotencyStore := cache.NewIdempotencyStore(kv, log)
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Event serializer, outbox and bus
	serializer := event.NewInvoicingSerializer()
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	outboxPublisher := event.NewOutboxPublisher(serializer).WithMaxRetries(cfg.Event.MaxRetries)
	eventBus := event.NewInMemoryEventBus(log)

	// Event handlers: the activity log must not repeat on redelivery
	activityHandler := event.NewIdempotentHandler(
		invoicingapp.NewInvoiceActivityHandler(log),
		idempotencyStore,
		log,
		event.WithHandlerName("invoice_activity"),
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}),
	)
	eventBus.Subscribe(activityHandler)

	invoiceMetrics, err := telemetry.NewInvoiceMetrics(meterProvider.Meter("invoicing"))
	if err != nil {
		log.Fatal("Failed to create invoice metrics", zap.Error(err))
	}
	eventBus.Subscribe(invoiceMetrics)
	outboxGauge, err := invoiceMetrics.ObserveOutbox(outboxRepo)
	if err != nil {
		log.Fatal("Failed to register outbox gauge", zap.Error(err))
	}
	defer func() {
		_ = outboxGauge.Unregister()
	}()

	log.Info("Event handlers registered",
		zap.Strings("invoice_activity_events", activityHandler.EventTypes()),
		zap.Strings("invoice_metrics_events", invoiceMetrics.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Repositories and services
	var repoOpts []persistence.InvoiceRepositoryOption
	serviceOpts := []invoicingapp.ServiceOption{
		invoicingapp.WithMaxConflictRetries(cfg.Invoice.MaxConflictRetries),
	}
	if currency, err := valueobject.ParseCurrency(cfg.Invoice.DefaultCurrency); err == nil {
		serviceOpts = append(serviceOpts, invoicingapp.WithDefaultCurrency(currency))
	} else {
		log.Warn("Ignoring invalid default currency", zap.String("currency", cfg.Invoice.DefaultCurrency))
	}

	// With the outbox, events leave through the relay only; otherwise the
	// service publishes straight to the bus after each save.
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if cfg.Event.OutboxEnabled {
		repoOpts = append(repoOpts, persistence.WithOutbox(outboxPublisher))

		var relayTarget shared.EventPublisher = eventBus
		if rdb != nil {
			relayTarget = event.NewRedisStreamPublisher(rdb, cfg.Event.StreamName, cfg.Event.StreamMaxLen, serializer)
			consumer := event.NewRedisStreamConsumer(
				rdb, cfg.Event.StreamName, cfg.App.Name, consumerName(cfg.App.Name),
				serializer, eventBus, log,
			)
			go func() {
				if err := consumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("Redis stream consumer stopped", zap.Error(err))
				}
			}()
			log.Info("Redis stream consumer started", zap.String("stream", cfg.Event.StreamName))
		}

		outboxProcessorConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, relayTarget, serializer, outboxProcessorConfig, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	} else {
		serviceOpts = append(serviceOpts, invoicingapp.WithEventPublisher(eventBus))
	}

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB, repoOpts...)
	queryRepo := persistence.NewGormInvoiceQueryRepository(db.DB)
	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, log, serviceOpts...)
	queryService := invoicingapp.NewInvoiceQueryService(queryRepo, nil)

	// HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, queryService)
	healthHandler := handler.NewHealthHandler(cfg.App.Name, version).
		AddCheck("database", db.Ping)
	if rdb != nil {
		healthHandler.AddCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var httpMeter metric.Meter
	if meterProvider.IsEnabled() {
		httpMeter = meterProvider.Meter("http.server")
	}
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   tracerProvider.IsEnabled(),
		Meter:            httpMeter,
		ProfilingEnabled: profiler.IsEnabled(),
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	var outboxHandler *handler.OutboxHandler
	if cfg.Event.OutboxEnabled {
		outboxHandler = handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log))
	}
	router.Mount(engine, healthHandler, invoiceHandler, outboxHandler)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stopConsumer()

	log.Info("Server exited gracefully")
}

// consumerName identifies this replica within the stream consumer group
func consumerName(app string) string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return app + "-" + hostname
	}
	return app
}
