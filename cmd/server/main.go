package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appbilling "github.com/utilitybill/backend/internal/application/billing"
	"github.com/utilitybill/backend/internal/domain/billing"
	"github.com/utilitybill/backend/internal/domain/shared"
	"github.com/utilitybill/backend/internal/infrastructure/cache"
	"github.com/utilitybill/backend/internal/infrastructure/config"
	"github.com/utilitybill/backend/internal/infrastructure/event"
	"github.com/utilitybill/backend/internal/infrastructure/logger"
	"github.com/utilitybill/backend/internal/infrastructure/persistence"
	"github.com/utilitybill/backend/internal/infrastructure/scheduler"
	"github.com/utilitybill/backend/internal/infrastructure/telemetry"
	"github.com/utilitybill/backend/internal/interfaces/http/handler"
	"github.com/utilitybill/backend/internal/interfaces/http/middleware"
	"github.com/utilitybill/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting utility billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry pipelines; both are no-ops when disabled
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	// Database with zap-backed GORM logger, tracing and metrics plugins
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithParameterizedQueries(cfg.App.Env == "production"))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Repositories and application service
	billingService := appbilling.NewBillingService(
		persistence.NewGormTransactionScope(db.DB),
		persistence.NewGormMeterReadingRepository(db.DB),
		persistence.NewGormBillRepository(db.DB),
		persistence.NewGormPaymentRepository(db.DB),
		persistence.NewGormConnectionRepository(db.DB),
		persistence.NewGormTariffPlanRepository(db.DB),
		appbilling.WithComposer(billing.NewBillComposer(
			billing.WithGracePeriodDays(cfg.Billing.GracePeriodDays),
			billing.WithBillNumberPrefix(cfg.Billing.BillNumberPrefix),
			billing.WithCurrencyScale(cfg.Billing.CurrencyScale),
		)),
		appbilling.WithBulkConcurrency(cfg.Billing.BulkConcurrency),
		appbilling.WithSweepBatchSize(cfg.Billing.SweepBatchSize),
		appbilling.WithLogger(log.Named("billing")),
	)

	// Event bus with idempotent subscribers
	eventBus := event.NewInMemoryEventBus(log.Named("event_bus"))
	billingService.SetEventPublisher(eventBus)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Event,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	billingMetrics, err := telemetry.NewBillingMetrics(meterProvider.Meter("billing"))
	if err != nil {
		log.Fatal("Failed to create billing metrics", zap.Error(err))
	}

	event.SubscribeAll(eventBus, idempotencyStore,
		shared.IdempotencyConfig{Enabled: cfg.Event.IdempotencyEnabled, TTL: cfg.Event.IdempotencyTTL},
		&event.IdempotencyMetrics{},
		log,
		event.Subscription{
			Name: "bill_status_notifier",
			Handler: appbilling.NewBillStatusNotifier(log).
				WithNotifier(appbilling.NewLoggingNotifier(log.Named("notifications"))),
		},
		event.Subscription{
			Name:    "billing_metrics",
			Handler: telemetry.NewMetricsRecorder(billingMetrics, log),
		},
	)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Overdue sweep on a cron schedule
	sweepScheduler := scheduler.NewOverdueSweepScheduler(
		scheduler.OverdueSweepConfigFrom(cfg.Scheduler), billingService, log.Named("scheduler"))
	if err := sweepScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start overdue sweep scheduler", zap.Error(err))
	}

	// HTTP
	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		Logger:           log,
		RequestTimeout:   cfg.HTTP.RequestTimeout,
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		RateLimiter:      rateLimiter,
		TracingEnabled:   tracerProvider.IsEnabled(),
		TracerProvider:   otel.GetTracerProvider(),
		MeterProvider:    meterProvider,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		WithCheck("database", db.Ping)
	if pinger, ok := idempotencyStore.(interface{ Ping(context.Context) error }); ok {
		systemHandler.WithCheck("redis", pinger.Ping)
	}
	systemHandler.RegisterRoutes(engine)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewBillingHandler(billingService)).
		Setup()

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
	if err := sweepScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Overdue sweep did not stop in time", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	flushTelemetry(shutdownCtx, log, tracerProvider, meterProvider)

	log.Info("Server exited gracefully")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func flushTelemetry(ctx context.Context, log *zap.Logger, providers ...shutdowner) {
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}
}
