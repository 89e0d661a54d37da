package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appevent "github.com/salesflow/backend/internal/application/event"
	orderapp "github.com/salesflow/backend/internal/application/order"
	quoteapp "github.com/salesflow/backend/internal/application/quote"
	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/shared/valueobject"
	"github.com/salesflow/backend/internal/infrastructure/config"
	"github.com/salesflow/backend/internal/infrastructure/event"
	"github.com/salesflow/backend/internal/infrastructure/logger"
	"github.com/salesflow/backend/internal/infrastructure/migration"
	"github.com/salesflow/backend/internal/infrastructure/persistence"
	"github.com/salesflow/backend/internal/infrastructure/scheduler"
	"github.com/salesflow/backend/internal/infrastructure/sequence"
	"github.com/salesflow/backend/internal/infrastructure/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	log.Info("Starting salesflow backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// Initialize database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	log.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	// Register database query tracing
	dbTracingCfg := telemetry.DefaultDBTracingConfig()
	dbTracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	dbTracingCfg.LogFullSQL = cfg.App.Env == "development"
	dbTracing := telemetry.NewDBTracingPlugin(dbTracingCfg, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Refuse to serve on a half-migrated schema
	if err := checkMigrationStatus(cfg, log); err != nil {
		log.Fatal("Migration status check failed", zap.Error(err))
	}

	// Initialize repositories
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	changeLogRepo := persistence.NewGormChangeLogRepository(db.DB)

	// Initialize document number sequencer
	var sequencer document.Sequencer
	switch cfg.Document.SequencerBackend {
	case "redis":
		redisSeq, err := sequence.NewRedisSequencer(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis sequencer", zap.Error(err))
		}
		defer redisSeq.Close()
		sequencer = redisSeq
		log.Info("Using Redis document sequencer", zap.String("addr", cfg.Redis.Addr()))
	default:
		sequencer = sequence.NewGormSequencer(map[string]sequence.Counter{
			cfg.Document.QuotePrefix: quoteRepo.CountByNumberPrefix,
			cfg.Document.OrderPrefix: orderRepo.CountByNumberPrefix,
		})
		log.Info("Using database document sequencer")
	}
	numbers := document.NewNumberGenerator(sequencer)

	// Financial defaults applied when requests omit currency or tax settings
	defaults, err := document.NewSettings(
		valueobject.Currency(cfg.Document.DefaultCurrency),
		decimal.NewFromInt(1),
		decimal.NewFromFloat(cfg.Document.DefaultTaxRate),
		cfg.Document.TaxInclusive,
	)
	if err != nil {
		log.Fatal("Invalid document defaults", zap.Error(err))
	}

	// Initialize application services
	quoteService := quoteapp.NewService(quoteRepo, changeLogRepo, numbers, log, quoteapp.Config{
		NumberPrefix: cfg.Document.QuotePrefix,
		OrderPrefix:  cfg.Document.OrderPrefix,
		ValidityDays: cfg.Document.ValidityDays,
		Defaults:     defaults,
	})
	orderService := orderapp.NewService(orderRepo, changeLogRepo, numbers, log, orderapp.Config{
		NumberPrefix:     cfg.Document.OrderPrefix,
		PaymentTermsDays: cfg.Document.PaymentTermsDays,
		Defaults:         defaults,
	})

	// Initialize event bus and subscribe handlers
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(appevent.NewActivityLogHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Failed to stop event bus", zap.Error(err))
		}
	}()
	quoteService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)

	// Start housekeeping sweeps
	if cfg.Scheduler.Enabled {
		housekeeper := scheduler.NewHousekeeper(scheduler.Config{
			Enabled:     cfg.Scheduler.Enabled,
			Interval:    cfg.Scheduler.Interval,
			TaskTimeout: cfg.Scheduler.TaskTimeout,
		}, log,
			scheduler.Task{Name: "expire_quotes", Run: quoteService.ExpireDueQuotes},
			scheduler.Task{Name: "mark_overdue_payments", Run: orderService.MarkOverduePayments},
		)
		if err := housekeeper.Start(ctx); err != nil {
			log.Fatal("Failed to start housekeeper", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := housekeeper.Stop(stopCtx); err != nil {
				log.Error("Failed to stop housekeeper", zap.Error(err))
			}
		}()
	} else {
		log.Info("Housekeeping scheduler disabled")
	}

	// Initialize HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(logger.RequestID())
	engine.Use(logger.GinMiddleware(log))

	engine.GET("/health", healthHandler(cfg))
	engine.GET("/ready", readyHandler(db))

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: engine,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// checkMigrationStatus logs the applied schema version. A dirty version
// means a migration was interrupted and the schema needs manual repair
// before the server can trust it.
func checkMigrationStatus(cfg *config.Config, log *zap.Logger) error {
	path := "./migrations"
	if _, err := os.Stat(path); err != nil {
		log.Debug("Migrations directory not found, skipping schema version check",
			zap.String("path", path))
		return nil
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database for migration check: %w", err)
	}

	m, err := migration.New(sqlDB, path, log)
	if err != nil {
		sqlDB.Close()
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty, repair it and run 'migrate force' first", version)
	}
	if version == 0 {
		log.Warn("No migrations applied, run 'migrate up' before serving traffic")
	} else {
		log.Info("Database schema version", zap.Uint("version", version))
	}
	return nil
}

// healthHandler reports process liveness.
func healthHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"app":    cfg.App.Name,
			"env":    cfg.App.Env,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readyHandler reports whether the server can reach its database and is
// safe to route traffic to.
func readyHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"database": "down",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ready",
			"database": "up",
		})
	}
}
