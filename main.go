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

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-ordering/internal/config"
	"ms-ordering/internal/dashboard"
	dashboard_api "ms-ordering/internal/dashboard/api"
	"ms-ordering/internal/database/migrations"
	"ms-ordering/internal/kafka"
	"ms-ordering/internal/ledger"
	ledger_api "ms-ordering/internal/ledger/api"
	ledgerdb "ms-ordering/internal/ledger/db"
	ledgerredis "ms-ordering/internal/ledger/redis"
	"ms-ordering/internal/logger"
	"ms-ordering/internal/sse"
	"ms-ordering/internal/tables"
)

func main() {
	_ = godotenv.Load() // loads .env if present

	cfg := config.Load()
	appLogger := logger.NewLogger()
	defer appLogger.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN()))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		appLogger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.MigrateUp(); err != nil {
			appLogger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		appLogger.Info("DATABASE", "Migrations up to date")
	}

	// --- Redis (idempotency guard + dashboard cache; the ledger runs
	// without them if Redis is down) ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	var idemGuard ledger.IdempotencyGuard
	var snapshotCache *redis.Client
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Warn("REDIS", fmt.Sprintf("Redis unreachable (%v); idempotency guard and snapshot cache disabled", err))
	} else {
		idemGuard = ledgerredis.NewGuard(redisClient, cfg.Redis.IdempotencyTTL)
		snapshotCache = redisClient
	}

	// --- Kafka ---
	topics := kafka.DefaultTopics()
	var publisher ledger.KafkaPublisher
	switch {
	case !cfg.Kafka.Enabled:
		appLogger.Info("KAFKA", "Kafka disabled; ledger events will not be published")
	case cfg.Kafka.MockMode:
		appLogger.Info("KAFKA", "Kafka mock mode; ledger events logged only")
		publisher = &kafka.LogPublisher{Logger: appLogger}
	default:
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{
			topics.OrderCreated, topics.OrderStatus, topics.SessionSettled,
		}); err != nil {
			appLogger.Warn("KAFKA", fmt.Sprintf("Topic bootstrap failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = kafka.NewEventPublisher(producer, topics)
	}

	// --- Services ---
	emitter := sse.NewLedgerEventEmitter()
	ledgerService := ledger.NewService(&ledgerdb.DB{Bun: bunDB}, publisher, idemGuard, emitter, appLogger)
	tableService := tables.NewService(&tables.DB{Bun: bunDB})
	dashboardService := dashboard.NewService(dashboard.NewDB(bunDB), snapshotCache, cfg.Redis.SnapshotTTL, appLogger)

	handler := ledger_api.NewHandler(ledgerService, tableService, appLogger)
	dashboardHandler := dashboard_api.NewHandler(dashboardService, emitter, appLogger)

	// --- Router ---
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tables", handler.ListTables)
		r.Post("/tables", handler.CreateTable)
		r.Get("/tables/{tableID}", handler.GetTableView)
		r.Delete("/tables/{tableID}", handler.DeleteTable)
		r.Post("/tables/{tableID}/orders", handler.AppendOrder)
		r.Post("/tables/{tableID}/session", handler.OpenSession)
		r.Post("/tables/{tableID}/settle", handler.SettleTable)
		r.Patch("/orders/{orderID}/status", handler.AdvanceOrderStatus)
		r.Get("/dashboard", dashboardHandler.GetSnapshot)
		r.Get("/dashboard/stream", dashboardHandler.StreamEvents)
	})

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("SERVER", fmt.Sprintf("Table ledger service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("SERVER", "Shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLogger.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLogger.Info("SERVER", "Server exited gracefully")
}
