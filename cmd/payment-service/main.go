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

	"ms-payments/internal/config"
	"ms-payments/internal/kafka"
	"ms-payments/internal/logger"
	"ms-payments/internal/payment"
	"ms-payments/internal/payment/api"
	"ms-payments/internal/settings"
	"ms-payments/internal/tickets"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	log := logger.NewLogger()
	defer log.Close()

	cfg := config.Load()

	// --- PostgreSQL Setup ---
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	connector := pgdriver.NewConnector(pgdriver.WithDSN(dsn))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	// --- Stores ---
	settingsStore := settings.NewBunStore(bunDB, log)
	if err := settingsStore.Migrate(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to migrate settings: %v", err))
	}
	settingsManager := settings.NewManager(settingsStore, log)

	ticketDB := &tickets.DB{Bun: bunDB, Log: log}
	if err := ticketDB.Migrate(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to migrate tickets: %v", err))
	}

	// --- Redis Setup (OAuth state tokens) ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	stateStore := payment.NewRedisStateStore(redisClient, cfg.Connect.StateTTL)

	// --- Kafka Setup (payment lifecycle events) ---
	var events payment.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		events = producer
	} else {
		log.Warn("KAFKA", "Kafka disabled, payment events will not be published")
	}

	// --- Payment Manager ---
	gateway := payment.NewStripeGateway(log)
	manager := payment.NewManager(settingsManager, ticketDB, gateway, stateStore, events, log)
	handler := &api.Handler{
		Manager:    manager,
		Classifier: payment.NewClassifier(log),
		Log:        log,
	}

	// --- Setup Router ---
	r := chi.NewRouter()

	r.Post("/api/v1/payments/charge", handler.Charge)
	r.Post("/api/v1/payments/refund", handler.Refund)
	r.Post("/api/v1/payments/info", handler.Info)
	r.Get("/api/v1/connect/authorize", handler.ConnectAuthorize)
	r.Get("/api/v1/connect/callback", handler.ConnectCallback)
	r.Post("/api/v1/webhooks/stripe", handler.Webhook)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Payment service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("SERVER", "Server exited gracefully")
}
