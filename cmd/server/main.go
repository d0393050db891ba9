package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shiw2807/payments-service/internal/auth"
	"github.com/Shiw2807/payments-service/internal/config"
	"github.com/Shiw2807/payments-service/internal/db"
	"github.com/Shiw2807/payments-service/internal/domain"
	"github.com/Shiw2807/payments-service/internal/events"
	"github.com/Shiw2807/payments-service/internal/handlers"
	"github.com/Shiw2807/payments-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Pick the ledger backend: PostgreSQL when DATABASE_URL is set,
	// in-memory otherwise.
	var ledger domain.Ledger
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to create database pool: %v", err)
		}
		defer pool.Close()
		ledger = db.NewLedger(pool.Pool)
		log.Println("postgres ledger initialized")
	} else {
		ledger = store.NewMemoryLedger()
		log.Println("DATABASE_URL not set, using in-memory ledger")
	}

	// Optional event publisher
	var publisher domain.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey)
		if err != nil {
			log.Fatalf("failed to create rabbitmq publisher: %v", err)
		}
		defer rabbitPublisher.Close()
		publisher = rabbitPublisher
	} else {
		log.Println("RABBITMQ_URL not set, event publishing disabled")
	}

	gate := auth.NewTokenAuthorizer(cfg.Payments.APITokens)
	rules := domain.NewRules(
		decimal.NewFromFloat(cfg.Payments.MaxAmount),
		cfg.Payments.AllowedCurrencies,
		cfg.Payments.AllowedPaymentMethods,
	)

	paymentService := domain.NewPaymentService(ledger, gate, rules, publisher)
	log.Println("domain services initialized")

	handler := handlers.NewHandler(paymentService)
	router := handlers.NewRouter(handler)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("payments-service HTTP server starting on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	log.Println("HTTP server stopped")
}
