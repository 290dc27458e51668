// Package main is the entry point for the fuelbridge API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fuelbridge/internal/erp"
	v1 "fuelbridge/internal/infrastructure/http/v1"
	"fuelbridge/internal/infrastructure/storage/postgres"
	"fuelbridge/pkg/logger"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting fuelbridge server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	eventLog, err := postgres.NewEventLog(txManager)
	if err != nil {
		log.Fatalw("failed to initialize event log", "error", err)
	}

	// --- ERP client ---
	erpCfg := erp.DefaultConfig(
		mustEnv("ERP_BASE_URL"),
		mustEnv("ERP_COMPANY_DB"),
		mustEnv("ERP_USERNAME"),
		mustEnv("ERP_PASSWORD"),
	)
	if status := getEnvInt("ERP_EXPIRED_STATUS", 0); status > 0 {
		erpCfg.ExpiredStatus = status
	}
	if timeout := getEnvDuration("ERP_TIMEOUT", 0); timeout > 0 {
		erpCfg.Timeout = timeout
	}
	erpCfg.InsecureSkipVerify = getEnv("ERP_INSECURE_SKIP_VERIFY", "false") == "true"

	erpClient, err := erp.NewClient(erpCfg, log)
	if err != nil {
		log.Fatalw("failed to initialize erp client", "error", err)
	}
	// Sessions are established lazily; a cold start must not depend on the ERP.
	log.Infow("erp client initialized", "base_url", erpCfg.BaseURL, "company_db", erpCfg.CompanyDB)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:      pool,
		TxManager: txManager,
		EventLog:  eventLog,
		ERPClient: erpClient,
		Logger:    log,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	erpClient.Logout(shutdownCtx)

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
