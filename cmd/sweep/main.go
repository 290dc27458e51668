// Package main is the reconciliation sweep worker. It backfills ledger
// records whose remote document was created but whose local stage number
// was never committed, then exits. Intended to run on a schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"fuelbridge/internal/domain/chain"
	"fuelbridge/internal/erp"
	"fuelbridge/internal/infrastructure/storage/postgres"
	"fuelbridge/internal/infrastructure/storage/postgres/invoice_repo"
	"fuelbridge/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), getEnvDuration("SWEEP_TIMEOUT", 5*time.Minute))
	defer cancel()

	log.Info("starting reconciliation sweep")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	eventLog, err := postgres.NewEventLog(txManager)
	if err != nil {
		log.Fatalw("failed to initialize event log", "error", err)
	}

	erpCfg := erp.DefaultConfig(
		mustEnv("ERP_BASE_URL"),
		mustEnv("ERP_COMPANY_DB"),
		mustEnv("ERP_USERNAME"),
		mustEnv("ERP_PASSWORD"),
	)
	if status := getEnvInt("ERP_EXPIRED_STATUS", 0); status > 0 {
		erpCfg.ExpiredStatus = status
	}
	erpCfg.InsecureSkipVerify = getEnv("ERP_INSECURE_SKIP_VERIFY", "false") == "true"

	erpClient, err := erp.NewClient(erpCfg, log)
	if err != nil {
		log.Fatalw("failed to initialize erp client", "error", err)
	}
	defer erpClient.Logout(context.Background())

	sweeper := chain.NewSweeper(erpClient, invoice_repo.NewRepo(txManager), eventLog)

	result, err := sweeper.Run(ctx)
	if err != nil {
		log.Fatalw("sweep failed", "error", err)
	}

	log.Infow("sweep finished",
		"orders_backfilled", result.OrdersBackfilled,
		"receipts_backfilled", result.ReceiptsBackfilled,
	)
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
