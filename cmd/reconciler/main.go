// Package main is the entry point for the flowvault drift reconciler.
// It periodically refolds every account's ledger and compares the result
// against the cached balance, logging any drift it finds.
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
	"golang.org/x/sync/errgroup"

	"flowvault/internal/domain/account"
	"flowvault/internal/domain/projection"
	"flowvault/internal/infrastructure/storage/postgres"
	"flowvault/internal/obs"
	"flowvault/pkg/logger"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	accounts := postgres.NewAccountRepo(txm)
	movements := postgres.NewMovementRepo(txm)
	projector := projection.NewProjector(accounts, movements, txm)

	metricsAddr := getEnv("METRICS_ADDR", ":9091")
	go func() {
		if err := http.ListenAndServe(metricsAddr, obs.Handler()); err != nil && err != http.ErrServerClosed {
			log.Errorw("metrics listener failed", "error", err)
		}
	}()

	interval := getEnvDuration("VERIFY_INTERVAL", 15*time.Minute)
	log.Infow("starting drift reconciler", "interval", interval, "metrics_addr", metricsAddr)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down reconciler...")
		cancel()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First sweep immediately, then on every tick.
	if err := verifyAll(ctx, accounts, projector, log); err != nil && ctx.Err() == nil {
		log.Errorw("verification sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("reconciler stopped")
			return
		case <-ticker.C:
			if err := verifyAll(ctx, accounts, projector, log); err != nil && ctx.Err() == nil {
				log.Errorw("verification sweep failed", "error", err)
			}
		}
	}
}

// verifyAll checks every account concurrently, a few at a time.
func verifyAll(ctx context.Context, accounts account.Repository, projector *projection.Projector, log *logger.Logger) error {
	all, err := accounts.List(ctx, true)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, acc := range all {
		acc := acc
		g.Go(func() error {
			drift, err := projector.Verify(gctx, acc.ID)
			if err != nil {
				return fmt.Errorf("verify %s: %w", acc.Code, err)
			}
			bal, _ := drift.Cached.Float64()
			obs.AccountBalance.WithLabelValues(acc.Code, acc.Currency).Set(bal)
			if !drift.InSync() {
				obs.DriftDetected.Inc()
				log.Warnw("balance drift detected",
					"account", acc.Code,
					"cached", drift.Cached.String(),
					"recomputed", drift.Recomputed.String(),
				)
				return nil
			}
			log.Debugw("account in sync", "account", acc.Code)
			return nil
		})
	}

	return g.Wait()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
