// Package main is the entry point for the flowvault API server.
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

	"flowvault/internal/core/tx"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/distribution"
	"flowvault/internal/domain/ledger"
	"flowvault/internal/domain/projection"
	"flowvault/internal/domain/reconciliation"
	"flowvault/internal/domain/transfer"
	v1 "flowvault/internal/infrastructure/http/v1"
	"flowvault/internal/infrastructure/storage/memory"
	"flowvault/internal/infrastructure/storage/postgres"
	"flowvault/pkg/logger"
)

// repos groups the storage implementations behind one seam so the server can
// run on Postgres or fully in memory.
type repos struct {
	accounts  account.Repository
	movements ledger.Repository
	batches   distribution.Repository
	transfers transfer.Repository
	cortes    reconciliation.Repository
	txManager tx.ReadOnlyManager
	pool      *postgres.Pool
}

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

	ctx := context.Background()
	log.Info("starting flowvault server")

	store := getEnv("STORE", "postgres")
	r, err := buildRepos(ctx, store)
	if err != nil {
		log.Fatalw("failed to initialize storage", "store", store, "error", err)
	}
	if r.pool != nil {
		defer r.pool.Close()
	}
	log.Infow("storage initialized", "store", store)

	gates := account.NewGates()
	registry := account.NewRegistry(r.accounts, r.movements, r.txManager, gates)
	ledgerSvc := ledger.NewService(r.movements)
	projector := projection.NewProjector(r.accounts, r.movements, r.txManager)
	transferSvc := transfer.NewService(registry, r.transfers)
	reconciliationSvc := reconciliation.NewService(r.accounts, r.movements, r.cortes, r.txManager, gates)

	defaultRules, err := distribution.ParseRules(getEnv("SPLIT_RULES", "boveda_monte:63,fletes:5,utilidades:32"))
	if err != nil {
		log.Fatalw("invalid SPLIT_RULES", "error", err)
	}
	engine := distribution.NewEngine(registry, r.batches, defaultRules)

	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		Pool:           r.pool,
		Registry:       registry,
		Ledger:         ledgerSvc,
		Projector:      projector,
		Engine:         engine,
		Transfers:      transferSvc,
		Reconciliation: reconciliationSvc,
	})

	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port, "store", store)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

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

	log.Info("server stopped")
}

func buildRepos(ctx context.Context, store string) (*repos, error) {
	switch store {
	case "memory":
		s := memory.NewStore()
		return &repos{
			accounts:  memory.NewAccountRepo(s),
			movements: memory.NewMovementRepo(s),
			batches:   memory.NewBatchRepo(s),
			transfers: memory.NewTransferRepo(s),
			cortes:    memory.NewCorteRepo(s),
			txManager: memory.NewTxManager(s),
		}, nil

	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL not set")
		}

		if err := postgres.RunMigrations(dsn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}

		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
		if err != nil {
			return nil, err
		}

		txm := postgres.NewTxManager(pool)
		return &repos{
			accounts:  postgres.NewAccountRepo(txm),
			movements: postgres.NewMovementRepo(txm),
			batches:   postgres.NewBatchRepo(txm),
			transfers: postgres.NewTransferRepo(txm),
			cortes:    postgres.NewCorteRepo(txm),
			txManager: txm,
			pool:      pool,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", store)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
