// Package main provides a CLI tool for seeding the canonical vault accounts.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"flowvault/internal/core/apperror"
	"flowvault/internal/domain/account"
	"flowvault/internal/infrastructure/storage/postgres"
	"flowvault/pkg/logger"
)

// canonical is the standard vault layout. Seeding is idempotent: accounts
// that already exist are left untouched.
var canonical = []struct {
	code     string
	name     string
	currency string
	kind     account.Kind
}{
	{"boveda_monte", "Bóveda Monte", "MXN", account.KindVault},
	{"utilidades", "Utilidades", "MXN", account.KindVault},
	{"fletes", "Fletes", "MXN", account.KindVault},
	{"azteca", "Azteca", "MXN", account.KindOperational},
	{"leftie", "Leftie", "MXN", account.KindOperational},
	{"profit", "Profit", "MXN", account.KindReceivablePool},
	{"boveda_usa", "Bóveda USA", "USD", account.KindVault},
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	if err := postgres.RunMigrations(dbURL); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txm := postgres.NewTxManager(pool)
	repo := postgres.NewAccountRepo(txm)

	created := 0
	for _, c := range canonical {
		acc := account.NewAccount(c.code, c.name, c.currency, c.kind)
		err := repo.Create(ctx, acc)
		switch {
		case err == nil:
			created++
			log.Infow("account created", "code", c.code, "kind", c.kind)
		case apperror.IsDuplicate(err):
			log.Infow("account already exists", "code", c.code)
		default:
			log.Fatalw("failed to create account", "code", c.code, "error", err)
		}
	}

	log.Infow("seed complete", "created", created, "total", len(canonical))
}
