// app runs one report or check against the books and exits.
//
// Usage: go run ./cmd/app <command> [args]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"erp-ledger/internal/adapters/cli"
	"erp-ledger/internal/app"
	"erp-ledger/internal/config"
	"erp-ledger/internal/db"
	"erp-ledger/internal/logging"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	// Diagnostics go to stderr so report output stays clean.
	log := logging.New(cfg.Log.Level, "text")
	log.SetOutput(os.Stderr)
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}

	svc, closeSvc, err := app.Build(ctx, cfg, pool, log)
	if err != nil {
		pool.Close()
		log.Fatalf("wiring: %v", err)
	}

	err = cli.Run(ctx, svc, os.Args[1:], os.Stdout)
	closeSvc()
	pool.Close()

	switch {
	case err == nil:
	case errors.Is(err, cli.ErrUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
