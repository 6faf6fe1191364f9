// migrate applies migrations/NNN_description.sql files in order, recording
// each in schema_migrations with its checksum.
//
// Usage: go run ./cmd/migrate [-dir migrations]
package main

import (
	"context"
	"flag"
	"time"

	"erp-ledger/internal/config"
	"erp-ledger/internal/db"
	"erp-ledger/internal/logging"

	"github.com/sirupsen/logrus"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNN_description.sql files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := db.NewPool(connCtx, cfg.Database.URL)
	cancel()
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, *dir, log)
	if err != nil {
		pool.Close()
		log.Fatalf("migrate: %v", err)
	}
	log.WithField("applied", len(applied)).Info("all migrations processed")
}
