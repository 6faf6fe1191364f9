package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "erp-ledger/internal/adapters/web"
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
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	svc, closeSvc, err := app.Build(ctx, cfg, pool, log)
	if err != nil {
		log.Fatalf("wiring: %v", err)
	}
	defer closeSvc()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           webAdapter.NewHandler(svc, cfg.Server.AllowedOrigins, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	log.WithFields(logrus.Fields{
		"port":     cfg.Server.Port,
		"timezone": cfg.Books.Location.String(),
	}).Info("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Info("server stopped")
}
