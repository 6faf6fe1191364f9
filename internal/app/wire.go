package app

import (
	"context"
	"fmt"

	"erp-ledger/internal/ai"
	"erp-ledger/internal/config"
	"erp-ledger/internal/core"
	"erp-ledger/internal/guard"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Build wires the domain services over pool according to cfg. The returned
// closer releases the submission guard; the caller still owns pool.
func Build(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log logrus.FieldLogger) (ApplicationService, func(), error) {
	inventory := core.NewInventoryService(pool, log)
	rules := core.NewRuleEngine(cfg.Books.ExpenseAccounts)

	g := guard.NewNoopGuard()
	if cfg.Redis.Address != "" {
		var err error
		g, err = guard.NewRedisGuard(ctx, cfg.Redis.Address, cfg.Redis.LockTTL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("submission guard: %w", err)
		}
	}

	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY is not set; insights are disabled")
	}

	svc := NewAppService(Deps{
		Reporting:   core.NewReportingService(core.NewPgSnapshotter(pool), rules),
		Inventory:   inventory,
		Sales:       core.NewSalesService(pool, inventory, core.NewDocumentService(), cfg.Books.SellerState, log),
		Settlements: core.NewSettlementService(pool, log),
		Expenses:    core.NewExpenseService(pool, log),
		Guard:       g,
		Summarizer:  ai.NewSummarizer(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		Location:    cfg.Books.Location,
		Log:         log,
	})
	closer := func() {
		if err := g.Close(); err != nil {
			log.WithError(err).Warn("closing submission guard")
		}
	}
	return svc, closer, nil
}
