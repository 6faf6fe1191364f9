package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Snapshotter runs fn against one consistent, read-only view of the store.
type Snapshotter interface {
	Snapshot(ctx context.Context, fn func(EventReader) error) error
}

type pgSnapshotter struct {
	pool *pgxpool.Pool
}

// NewPgSnapshotter opens a REPEATABLE READ, READ ONLY transaction per snapshot
// so every query of one report sees the same data.
func NewPgSnapshotter(pool *pgxpool.Pool) Snapshotter {
	return &pgSnapshotter{pool: pool}
}

func (s *pgSnapshotter) Snapshot(ctx context.Context, fn func(EventReader) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return storeErr("begin snapshot", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(NewPgStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("close snapshot", err)
	}
	return nil
}

// ReportingService recomputes every statement from raw events on each call.
// Nothing is cached and nothing is written.
type ReportingService interface {
	// GetGeneralLedger projects events in w to debit/credit rows. account
	// optionally filters rows to one account and fills RunningBalance.
	GetGeneralLedger(ctx context.Context, w Window, account string) (*GeneralLedger, error)
	// GetTrialBalance nets party and expense balances strictly before cutoff.
	GetTrialBalance(ctx context.Context, cutoff time.Time) (*TrialBalance, error)
	GetBalanceSheet(ctx context.Context, cutoff time.Time) (*BalanceSheet, error)
	GetCashFlow(ctx context.Context, w Window) (*CashFlowStatement, error)
	GetProfitAndLoss(ctx context.Context, w Window) (*ProfitAndLoss, error)
	GetReconciliation(ctx context.Context, w Window) (*Reconciliation, error)
	GetAlerts(ctx context.Context, now time.Time) (*Alerts, error)
	GetExceptionReport(ctx context.Context, w Window, now time.Time) (*ExceptionReport, error)
	GetAgingReport(ctx context.Context, now time.Time) (*AgingReport, error)
	// GetPartyPerformance summarizes customers invoiced in w, with payment
	// delays measured up to now for unpaid invoices.
	GetPartyPerformance(ctx context.Context, w Window, now time.Time) (*PartyPerformanceReport, error)
	// VerifyStock compares remaining batch quantities with stock movements.
	VerifyStock(ctx context.Context) ([]StockCheck, error)
}

type reportingService struct {
	snap  Snapshotter
	rules RuleEngine
}

func NewReportingService(snap Snapshotter, rules RuleEngine) ReportingService {
	return &reportingService{snap: snap, rules: rules}
}

func validWindow(w Window) error {
	if w.End.IsZero() || !w.Start.Before(w.End) {
		return invalidInput("window start %s must precede end %s",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

func validCutoff(t time.Time) error {
	if t.IsZero() {
		return invalidInput("cutoff is required")
	}
	return nil
}

// books loads a snapshot covering w.
func (s *reportingService) books(ctx context.Context, w Window) (Books, error) {
	var b Books
	err := s.snap.Snapshot(ctx, func(r EventReader) error {
		var err error
		b, err = r.LoadBooks(ctx, w)
		return err
	})
	return b, err
}

func (s *reportingService) GetGeneralLedger(ctx context.Context, w Window, account string) (*GeneralLedger, error) {
	if err := validWindow(w); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, w)
	if err != nil {
		return nil, err
	}
	return ProjectLedger(b, w, s.rules, account), nil
}

func (s *reportingService) GetTrialBalance(ctx context.Context, cutoff time.Time) (*TrialBalance, error) {
	if err := validCutoff(cutoff); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, Window{End: cutoff})
	if err != nil {
		return nil, err
	}
	return BuildTrialBalance(b, cutoff), nil
}

func (s *reportingService) GetBalanceSheet(ctx context.Context, cutoff time.Time) (*BalanceSheet, error) {
	if err := validCutoff(cutoff); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, Window{End: cutoff})
	if err != nil {
		return nil, err
	}
	return BuildBalanceSheet(b, cutoff), nil
}

func (s *reportingService) GetCashFlow(ctx context.Context, w Window) (*CashFlowStatement, error) {
	if err := validWindow(w); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, w)
	if err != nil {
		return nil, err
	}
	return BuildCashFlow(b, w, s.rules), nil
}

func (s *reportingService) GetProfitAndLoss(ctx context.Context, w Window) (*ProfitAndLoss, error) {
	if err := validWindow(w); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, w)
	if err != nil {
		return nil, err
	}
	return BuildProfitAndLoss(b, w), nil
}

func (s *reportingService) GetReconciliation(ctx context.Context, w Window) (*Reconciliation, error) {
	if err := validWindow(w); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, w)
	if err != nil {
		return nil, err
	}
	return BuildReconciliation(b, w, s.rules), nil
}

func (s *reportingService) GetAlerts(ctx context.Context, now time.Time) (*Alerts, error) {
	if err := validCutoff(now); err != nil {
		return nil, err
	}
	var alerts *Alerts
	err := s.snap.Snapshot(ctx, func(r EventReader) error {
		products, err := r.ListProducts(ctx)
		if err != nil {
			return err
		}
		batches, err := r.ListAllBatches(ctx)
		if err != nil {
			return err
		}
		alerts = EvaluateAlerts(products, batches, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *reportingService) GetExceptionReport(ctx context.Context, w Window, now time.Time) (*ExceptionReport, error) {
	if err := validWindow(w); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, Window{Start: w.Previous().Start, End: maxTime(w.End, now)})
	if err != nil {
		return nil, err
	}
	return BuildExceptionReport(b, w, now), nil
}

func (s *reportingService) GetAgingReport(ctx context.Context, now time.Time) (*AgingReport, error) {
	if err := validCutoff(now); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, Window{Start: now, End: now.Add(time.Nanosecond)})
	if err != nil {
		return nil, err
	}
	return BuildAgingReport(b, now), nil
}

func (s *reportingService) GetPartyPerformance(ctx context.Context, w Window, now time.Time) (*PartyPerformanceReport, error) {
	if err := validWindow(w); err != nil {
		return nil, err
	}
	if err := validCutoff(now); err != nil {
		return nil, err
	}
	b, err := s.books(ctx, w)
	if err != nil {
		return nil, err
	}
	return BuildPartyPerformance(b, w, now), nil
}

func (s *reportingService) VerifyStock(ctx context.Context) ([]StockCheck, error) {
	var checks []StockCheck
	err := s.snap.Snapshot(ctx, func(r EventReader) error {
		var err error
		checks, err = r.ListStockChecks(ctx)
		return err
	})
	return checks, err
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
