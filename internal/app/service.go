package app

import (
	"context"

	"erp-ledger/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
//
// Every request is validated before any store access; validation failures
// wrap core.ErrInvalidInput.
type ApplicationService interface {
	// GetGeneralLedger projects the month's events to ledger rows. account
	// optionally restricts the rows to one account.
	GetGeneralLedger(ctx context.Context, req PeriodRequest, account string) (*core.GeneralLedger, error)

	// GetTrialBalance nets balances strictly before the first instant of the
	// following month.
	GetTrialBalance(ctx context.Context, req PeriodRequest) (*core.TrialBalance, error)

	// GetBalanceSheet returns the position at the end of the month.
	GetBalanceSheet(ctx context.Context, req PeriodRequest) (*core.BalanceSheet, error)

	GetCashFlow(ctx context.Context, req PeriodRequest) (*core.CashFlowStatement, error)
	GetProfitAndLoss(ctx context.Context, req PeriodRequest) (*core.ProfitAndLoss, error)
	GetReconciliation(ctx context.Context, req PeriodRequest) (*core.Reconciliation, error)

	// GetAlerts evaluates expiry and low-stock alerts as of now.
	GetAlerts(ctx context.Context) (*core.Alerts, error)

	GetExceptionReport(ctx context.Context, req PeriodRequest) (*core.ExceptionReport, error)
	GetAgingReport(ctx context.Context) (*core.AgingReport, error)

	// GetPartyPerformance summarizes the customers invoiced in the month.
	GetPartyPerformance(ctx context.Context, req PeriodRequest) (*core.PartyPerformanceReport, error)

	ListProducts(ctx context.Context) (*ProductListResult, error)

	// PreviewCogs prices a prospective sale without changing stock.
	PreviewCogs(ctx context.Context, req PreviewCogsRequest) (*core.CogsResult, error)

	// CreateSale records a sales invoice, consuming stock FIFO. Concurrent
	// submissions with the same idempotency key are processed at most once.
	CreateSale(ctx context.Context, req CreateSaleRequest) (*core.SaleOutcome, error)

	AddPurchaseBatch(ctx context.Context, req AddBatchRequest) (*core.Batch, error)

	// RecordPayment settles part or all of a receivable or payable.
	RecordPayment(ctx context.Context, req PaymentRequest) (*core.Settlement, error)

	RecordExpense(ctx context.Context, req ExpenseRequest) (*core.Expense, error)

	// VerifyBooks checks batch quantities against stock movements and the
	// month's ledger for balance.
	VerifyBooks(ctx context.Context, req PeriodRequest) (*VerifyResult, error)

	// AskInsights answers a question about the current month's figures.
	// Fails with core.ErrUnavailable when no summarizer is configured.
	AskInsights(ctx context.Context, req InsightsRequest) (*InsightsResult, error)
}
