package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"erp-ledger/internal/ai"
	"erp-ledger/internal/app"
	"erp-ledger/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeReporting struct {
	windows []core.Window
	cutoffs []time.Time
	checks  []core.StockCheck
	balance bool
}

func (f *fakeReporting) GetGeneralLedger(_ context.Context, w core.Window, account string) (*core.GeneralLedger, error) {
	f.windows = append(f.windows, w)
	return &core.GeneralLedger{Window: w, Account: account, IsBalanced: f.balance}, nil
}

func (f *fakeReporting) GetTrialBalance(_ context.Context, cutoff time.Time) (*core.TrialBalance, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return &core.TrialBalance{AsOf: cutoff}, nil
}

func (f *fakeReporting) GetBalanceSheet(_ context.Context, cutoff time.Time) (*core.BalanceSheet, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return &core.BalanceSheet{AsOf: cutoff}, nil
}

func (f *fakeReporting) GetCashFlow(_ context.Context, w core.Window) (*core.CashFlowStatement, error) {
	f.windows = append(f.windows, w)
	return &core.CashFlowStatement{Window: w}, nil
}

func (f *fakeReporting) GetProfitAndLoss(_ context.Context, w core.Window) (*core.ProfitAndLoss, error) {
	f.windows = append(f.windows, w)
	return &core.ProfitAndLoss{Window: w, Revenue: decimal.NewFromInt(1000)}, nil
}

func (f *fakeReporting) GetReconciliation(_ context.Context, w core.Window) (*core.Reconciliation, error) {
	f.windows = append(f.windows, w)
	return &core.Reconciliation{Window: w}, nil
}

func (f *fakeReporting) GetAlerts(_ context.Context, now time.Time) (*core.Alerts, error) {
	return &core.Alerts{GeneratedAt: now}, nil
}

func (f *fakeReporting) GetExceptionReport(_ context.Context, w core.Window, _ time.Time) (*core.ExceptionReport, error) {
	f.windows = append(f.windows, w)
	return &core.ExceptionReport{Window: w}, nil
}

func (f *fakeReporting) GetAgingReport(_ context.Context, now time.Time) (*core.AgingReport, error) {
	return &core.AgingReport{AsOf: now}, nil
}

func (f *fakeReporting) GetPartyPerformance(_ context.Context, w core.Window, now time.Time) (*core.PartyPerformanceReport, error) {
	f.windows = append(f.windows, w)
	return &core.PartyPerformanceReport{Window: w, AsOf: now}, nil
}

func (f *fakeReporting) VerifyStock(context.Context) ([]core.StockCheck, error) { return f.checks, nil }

type fakeInventory struct {
	purchase *core.PurchaseBatchInput
}

func (f *fakeInventory) ListProducts(context.Context) ([]core.Product, error) {
	return []core.Product{{ID: 1, Name: "Gauze"}}, nil
}

func (f *fakeInventory) AllocateCogs(_ context.Context, productID, qty int) (*core.CogsResult, error) {
	return &core.CogsResult{QuantityRequested: qty}, nil
}

func (f *fakeInventory) AddPurchaseBatch(_ context.Context, in core.PurchaseBatchInput) (*core.Batch, error) {
	f.purchase = &in
	return &core.Batch{ID: 1, ProductID: in.ProductID, Quantity: in.Quantity}, nil
}

func (f *fakeInventory) ApplyConsumptionTx(context.Context, pgx.Tx, []core.BatchConsumption) error {
	return nil
}

func (f *fakeInventory) AllocateTx(context.Context, pgx.Tx, int, int) (*core.CogsResult, error) {
	return &core.CogsResult{}, nil
}

type fakeSales struct {
	got   []core.SaleInput
	inUse func() bool
}

func (f *fakeSales) CreateSalesInvoice(_ context.Context, in core.SaleInput) (*core.SaleOutcome, error) {
	f.got = append(f.got, in)
	if f.inUse != nil && !f.inUse() {
		return nil, fmt.Errorf("sale ran without holding the submission lock")
	}
	return &core.SaleOutcome{Invoice: core.SalesInvoice{InvoiceNumber: "INV-2026-00001"}}, nil
}

type fakeSettlements struct {
	kind string
	id   int
}

func (f *fakeSettlements) RecordReceivablePayment(_ context.Context, id int, amount decimal.Decimal, _ time.Time) (*core.Settlement, error) {
	f.kind, f.id = "receivable", id
	return &core.Settlement{ID: id, OutstandingAmount: decimal.Zero}, nil
}

func (f *fakeSettlements) RecordPayablePayment(_ context.Context, id int, amount decimal.Decimal, _ time.Time) (*core.Settlement, error) {
	f.kind, f.id = "payable", id
	return &core.Settlement{ID: id, OutstandingAmount: decimal.Zero}, nil
}

type fakeExpenses struct {
	got *core.ExpenseInput
}

func (f *fakeExpenses) RecordExpense(_ context.Context, in core.ExpenseInput) (*core.Expense, error) {
	f.got = &in
	return &core.Expense{ID: 1, Category: in.Category, Amount: in.Amount}, nil
}

type fakeGuard struct {
	held map[string]bool
	busy bool
}

func (g *fakeGuard) Acquire(_ context.Context, key string) (func(), error) {
	if g.busy || g.held[key] {
		return nil, fmt.Errorf("submission %s is already being processed: %w", key, core.ErrInvalidInput)
	}
	g.held[key] = true
	return func() { delete(g.held, key) }, nil
}

func (g *fakeGuard) Close() error { return nil }

type fakeSummarizer struct {
	facts any
}

func (f *fakeSummarizer) Summarize(_ context.Context, question string, facts any) (*ai.Insight, error) {
	f.facts = facts
	return &ai.Insight{Summary: "ok: " + question, Confidence: 0.9}, nil
}

type fixture struct {
	svc         app.ApplicationService
	reporting   *fakeReporting
	inventory   *fakeInventory
	sales       *fakeSales
	settlements *fakeSettlements
	expenses    *fakeExpenses
	guard       *fakeGuard
	summarizer  *fakeSummarizer
	now         time.Time
}

func newFixture(withSummarizer bool) *fixture {
	log, _ := test.NewNullLogger()
	f := &fixture{
		reporting:   &fakeReporting{balance: true},
		inventory:   &fakeInventory{},
		sales:       &fakeSales{},
		settlements: &fakeSettlements{},
		expenses:    &fakeExpenses{},
		guard:       &fakeGuard{held: map[string]bool{}},
		now:         time.Date(2026, 3, 31, 20, 0, 0, 0, time.UTC), // already April in IST
	}
	deps := app.Deps{
		Reporting:   f.reporting,
		Inventory:   f.inventory,
		Sales:       f.sales,
		Settlements: f.settlements,
		Expenses:    f.expenses,
		Guard:       f.guard,
		Location:    ist,
		Log:         log,
		Now:         func() time.Time { return f.now },
	}
	if withSummarizer {
		f.summarizer = &fakeSummarizer{}
		deps.Summarizer = f.summarizer
	}
	f.svc = app.NewAppService(deps)
	return f
}

// ── Reports ───────────────────────────────────────────────────────────────────

func TestReports_InvalidPeriod(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	for _, p := range []app.PeriodRequest{{Year: 2026, Month: 0}, {Year: 2026, Month: 13}, {Year: 1899, Month: 1}, {Year: 2101, Month: 1}} {
		_, err := f.svc.GetCashFlow(ctx, p)
		assert.ErrorIs(t, err, core.ErrInvalidInput, "%+v", p)
		_, err = f.svc.GetTrialBalance(ctx, p)
		assert.ErrorIs(t, err, core.ErrInvalidInput, "%+v", p)
		_, err = f.svc.GetPartyPerformance(ctx, p)
		assert.ErrorIs(t, err, core.ErrInvalidInput, "%+v", p)
	}
	assert.Empty(t, f.reporting.windows)
	assert.Empty(t, f.reporting.cutoffs)
}

func TestReports_MonthBoundariesUseLocation(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	march := app.PeriodRequest{Year: 2026, Month: 3}

	pl, err := f.svc.GetProfitAndLoss(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, ist), pl.Window.Start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, ist), pl.Window.End)

	tb, err := f.svc.GetTrialBalance(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, ist), tb.AsOf)

	bs, err := f.svc.GetBalanceSheet(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, tb.AsOf, bs.AsOf)

	gl, err := f.svc.GetGeneralLedger(ctx, march, core.AccountCash)
	require.NoError(t, err)
	assert.Equal(t, core.AccountCash, gl.Account)

	perf, err := f.svc.GetPartyPerformance(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, pl.Window, perf.Window)
	assert.Equal(t, f.now, perf.AsOf)
}

func TestVerifyBooks(t *testing.T) {
	f := newFixture(false)
	f.reporting.checks = []core.StockCheck{{ProductID: 1, BatchQty: 5, MovementQty: 5}, {ProductID: 2, BatchQty: 1, MovementQty: 4}}

	res, err := f.svc.VerifyBooks(context.Background(), app.PeriodRequest{Year: 2026, Month: 3})
	require.NoError(t, err)
	assert.False(t, res.StockOK)
	assert.True(t, res.LedgerBalanced)
	assert.False(t, res.OK)

	f.reporting.checks = f.reporting.checks[:1]
	res, err = f.svc.VerifyBooks(context.Background(), app.PeriodRequest{Year: 2026, Month: 3})
	require.NoError(t, err)
	assert.True(t, res.OK)
}

// ── Writes ────────────────────────────────────────────────────────────────────

func TestCreateSale_Validation(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	line := app.SaleLineRequest{ProductID: 1, Quantity: 2, PricePerItem: "10.50"}

	tests := []struct {
		name string
		req  app.CreateSaleRequest
	}{
		{"no party", app.CreateSaleRequest{Lines: []app.SaleLineRequest{line}}},
		{"no lines", app.CreateSaleRequest{PartyID: 1}},
		{"zero quantity", app.CreateSaleRequest{PartyID: 1, Lines: []app.SaleLineRequest{{ProductID: 1, PricePerItem: "1"}}}},
		{"bad price", app.CreateSaleRequest{PartyID: 1, Lines: []app.SaleLineRequest{{ProductID: 1, Quantity: 1, PricePerItem: "ten"}}}},
		{"bad gst", app.CreateSaleRequest{PartyID: 1, Lines: []app.SaleLineRequest{{ProductID: 1, Quantity: 1, PricePerItem: "1", GSTRate: "7"}}}},
		{"bad date", app.CreateSaleRequest{PartyID: 1, InvoiceDate: "31/03/2026", Lines: []app.SaleLineRequest{line}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateSale(ctx, tt.req)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
	assert.Empty(t, f.sales.got, "invalid sales must not reach the store")
}

func TestCreateSale_ParsesAndGuards(t *testing.T) {
	f := newFixture(false)
	f.sales.inUse = func() bool { return len(f.guard.held) == 1 }

	out, err := f.svc.CreateSale(context.Background(), app.CreateSaleRequest{
		PartyID:     4,
		InvoiceDate: "2026-03-15",
		Lines:       []app.SaleLineRequest{{ProductID: 1, Quantity: 2, PricePerItem: "10.50", GSTRate: "12"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", out.Invoice.InvoiceNumber)

	require.Len(t, f.sales.got, 1)
	in := f.sales.got[0]
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, ist), in.InvoiceDate)
	assert.NotEmpty(t, in.IdempotencyKey, "a key is generated when none is given")
	assert.True(t, decimal.RequireFromString("10.50").Equal(in.Lines[0].PricePerItem))
	require.NotNil(t, in.Lines[0].GSTRate)
	assert.True(t, decimal.NewFromInt(12).Equal(*in.Lines[0].GSTRate))
	assert.Empty(t, f.guard.held, "lock released after the sale")
}

func TestCreateSale_ConcurrentDuplicateRejected(t *testing.T) {
	f := newFixture(false)
	f.guard.busy = true

	_, err := f.svc.CreateSale(context.Background(), app.CreateSaleRequest{
		PartyID:        1,
		IdempotencyKey: "order-77",
		Lines:          []app.SaleLineRequest{{ProductID: 1, Quantity: 1, PricePerItem: "5"}},
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, f.sales.got)
}

func TestAddPurchaseBatch(t *testing.T) {
	f := newFixture(false)
	_, err := f.svc.AddPurchaseBatch(context.Background(), app.AddBatchRequest{
		ProductID: 1, SupplierID: 2, BatchNumber: "B-9", Quantity: 10,
		CostPerItem: "4.25", ExpiryDate: "2027-01-31", PaidAmount: "10",
	})
	require.NoError(t, err)

	got := f.inventory.purchase
	require.NotNil(t, got)
	require.NotNil(t, got.SupplierID)
	assert.Equal(t, 2, *got.SupplierID)
	require.NotNil(t, got.ExpiryDate)
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, ist), *got.ExpiryDate)
	assert.True(t, decimal.RequireFromString("4.25").Equal(got.CostPerItem))
	assert.Equal(t, f.now, got.ReceivedAt)

	_, err = f.svc.AddPurchaseBatch(context.Background(), app.AddBatchRequest{ProductID: 1, Quantity: 1, CostPerItem: "1"})
	assert.ErrorIs(t, err, core.ErrInvalidInput, "batch number is required")
}

func TestRecordPaymentRoutesByKind(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, app.PaymentRequest{Kind: app.PaymentPayable, ID: 3, Amount: "50"})
	require.NoError(t, err)
	assert.Equal(t, "payable", f.settlements.kind)

	_, err = f.svc.RecordPayment(ctx, app.PaymentRequest{Kind: app.PaymentReceivable, ID: 8, Amount: "50", PaidAt: "2026-03-20"})
	require.NoError(t, err)
	assert.Equal(t, "receivable", f.settlements.kind)
	assert.Equal(t, 8, f.settlements.id)

	_, err = f.svc.RecordPayment(ctx, app.PaymentRequest{Kind: "refund", ID: 8, Amount: "50"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRecordExpense(t *testing.T) {
	f := newFixture(false)
	_, err := f.svc.RecordExpense(context.Background(), app.ExpenseRequest{
		Category: "Rent", Title: "March rent", Amount: "12000", ExpenseDate: "2026-03-05", PaymentMode: "BANK",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, ist), f.expenses.got.ExpenseDate)

	_, err = f.svc.RecordExpense(context.Background(), app.ExpenseRequest{
		Category: "Rent", Title: "March rent", Amount: "12000", PaymentMode: "BARTER",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

// ── Insights ──────────────────────────────────────────────────────────────────

func TestAskInsights(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(false)
		_, err := f.svc.AskInsights(context.Background(), app.InsightsRequest{Question: "How is cash?"})
		assert.ErrorIs(t, err, core.ErrUnavailable)
	})

	t.Run("uses the current month in the reporting timezone", func(t *testing.T) {
		f := newFixture(true)
		res, err := f.svc.AskInsights(context.Background(), app.InsightsRequest{Question: "How is cash?"})
		require.NoError(t, err)
		assert.Equal(t, app.PeriodRequest{Year: 2026, Month: 4}, res.Period)
		assert.Equal(t, "ok: How is cash?", res.Insight.Summary)

		facts, ok := f.summarizer.facts.(app.InsightsFacts)
		require.True(t, ok)
		assert.True(t, decimal.NewFromInt(1000).Equal(facts.ProfitAndLoss.Revenue))
		assert.NotNil(t, facts.Aging)
	})

	t.Run("empty question", func(t *testing.T) {
		f := newFixture(true)
		_, err := f.svc.AskInsights(context.Background(), app.InsightsRequest{})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}
