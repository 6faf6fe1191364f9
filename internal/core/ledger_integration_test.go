package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"erp-ledger/internal/core"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE party_ledger_transactions, stock_transactions, accounts_receivable, invoice_lines,
			invoices, document_sequences, accounts_payable, batches, products, parties, expenses
			RESTART IDENTITY CASCADE;

		INSERT INTO parties (name, party_type, state) VALUES
		('Asha Traders', 'CUSTOMER', 'Karnataka'),
		('Kiran Wholesale', 'SUPPLIER', 'Karnataka');

		INSERT INTO products (name, sku, price, cost, gst_rate, expiry_alert_days, low_stock_alert_qty) VALUES
		('Paracetamol 500', 'PCM-500', 20, 5, 18, 30, 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

type testServices struct {
	inventory   core.InventoryService
	sales       core.SalesService
	settlements core.SettlementService
	expenses    core.ExpenseService
	reporting   core.ReportingService
}

func newServices(pool *pgxpool.Pool) testServices {
	log, _ := test.NewNullLogger()
	inv := core.NewInventoryService(pool, log)
	return testServices{
		inventory:   inv,
		sales:       core.NewSalesService(pool, inv, core.NewDocumentService(), "Karnataka", log),
		settlements: core.NewSettlementService(pool, log),
		expenses:    core.NewExpenseService(pool, log),
		reporting:   core.NewReportingService(core.NewPgSnapshotter(pool), core.NewRuleEngine(nil)),
	}
}

func receiveStock(t *testing.T, svc testServices) {
	t.Helper()
	ctx := context.Background()
	supplier := 2
	for i, cost := range []string{"5", "7"} {
		_, err := svc.inventory.AddPurchaseBatch(ctx, core.PurchaseBatchInput{
			ProductID:   1,
			SupplierID:  &supplier,
			BatchNumber: []string{"B1", "B2"}[i],
			Quantity:    10,
			CostPerItem: decimal.RequireFromString(cost),
			ReceivedAt:  time.Date(2026, 3, 1+i, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
}

func TestSale_FIFOAndReceivable(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newServices(pool)
	ctx := context.Background()
	receiveStock(t, svc)

	preview, err := svc.inventory.AllocateCogs(ctx, 1, 15)
	require.NoError(t, err)
	assert.True(t, d("85.00").Equal(preview.CogsTotal))

	out, err := svc.sales.CreateSalesInvoice(ctx, core.SaleInput{
		PartyID:        1,
		InvoiceDate:    time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		IdempotencyKey: uuid.NewString(),
		Lines:          []core.SaleLineInput{{ProductID: 1, Quantity: 15, PricePerItem: d("20")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", out.Invoice.InvoiceNumber)
	assert.True(t, d("354").Equal(out.Invoice.TotalAmount), "total %s", out.Invoice.TotalAmount)
	assert.True(t, d("85").Equal(out.Invoice.CogsTotal()))
	assert.Empty(t, out.Warnings)

	batches, err := core.NewPgStore(pool).ListBatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, 0, batches[0].Quantity)
	assert.Equal(t, 5, batches[1].Quantity)

	checks, err := svc.reporting.VerifyStock(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.True(t, checks[0].Consistent(), "batch %d vs movements %d", checks[0].BatchQty, checks[0].MovementQty)

	march, err := core.MonthWindow(2026, 3, time.UTC)
	require.NoError(t, err)
	april, err := core.MonthWindow(2026, 4, time.UTC)
	require.NoError(t, err)

	var receivableID int
	require.NoError(t, pool.QueryRow(ctx, "SELECT id FROM accounts_receivable WHERE invoice_id = $1", out.Invoice.ID).Scan(&receivableID))
	assert.Equal(t, out.ReceivableID, receivableID)

	st, err := svc.settlements.RecordReceivablePayment(ctx, receivableID, d("354"), time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, st.Status())

	_, err = svc.settlements.RecordReceivablePayment(ctx, receivableID, d("1"), time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	pl, err := svc.reporting.GetProfitAndLoss(ctx, march)
	require.NoError(t, err)
	assert.True(t, d("354").Equal(pl.Revenue))
	assert.True(t, d("85").Equal(pl.Cogs))

	cfMarch, err := svc.reporting.GetCashFlow(ctx, march)
	require.NoError(t, err)
	assert.True(t, cfMarch.Operating.CashFromCustomers.IsZero())

	cfApril, err := svc.reporting.GetCashFlow(ctx, april)
	require.NoError(t, err)
	assert.True(t, d("354").Equal(cfApril.Operating.CashFromCustomers))

	gl, err := svc.reporting.GetGeneralLedger(ctx, march, "")
	require.NoError(t, err)
	assert.True(t, gl.IsBalanced)

	bs, err := svc.reporting.GetBalanceSheet(ctx, april.End)
	require.NoError(t, err)
	assert.True(t, bs.IsBalanced)
	assert.True(t, d("35").Equal(bs.Assets.Inventory))
	assert.True(t, d("120").Equal(bs.Liabilities.Payables))
}

func TestSale_Idempotency(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newServices(pool)
	ctx := context.Background()
	receiveStock(t, svc)

	in := core.SaleInput{
		PartyID:        1,
		InvoiceDate:    time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		IdempotencyKey: uuid.NewString(),
		Lines:          []core.SaleLineInput{{ProductID: 1, Quantity: 3, PricePerItem: d("20")}},
	}
	_, err := svc.sales.CreateSalesInvoice(ctx, in)
	require.NoError(t, err)

	_, err = svc.sales.CreateSalesInvoice(ctx, in)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	var invoices int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices").Scan(&invoices))
	assert.Equal(t, 1, invoices)

	batches, err := core.NewPgStore(pool).ListBatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, batches[0].Quantity, "duplicate submission must not consume stock")
}

func TestSale_Oversell(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newServices(pool)
	ctx := context.Background()
	receiveStock(t, svc)

	sale := func(reject bool) (*core.SaleOutcome, error) {
		return svc.sales.CreateSalesInvoice(ctx, core.SaleInput{
			PartyID:        1,
			InvoiceDate:    time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC),
			IdempotencyKey: uuid.NewString(),
			RejectOversell: reject,
			Lines:          []core.SaleLineInput{{ProductID: 1, Quantity: 25, PricePerItem: d("20")}},
		})
	}

	_, err := sale(true)
	assert.ErrorIs(t, err, core.ErrInconsistent)

	out, err := sale(false)
	require.NoError(t, err)
	require.Len(t, out.Allocations, 1)
	assert.True(t, out.Allocations[0].Cogs.Oversold)
	assert.True(t, d("120").Equal(out.Allocations[0].Cogs.CogsTotal))
	assert.NotEmpty(t, out.Warnings)

	checks, err := svc.reporting.VerifyStock(ctx)
	require.NoError(t, err)
	assert.True(t, checks[0].Consistent())
	assert.Equal(t, 0, checks[0].BatchQty)
}

func TestSale_UnknownProductCostsZero(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newServices(pool)
	ctx := context.Background()

	out, err := svc.sales.CreateSalesInvoice(ctx, core.SaleInput{
		PartyID:        1,
		InvoiceDate:    time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC),
		IdempotencyKey: uuid.NewString(),
		Lines:          []core.SaleLineInput{{ProductID: 99, Quantity: 2, PricePerItem: d("20")}},
	})
	require.NoError(t, err)
	require.Len(t, out.Allocations, 1)
	assert.True(t, out.Allocations[0].Uncosted)
	assert.True(t, out.Allocations[0].Cogs.CogsTotal.IsZero())
	assert.Empty(t, out.Allocations[0].Cogs.Plan)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "not found")

	// Default 18% GST applies when the product is unknown.
	assert.True(t, d("47.2").Equal(out.Invoice.TotalAmount), "total %s", out.Invoice.TotalAmount)
	assert.True(t, out.Invoice.CogsTotal().IsZero())

	var lines, movements int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoice_lines WHERE product_id = 99").Scan(&lines))
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM stock_transactions WHERE product_id = 99").Scan(&movements))
	assert.Equal(t, 1, lines)
	assert.Zero(t, movements)
}

func TestSale_SameProductLinesConsumeInOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newServices(pool)
	ctx := context.Background()
	receiveStock(t, svc)

	out, err := svc.sales.CreateSalesInvoice(ctx, core.SaleInput{
		PartyID:        1,
		InvoiceDate:    time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		IdempotencyKey: uuid.NewString(),
		Lines: []core.SaleLineInput{
			{ProductID: 1, Quantity: 6, PricePerItem: d("20")},
			{ProductID: 1, Quantity: 6, PricePerItem: d("20")},
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Allocations, 2)

	first, second := out.Allocations[0].Cogs, out.Allocations[1].Cogs
	assert.Equal(t, []core.BatchConsumption{{BatchID: 1, QuantityUsed: 6, CostPerItem: d("5")}}, normalizePlan(first.Plan))
	assert.Equal(t, []core.BatchConsumption{
		{BatchID: 1, QuantityUsed: 4, CostPerItem: d("5")},
		{BatchID: 2, QuantityUsed: 2, CostPerItem: d("7")},
	}, normalizePlan(second.Plan))
	assert.True(t, d("30").Equal(first.CogsTotal))
	assert.True(t, d("34").Equal(second.CogsTotal))
	assert.Empty(t, out.Warnings)

	batches, err := core.NewPgStore(pool).ListBatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, batches[0].Quantity)
	assert.Equal(t, 8, batches[1].Quantity)
}

// normalizePlan rewrites costs read back from numeric columns so plans
// compare by value.
func normalizePlan(plan []core.BatchConsumption) []core.BatchConsumption {
	out := make([]core.BatchConsumption, len(plan))
	for i, c := range plan {
		c.CostPerItem = d(c.CostPerItem.String())
		out[i] = c
	}
	return out
}

func TestSale_UnknownParty(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newServices(pool)

	_, err := svc.sales.CreateSalesInvoice(context.Background(), core.SaleInput{
		PartyID:     99,
		InvoiceDate: time.Now(),
		Lines:       []core.SaleLineInput{{ProductID: 1, Quantity: 1, PricePerItem: d("20")}},
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.sales.CreateSalesInvoice(context.Background(), core.SaleInput{
		PartyID:     2,
		InvoiceDate: time.Now(),
		Lines:       []core.SaleLineInput{{ProductID: 1, Quantity: 1, PricePerItem: d("20")}},
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput, "suppliers cannot be invoiced")
}

func TestPayablePaymentAndExpense(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newServices(pool)
	ctx := context.Background()
	receiveStock(t, svc)

	var payableID int
	require.NoError(t, pool.QueryRow(ctx, "SELECT id FROM accounts_payable ORDER BY id LIMIT 1").Scan(&payableID))

	partial, err := svc.settlements.RecordPayablePayment(ctx, payableID, d("20"), time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, partial.Status())
	assert.True(t, d("30").Equal(partial.OutstandingAmount))

	_, err = svc.settlements.RecordPayablePayment(ctx, payableID, d("31"), time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.settlements.RecordPayablePayment(ctx, 404, d("1"), time.Now())
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.expenses.RecordExpense(ctx, core.ExpenseInput{
		Category: core.CategoryInterest, Title: "Loan interest", Amount: d("40"),
		ExpenseDate: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), PaymentMode: "BANK",
	})
	require.NoError(t, err)

	march, err := core.MonthWindow(2026, 3, time.UTC)
	require.NoError(t, err)
	cf, err := svc.reporting.GetCashFlow(ctx, march)
	require.NoError(t, err)
	assert.True(t, d("40").Equal(cf.Financing.InterestPaid))
	assert.True(t, cf.Operating.PaidToSuppliers.IsZero(), "partial payments are not cash until settled")

	tb, err := svc.reporting.GetTrialBalance(ctx, march.End)
	require.NoError(t, err)
	require.NotEmpty(t, tb.Lines)
	assert.Equal(t, "Kiran Wholesale", tb.Lines[0].Name)
	assert.True(t, d("100").Equal(tb.Lines[0].Credit), "120 purchased less 20 paid")
}
