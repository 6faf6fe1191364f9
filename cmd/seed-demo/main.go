// seed-demo loads a small pharmacy dataset spanning last month and this month
// so every report has something to show. It refuses to run on a database
// that already has business data unless -reset is given.
//
// Usage: go run ./cmd/seed-demo [-reset]
package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"erp-ledger/internal/app"
	"erp-ledger/internal/config"
	"erp-ledger/internal/db"
	"erp-ledger/internal/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func main() {
	reset := flag.Bool("reset", false, "truncate all business tables first")
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
	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	if err := seedMasterData(ctx, pool, *reset, log); err != nil {
		pool.Close()
		log.Fatalf("master data: %v", err)
	}

	svc, closeSvc, err := app.Build(ctx, cfg, pool, log)
	if err != nil {
		pool.Close()
		log.Fatalf("wiring: %v", err)
	}
	defer closeSvc()

	if err := seedActivity(ctx, svc, time.Now().In(cfg.Books.Location), log); err != nil {
		closeSvc()
		pool.Close()
		log.Fatalf("activity: %v", err)
	}
	log.Info("demo data loaded")
}

func seedMasterData(ctx context.Context, pool *pgxpool.Pool, reset bool, log logrus.FieldLogger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existing int
	err = tx.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM batches) + (SELECT count(*) FROM invoices) + (SELECT count(*) FROM expenses)`).Scan(&existing)
	if err != nil {
		return err
	}
	if existing > 0 && !reset {
		return errors.New("database already has business data; rerun with -reset to replace it")
	}

	log.Warn("truncating business tables")
	_, err = tx.Exec(ctx, `
		TRUNCATE expenses, party_ledger_transactions, stock_transactions,
		         accounts_receivable, invoice_lines, invoices, document_sequences,
		         accounts_payable, batches, products, parties
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return err
	}

	log.Info("inserting parties and products")
	_, err = tx.Exec(ctx, `
		INSERT INTO parties (name, party_type, gstin, state) VALUES
		  ('Asha Medicals',     'CUSTOMER', '29ABCDE1234F1Z5', 'Karnataka'),
		  ('Bala Clinic',       'CUSTOMER', NULL,              'Tamil Nadu'),
		  ('Kiran Wholesale',   'SUPPLIER', '29KLMNO5678P1Z2', 'Karnataka'),
		  ('Mehta Pharma Dist', 'SUPPLIER', '27PQRST9012U1Z8', 'Maharashtra')`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO products (name, sku, price, cost, gst_rate, expiry_alert_days, low_stock_alert_qty) VALUES
		  ('Paracetamol 500mg strip', 'PARA-500',  35.00, 20.00, 12, 30, 20),
		  ('Amoxicillin 250mg strip', 'AMOX-250',  90.00, 55.00, 12, 45, 10),
		  ('Hand sanitiser 500ml',    'SANI-500', 180.00, 95.00, 18, 60,  5)`)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// seedActivity books purchases and sales through the application service so
// the demo exercises the same paths as real traffic.
func seedActivity(ctx context.Context, svc app.ApplicationService, now time.Time, log logrus.FieldLogger) error {
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)
	on := func(base time.Time, day int) string { return base.AddDate(0, 0, day-1).Format(time.DateOnly) }
	soon := now.AddDate(0, 0, 20).Format(time.DateOnly)
	later := now.AddDate(1, 0, 0).Format(time.DateOnly)

	batches := []app.AddBatchRequest{
		{ProductID: 1, SupplierID: 3, BatchNumber: "PARA-A1", Quantity: 100, CostPerItem: "20", ExpiryDate: later, ReceivedAt: on(lastMonth, 2), PaidAmount: "2000"},
		{ProductID: 1, SupplierID: 3, BatchNumber: "PARA-A2", Quantity: 100, CostPerItem: "22", ExpiryDate: later, ReceivedAt: on(lastMonth, 15)},
		{ProductID: 2, SupplierID: 4, BatchNumber: "AMOX-B1", Quantity: 40, CostPerItem: "55", ExpiryDate: soon, ReceivedAt: on(lastMonth, 5), PaidAmount: "1000"},
		{ProductID: 3, SupplierID: 4, BatchNumber: "SANI-C1", Quantity: 8, CostPerItem: "95", ReceivedAt: on(thisMonth, 1)},
	}
	var payables []int
	for _, b := range batches {
		batch, err := svc.AddPurchaseBatch(ctx, b)
		if err != nil {
			return err
		}
		payables = append(payables, batch.PayableID)
	}

	sales := []app.CreateSaleRequest{
		{PartyID: 1, InvoiceDate: on(lastMonth, 10), IdempotencyKey: "demo-sale-1", Lines: []app.SaleLineRequest{
			{ProductID: 1, Quantity: 120, PricePerItem: "35"},
			{ProductID: 2, Quantity: 10, PricePerItem: "90"},
		}},
		{PartyID: 2, InvoiceDate: on(lastMonth, 20), IdempotencyKey: "demo-sale-2", Lines: []app.SaleLineRequest{
			{ProductID: 2, Quantity: 25, PricePerItem: "88"},
		}},
		{PartyID: 1, InvoiceDate: on(thisMonth, 3), IdempotencyKey: "demo-sale-3", Lines: []app.SaleLineRequest{
			{ProductID: 1, Quantity: 40, PricePerItem: "35"},
			{ProductID: 3, Quantity: 5, PricePerItem: "180"},
		}},
	}
	var receivables []int
	for _, s := range sales {
		out, err := svc.CreateSale(ctx, s)
		if err != nil {
			return err
		}
		for _, w := range out.Warnings {
			log.WithField("invoice", out.Invoice.InvoiceNumber).Warn(w)
		}
		receivables = append(receivables, out.ReceivableID)
	}

	payments := []app.PaymentRequest{
		{Kind: app.PaymentReceivable, ID: receivables[0], Amount: "2000", PaidAt: on(lastMonth, 25)},
		{Kind: app.PaymentPayable, ID: payables[1], Amount: "1200", PaidAt: on(thisMonth, 2)},
	}
	for _, p := range payments {
		if _, err := svc.RecordPayment(ctx, p); err != nil {
			return err
		}
	}

	expenses := []app.ExpenseRequest{
		{Category: "Rent", Title: "Shop rent", Amount: "8000", ExpenseDate: on(lastMonth, 1), PaymentMode: "BANK"},
		{Category: "Rent", Title: "Shop rent", Amount: "11000", ExpenseDate: on(thisMonth, 1), PaymentMode: "BANK"},
		{Category: "Utilities", Title: "Electricity", Amount: "1450", ExpenseDate: on(lastMonth, 18), PaymentMode: "UPI"},
		{Category: "Interest on Loans", Title: "Working capital loan interest", Amount: "600", ExpenseDate: on(thisMonth, 5), PaymentMode: "BANK"},
	}
	for _, e := range expenses {
		if _, err := svc.RecordExpense(ctx, e); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"batches":  len(batches),
		"sales":    len(sales),
		"payments": len(payments),
		"expenses": len(expenses),
	}).Info("activity recorded")
	return nil
}
