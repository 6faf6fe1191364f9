package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx, so the same
// reader works standalone or inside a caller's transaction.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EventReader exposes the raw business events the statements are computed
// from. Implementations must not cache.
type EventReader interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	GetParty(ctx context.Context, id int) (*Party, error)
	// ListBatches returns every batch of a product in FIFO order. An unknown
	// product yields an empty slice.
	ListBatches(ctx context.Context, productID int) ([]Batch, error)
	ListAllBatches(ctx context.Context) ([]Batch, error)
	// LoadBooks returns invoices, purchases and expenses dated in w, plus every
	// receivable, payable, party transaction and batch created before w.End.
	LoadBooks(ctx context.Context, w Window) (Books, error)
	ListStockChecks(ctx context.Context) ([]StockCheck, error)
}

// PgStore reads events from Postgres.
type PgStore struct {
	q pgxQuerier
}

func NewPgStore(q pgxQuerier) *PgStore {
	return &PgStore{q: q}
}

// ── Master data ───────────────────────────────────────────────────────────────

const productColumns = `id, name, sku, price, cost, gst_rate, expiry_alert_days, low_stock_alert_qty`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Cost, &p.GSTRate, &p.ExpiryAlertDays, &p.LowStockAlertQty)
	return p, err
}

func (s *PgStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, storeErr("query products", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storeErr("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate products", err)
	}
	return products, nil
}

func (s *PgStore) GetProduct(ctx context.Context, id int) (*Product, error) {
	p, err := scanProduct(s.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("product %d", id)
		}
		return nil, storeErr("fetch product", err)
	}
	return &p, nil
}

func (s *PgStore) GetParty(ctx context.Context, id int) (*Party, error) {
	var p Party
	err := s.q.QueryRow(ctx, `
		SELECT id, name, party_type, COALESCE(gstin, ''), state
		FROM parties WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Type, &p.GSTIN, &p.State)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("party %d", id)
		}
		return nil, storeErr("fetch party", err)
	}
	return &p, nil
}

// ── Batches ───────────────────────────────────────────────────────────────────

const batchColumns = `id, seq, product_id, supplier_id, batch_number, quantity, initial_qty, cost_per_item, expiry_date, created_at`

func scanBatches(rows pgx.Rows) ([]Batch, error) {
	defer rows.Close()
	batches := []Batch{}
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Seq, &b.ProductID, &b.SupplierID, &b.BatchNumber,
			&b.Quantity, &b.InitialQty, &b.CostPerItem, &b.ExpiryDate, &b.CreatedAt); err != nil {
			return nil, storeErr("scan batch", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate batches", err)
	}
	return batches, nil
}

func (s *PgStore) ListBatches(ctx context.Context, productID int) ([]Batch, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		WHERE product_id = $1
		ORDER BY seq, id
	`, productID)
	if err != nil {
		return nil, storeErr("query batches", err)
	}
	return scanBatches(rows)
}

// lockBatchesTx selects the product's batches with remaining stock FOR UPDATE,
// so concurrent sales of the same product serialize on allocation.
func lockBatchesTx(ctx context.Context, tx pgx.Tx, productID int) ([]Batch, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		WHERE product_id = $1 AND quantity > 0
		ORDER BY seq, id
		FOR UPDATE
	`, productID)
	if err != nil {
		return nil, storeErr("lock batches", err)
	}
	return scanBatches(rows)
}

func (s *PgStore) ListAllBatches(ctx context.Context) ([]Batch, error) {
	rows, err := s.q.Query(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY product_id, seq`)
	if err != nil {
		return nil, storeErr("query batches", err)
	}
	return scanBatches(rows)
}

// ── Books ─────────────────────────────────────────────────────────────────────

func (s *PgStore) LoadBooks(ctx context.Context, w Window) (Books, error) {
	var b Books
	var err error
	if b.Invoices, err = s.listInvoices(ctx, w); err != nil {
		return Books{}, err
	}
	if b.Receivables, err = s.listReceivables(ctx, w.End); err != nil {
		return Books{}, err
	}
	if b.Purchases, err = s.listPurchases(ctx, w); err != nil {
		return Books{}, err
	}
	if b.Payables, err = s.listPayables(ctx, w.End); err != nil {
		return Books{}, err
	}
	if b.Expenses, err = s.listExpenses(ctx, w); err != nil {
		return Books{}, err
	}
	if b.PartyTxns, err = s.listPartyTxns(ctx, w.End); err != nil {
		return Books{}, err
	}
	rows, err := s.q.Query(ctx, `SELECT `+batchColumns+` FROM batches WHERE created_at < $1 ORDER BY product_id, seq`, w.End)
	if err != nil {
		return Books{}, storeErr("query batches", err)
	}
	if b.Batches, err = scanBatches(rows); err != nil {
		return Books{}, err
	}
	return b, nil
}

func (s *PgStore) listInvoices(ctx context.Context, w Window) ([]SalesInvoice, error) {
	rows, err := s.q.Query(ctx, `
		SELECT i.id, i.invoice_number, i.party_id, p.name, i.invoice_date,
		       i.taxable_amount, i.cgst_amount, i.sgst_amount, i.igst_amount, i.total_amount
		FROM invoices i
		JOIN parties p ON p.id = i.party_id
		WHERE i.invoice_date >= $1 AND i.invoice_date < $2
		ORDER BY i.id
	`, w.Start, w.End)
	if err != nil {
		return nil, storeErr("query invoices", err)
	}

	invoices := []SalesInvoice{}
	index := map[int]int{}
	for rows.Next() {
		var inv SalesInvoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PartyID, &inv.PartyName, &inv.InvoiceDate,
			&inv.TaxableAmount, &inv.CGST, &inv.SGST, &inv.IGST, &inv.TotalAmount); err != nil {
			rows.Close()
			return nil, storeErr("scan invoice", err)
		}
		index[inv.ID] = len(invoices)
		invoices = append(invoices, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate invoices", err)
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	ids := make([]int, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	lineRows, err := s.q.Query(ctx, `
		SELECT id, invoice_id, product_id, quantity, price_per_item, gst_rate, cogs_per_item, cogs_total
		FROM invoice_lines
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, id
	`, ids)
	if err != nil {
		return nil, storeErr("query invoice lines", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var l SalesInvoiceLine
		if err := lineRows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Quantity,
			&l.PricePerItem, &l.GSTRate, &l.CogsPerItem, &l.CogsTotal); err != nil {
			return nil, storeErr("scan invoice line", err)
		}
		i := index[l.InvoiceID]
		invoices[i].Lines = append(invoices[i].Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return nil, storeErr("iterate invoice lines", err)
	}
	return invoices, nil
}

func scanSettlements(rows pgx.Rows) ([]Settlement, error) {
	defer rows.Close()
	out := []Settlement{}
	for rows.Next() {
		var st Settlement
		if err := rows.Scan(&st.ID, &st.DocumentID, &st.Reference, &st.PartyID, &st.PartyName,
			&st.TotalAmount, &st.OutstandingAmount, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, storeErr("scan settlement", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate settlements", err)
	}
	return out, nil
}

const receivableSelect = `
	SELECT ar.id, i.id, i.invoice_number, i.party_id, p.name,
	       ar.total_amount, ar.outstanding_amount, ar.created_at, ar.updated_at
	FROM accounts_receivable ar
	JOIN invoices i ON i.id = ar.invoice_id
	JOIN parties p  ON p.id = i.party_id`

const payableSelect = `
	SELECT ap.id, b.id, b.batch_number, COALESCE(b.supplier_id, 0), COALESCE(p.name, ''),
	       ap.total_amount, ap.outstanding_amount, ap.created_at, ap.updated_at
	FROM accounts_payable ap
	JOIN batches b      ON b.id = ap.batch_id
	LEFT JOIN parties p ON p.id = b.supplier_id`

func (s *PgStore) listReceivables(ctx context.Context, before time.Time) ([]Settlement, error) {
	rows, err := s.q.Query(ctx, receivableSelect+` WHERE ar.created_at < $1 ORDER BY ar.id`, before)
	if err != nil {
		return nil, storeErr("query receivables", err)
	}
	return scanSettlements(rows)
}

func (s *PgStore) listPayables(ctx context.Context, before time.Time) ([]Settlement, error) {
	rows, err := s.q.Query(ctx, payableSelect+` WHERE ap.created_at < $1 ORDER BY ap.id`, before)
	if err != nil {
		return nil, storeErr("query payables", err)
	}
	return scanSettlements(rows)
}

func (s *PgStore) listPurchases(ctx context.Context, w Window) ([]Purchase, error) {
	rows, err := s.q.Query(ctx, `
		SELECT b.id, b.batch_number, b.product_id, b.supplier_id, b.created_at,
		       COALESCE(ap.total_amount, b.initial_qty * b.cost_per_item)
		FROM batches b
		LEFT JOIN accounts_payable ap ON ap.batch_id = b.id
		WHERE b.created_at >= $1 AND b.created_at < $2
		ORDER BY b.seq
	`, w.Start, w.End)
	if err != nil {
		return nil, storeErr("query purchases", err)
	}
	defer rows.Close()

	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.BatchID, &p.BatchNumber, &p.ProductID, &p.SupplierID, &p.Date, &p.TotalAmount); err != nil {
			return nil, storeErr("scan purchase", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate purchases", err)
	}
	return purchases, nil
}

func (s *PgStore) listExpenses(ctx context.Context, w Window) ([]Expense, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, category, title, amount, expense_date, payment_mode,
		       COALESCE(reference_number, ''), COALESCE(notes, '')
		FROM expenses
		WHERE expense_date >= $1 AND expense_date < $2
		ORDER BY expense_date, id
	`, w.Start, w.End)
	if err != nil {
		return nil, storeErr("query expenses", err)
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Title, &e.Amount, &e.ExpenseDate,
			&e.PaymentMode, &e.ReferenceNumber, &e.Notes); err != nil {
			return nil, storeErr("scan expense", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate expenses", err)
	}
	return expenses, nil
}

func (s *PgStore) listPartyTxns(ctx context.Context, before time.Time) ([]PartyTxn, error) {
	rows, err := s.q.Query(ctx, `
		SELECT t.id, t.party_id, p.name, p.party_type, t.transaction_type, t.amount, t.description, t.txn_date
		FROM party_ledger_transactions t
		JOIN parties p ON p.id = t.party_id
		WHERE t.txn_date < $1
		ORDER BY t.id
	`, before)
	if err != nil {
		return nil, storeErr("query party transactions", err)
	}
	defer rows.Close()

	txns := []PartyTxn{}
	for rows.Next() {
		var t PartyTxn
		if err := rows.Scan(&t.ID, &t.PartyID, &t.PartyName, &t.PartyType, &t.Type, &t.Amount, &t.Description, &t.Date); err != nil {
			return nil, storeErr("scan party transaction", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate party transactions", err)
	}
	return txns, nil
}

// ── Verification ──────────────────────────────────────────────────────────────

func (s *PgStore) ListStockChecks(ctx context.Context) ([]StockCheck, error) {
	rows, err := s.q.Query(ctx, `
		SELECT p.id, p.name,
		       COALESCE((SELECT SUM(b.quantity) FROM batches b WHERE b.product_id = p.id), 0)::int,
		       COALESCE((SELECT SUM(CASE WHEN st.transaction_type = 'IN' THEN st.quantity ELSE -st.quantity END)
		                 FROM stock_transactions st WHERE st.product_id = p.id), 0)::int
		FROM products p
		ORDER BY p.id
	`)
	if err != nil {
		return nil, storeErr("query stock checks", err)
	}
	defer rows.Close()

	checks := []StockCheck{}
	for rows.Next() {
		var c StockCheck
		if err := rows.Scan(&c.ProductID, &c.ProductName, &c.BatchQty, &c.MovementQty); err != nil {
			return nil, storeErr("scan stock check", err)
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate stock checks", err)
	}
	return checks, nil
}
