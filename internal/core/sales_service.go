package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SaleLineInput struct {
	ProductID    int
	Quantity     int
	PricePerItem decimal.Decimal
	// GSTRate overrides the product's rate when set.
	GSTRate *decimal.Decimal
}

type SaleInput struct {
	PartyID        int
	InvoiceDate    time.Time
	Lines          []SaleLineInput
	IdempotencyKey string
	// RejectOversell fails the whole sale when any line needs more units than
	// the product's batches hold. By default such lines are accepted and only
	// the available units are costed.
	RejectOversell bool
}

// LineAllocation reports how one invoice line was costed.
type LineAllocation struct {
	ProductID int        `json:"product_id"`
	Cogs      CogsResult `json:"cogs"`
	// Uncosted is set when the product has no batch history at all.
	Uncosted bool `json:"uncosted"`
}

type SaleOutcome struct {
	Invoice      SalesInvoice     `json:"invoice"`
	ReceivableID int              `json:"receivable_id"`
	Allocations  []LineAllocation `json:"allocations"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// SalesService creates sales invoices. Each sale is one transaction covering
// FIFO allocation, batch decrements, the invoice and its lines, the
// receivable, stock movements and the customer ledger debit.
type SalesService interface {
	CreateSalesInvoice(ctx context.Context, in SaleInput) (*SaleOutcome, error)
}

type salesService struct {
	pool        *pgxpool.Pool
	inventory   InventoryService
	docs        DocumentService
	sellerState string
	log         logrus.FieldLogger
}

func NewSalesService(pool *pgxpool.Pool, inventory InventoryService, docs DocumentService, sellerState string, log logrus.FieldLogger) SalesService {
	return &salesService{pool: pool, inventory: inventory, docs: docs, sellerState: sellerState, log: log}
}

func validateSale(in SaleInput) error {
	if in.PartyID <= 0 {
		return invalidInput("party id is required")
	}
	if len(in.Lines) == 0 {
		return invalidInput("a sale needs at least one line")
	}
	for i, l := range in.Lines {
		if l.Quantity <= 0 {
			return invalidInput("line %d: quantity must be positive, got %d", i+1, l.Quantity)
		}
		if l.PricePerItem.IsNegative() {
			return invalidInput("line %d: price must not be negative, got %s", i+1, l.PricePerItem)
		}
		if l.GSTRate != nil && !ValidGSTRate(*l.GSTRate) {
			return invalidInput("line %d: unsupported GST rate %s", i+1, l.GSTRate)
		}
	}
	return nil
}

func (s *salesService) CreateSalesInvoice(ctx context.Context, in SaleInput) (*SaleOutcome, error) {
	if err := validateSale(in); err != nil {
		return nil, err
	}
	if in.InvoiceDate.IsZero() {
		in.InvoiceDate = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	store := NewPgStore(tx)
	party, err := store.GetParty(ctx, in.PartyID)
	if err != nil {
		return nil, err
	}
	if party.Type != PartyCustomer {
		return nil, invalidInput("party %d is not a customer", party.ID)
	}

	if in.IdempotencyKey != "" {
		var existing int
		err := tx.QueryRow(ctx, "SELECT id FROM invoices WHERE idempotency_key = $1", in.IdempotencyKey).Scan(&existing)
		if err == nil {
			return nil, invalidInput("duplicate sale: idempotency key %s already used by invoice %d", in.IdempotencyKey, existing)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, storeErr("check idempotency key", err)
		}
	}

	intra := SameState(s.sellerState, party.State)
	out := &SaleOutcome{}
	inv := SalesInvoice{PartyID: party.ID, PartyName: party.Name, InvoiceDate: in.InvoiceDate}
	tax := GSTBreakdown{}
	var plans [][]BatchConsumption

	for i, l := range in.Lines {
		rate := DefaultGSTRate
		uncosted := false
		product, err := store.GetProduct(ctx, l.ProductID)
		switch {
		case errors.Is(err, ErrNotFound):
			uncosted = true
		case err != nil:
			return nil, err
		default:
			rate = product.GSTRate
		}
		if l.GSTRate != nil {
			rate = *l.GSTRate
		}

		cogs, err := s.inventory.AllocateTx(ctx, tx, l.ProductID, l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if cogs.Oversold && !uncosted {
			if in.RejectOversell {
				return nil, inconsistent("line %d: product %d has %d units, %d requested",
					i+1, l.ProductID, cogs.QuantityAllocated, l.Quantity)
			}
			out.Warnings = append(out.Warnings, fmt.Sprintf("line %d: oversold product %d, %d of %d units costed",
				i+1, l.ProductID, cogs.QuantityAllocated, l.Quantity))
			s.log.WithFields(logrus.Fields{
				"product":   l.ProductID,
				"requested": l.Quantity,
				"allocated": cogs.QuantityAllocated,
			}).Warn("sale exceeds available stock")
		}
		if uncosted {
			out.Warnings = append(out.Warnings, fmt.Sprintf("line %d: product %d not found, costed at zero", i+1, l.ProductID))
			s.log.WithField("product", l.ProductID).Warn("sale of unknown product costed at zero")
		}

		taxable := l.PricePerItem.Mul(decimal.NewFromInt(int64(l.Quantity)))
		lineTax, err := CalculateGST(taxable, rate, intra)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		tax = tax.Add(lineTax)

		inv.Lines = append(inv.Lines, SalesInvoiceLine{
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			PricePerItem: l.PricePerItem,
			GSTRate:      rate,
			CogsPerItem:  cogs.CogsPerItem,
			CogsTotal:    cogs.CogsTotal,
		})
		out.Allocations = append(out.Allocations, LineAllocation{ProductID: l.ProductID, Cogs: *cogs, Uncosted: uncosted})
		plans = append(plans, cogs.Plan)
	}

	inv.TaxableAmount = tax.Taxable
	inv.CGST, inv.SGST, inv.IGST = tax.CGST, tax.SGST, tax.IGST
	inv.TotalAmount = tax.Total

	inv.InvoiceNumber, err = s.docs.NextNumberTx(ctx, tx, "INV", in.InvoiceDate.Year())
	if err != nil {
		return nil, err
	}

	var key *string
	if in.IdempotencyKey != "" {
		key = &in.IdempotencyKey
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, party_id, invoice_date, taxable_amount,
		                      cgst_amount, sgst_amount, igst_amount, total_amount, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, inv.InvoiceNumber, inv.PartyID, inv.InvoiceDate, inv.TaxableAmount,
		inv.CGST, inv.SGST, inv.IGST, inv.TotalAmount, key).Scan(&inv.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, invalidInput("duplicate sale: idempotency key %s already used", in.IdempotencyKey)
		}
		return nil, storeErr("insert invoice", err)
	}

	for i := range inv.Lines {
		l := &inv.Lines[i]
		l.InvoiceID = inv.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO invoice_lines (invoice_id, product_id, quantity, price_per_item, gst_rate, cogs_per_item, cogs_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, inv.ID, l.ProductID, l.Quantity, l.PricePerItem, l.GSTRate, l.CogsPerItem, l.CogsTotal).Scan(&l.ID)
		if err != nil {
			return nil, storeErr("insert invoice line", err)
		}

		// Stock OUT mirrors the units actually taken from batches, keeping
		// movement-derived stock equal to remaining batch quantity.
		for _, c := range plans[i] {
			if _, err := tx.Exec(ctx, `
				INSERT INTO stock_transactions (product_id, batch_id, transaction_type, quantity, notes, created_at)
				VALUES ($1, $2, 'OUT', $3, $4, $5)
			`, l.ProductID, c.BatchID, c.QuantityUsed, "Invoice: "+inv.InvoiceNumber, inv.InvoiceDate); err != nil {
				return nil, storeErr("insert stock movement", err)
			}
		}
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts_receivable (invoice_id, total_amount, outstanding_amount, created_at, updated_at)
		VALUES ($1, $2, $2, $3, $3)
		RETURNING id
	`, inv.ID, inv.TotalAmount, inv.InvoiceDate).Scan(&out.ReceivableID); err != nil {
		return nil, storeErr("insert receivable", err)
	}

	if err := insertPartyTxnTx(ctx, tx, party.ID, PartyDebit, inv.TotalAmount, "Invoice: "+inv.InvoiceNumber, inv.InvoiceDate); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit sale", err)
	}

	s.log.WithFields(logrus.Fields{
		"invoice": inv.InvoiceNumber,
		"party":   party.ID,
		"total":   inv.TotalAmount.StringFixed(2),
		"cogs":    inv.CogsTotal().StringFixed(2),
	}).Info("sales invoice created")

	out.Invoice = inv
	return out, nil
}
