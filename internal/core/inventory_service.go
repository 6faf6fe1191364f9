package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PurchaseBatchInput describes a received lot. PaidAmount, if positive, is
// settled against the new payable at ReceivedAt.
type PurchaseBatchInput struct {
	ProductID   int
	SupplierID  *int
	BatchNumber string
	Quantity    int
	CostPerItem decimal.Decimal
	ExpiryDate  *time.Time
	ReceivedAt  time.Time
	PaidAmount  decimal.Decimal
}

// InventoryService owns batch quantities: FIFO costing, consumption and
// purchase intake.
type InventoryService interface {
	ListProducts(ctx context.Context) ([]Product, error)

	// AllocateCogs computes the FIFO cost of selling qty units of a product
	// without changing any batch. A product with no batches costs zero.
	AllocateCogs(ctx context.Context, productID, qty int) (*CogsResult, error)

	// AddPurchaseBatch records a batch, its payable, the stock IN movement and
	// the supplier ledger credit in one transaction.
	AddPurchaseBatch(ctx context.Context, in PurchaseBatchInput) (*Batch, error)

	// ApplyConsumptionTx decrements batches by a plan inside the caller's
	// transaction. It fails without partial effect if any batch would go
	// negative. Applying the same plan twice consumes twice.
	ApplyConsumptionTx(ctx context.Context, tx pgx.Tx, plan []BatchConsumption) error

	// AllocateTx locks the product's batches, allocates qty units and applies
	// the resulting plan, all within tx.
	AllocateTx(ctx context.Context, tx pgx.Tx, productID, qty int) (*CogsResult, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

func NewInventoryService(pool *pgxpool.Pool, log logrus.FieldLogger) InventoryService {
	return &inventoryService{pool: pool, log: log}
}

func (s *inventoryService) ListProducts(ctx context.Context) ([]Product, error) {
	return NewPgStore(s.pool).ListProducts(ctx)
}

// ── Allocation ────────────────────────────────────────────────────────────────

func (s *inventoryService) AllocateCogs(ctx context.Context, productID, qty int) (*CogsResult, error) {
	if qty < 0 {
		return nil, invalidInput("quantity must not be negative, got %d", qty)
	}
	if qty == 0 {
		res, _ := AllocateFIFO(nil, 0)
		return &res, nil
	}
	batches, err := NewPgStore(s.pool).ListBatches(ctx, productID)
	if err != nil {
		return nil, err
	}
	res, err := AllocateFIFO(batches, qty)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *inventoryService) AllocateTx(ctx context.Context, tx pgx.Tx, productID, qty int) (*CogsResult, error) {
	batches, err := lockBatchesTx(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	res, err := AllocateFIFO(batches, qty)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyConsumptionTx(ctx, tx, res.Plan); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *inventoryService) ApplyConsumptionTx(ctx context.Context, tx pgx.Tx, plan []BatchConsumption) error {
	for _, c := range plan {
		if c.QuantityUsed <= 0 {
			continue
		}
		tag, err := tx.Exec(ctx, `
			UPDATE batches SET quantity = quantity - $1
			WHERE id = $2 AND quantity >= $1
		`, c.QuantityUsed, c.BatchID)
		if err != nil {
			return storeErr(fmt.Sprintf("decrement batch %d", c.BatchID), err)
		}
		if tag.RowsAffected() != 1 {
			return inconsistent("batch %d cannot supply %d units", c.BatchID, c.QuantityUsed)
		}
	}
	return nil
}

// ── Purchases ─────────────────────────────────────────────────────────────────

func (s *inventoryService) AddPurchaseBatch(ctx context.Context, in PurchaseBatchInput) (*Batch, error) {
	in.BatchNumber = strings.TrimSpace(in.BatchNumber)
	if in.BatchNumber == "" {
		return nil, invalidInput("batch number is required")
	}
	if in.Quantity <= 0 {
		return nil, invalidInput("batch quantity must be positive, got %d", in.Quantity)
	}
	if in.CostPerItem.IsNegative() {
		return nil, invalidInput("cost per item must not be negative, got %s", in.CostPerItem)
	}
	if in.PaidAmount.IsNegative() {
		return nil, invalidInput("paid amount must not be negative, got %s", in.PaidAmount)
	}
	total := money(in.CostPerItem.Mul(decimal.NewFromInt(int64(in.Quantity))))
	if in.PaidAmount.GreaterThan(total) {
		return nil, invalidInput("paid amount %s exceeds batch total %s", in.PaidAmount.StringFixed(2), total.StringFixed(2))
	}
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	store := NewPgStore(tx)
	if _, err := store.GetProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}
	if in.SupplierID != nil {
		supplier, err := store.GetParty(ctx, *in.SupplierID)
		if err != nil {
			return nil, err
		}
		if supplier.Type != PartySupplier {
			return nil, invalidInput("party %d is not a supplier", supplier.ID)
		}
	}

	b := Batch{
		ProductID:   in.ProductID,
		SupplierID:  in.SupplierID,
		BatchNumber: in.BatchNumber,
		Quantity:    in.Quantity,
		InitialQty:  in.Quantity,
		CostPerItem: in.CostPerItem,
		ExpiryDate:  in.ExpiryDate,
		CreatedAt:   in.ReceivedAt,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO batches (product_id, supplier_id, batch_number, quantity, initial_qty, cost_per_item, expiry_date, created_at)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7)
		RETURNING id, seq
	`, in.ProductID, in.SupplierID, in.BatchNumber, in.Quantity, in.CostPerItem, in.ExpiryDate, in.ReceivedAt).Scan(&b.ID, &b.Seq)
	if err != nil {
		return nil, storeErr("insert batch", err)
	}

	outstanding := total.Sub(in.PaidAmount)
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts_payable (batch_id, total_amount, outstanding_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, b.ID, total, outstanding, in.ReceivedAt).Scan(&b.PayableID); err != nil {
		return nil, storeErr("insert payable", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_transactions (product_id, batch_id, transaction_type, quantity, notes, created_at)
		VALUES ($1, $2, 'IN', $3, $4, $5)
	`, in.ProductID, b.ID, in.Quantity, "Purchase Batch: "+in.BatchNumber, in.ReceivedAt); err != nil {
		return nil, storeErr("insert stock movement", err)
	}

	if in.SupplierID != nil {
		if err := insertPartyTxnTx(ctx, tx, *in.SupplierID, PartyCredit, total, "Purchase Batch: "+in.BatchNumber, in.ReceivedAt); err != nil {
			return nil, err
		}
		if in.PaidAmount.IsPositive() {
			if err := insertPartyTxnTx(ctx, tx, *in.SupplierID, PartyDebit, in.PaidAmount, "Payment to Supplier for "+in.BatchNumber, in.ReceivedAt); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit purchase batch", err)
	}

	s.log.WithFields(logrus.Fields{
		"batch_id":  b.ID,
		"product":   in.ProductID,
		"quantity":  in.Quantity,
		"total":     total.StringFixed(2),
		"remaining": outstanding.StringFixed(2),
	}).Info("purchase batch recorded")
	return &b, nil
}

func insertPartyTxnTx(ctx context.Context, tx pgx.Tx, partyID int, typ PartyTxnType, amount decimal.Decimal, desc string, at time.Time) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO party_ledger_transactions (party_id, transaction_type, amount, description, txn_date)
		VALUES ($1, $2, $3, $4, $5)
	`, partyID, string(typ), amount, desc, at); err != nil {
		return storeErr("insert party ledger transaction", err)
	}
	return nil
}
