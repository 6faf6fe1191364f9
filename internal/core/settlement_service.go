package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SettlementService records payments against receivables and payables.
// Status is derived from the remaining outstanding amount; the payment time
// becomes updated_at, which the cash-flow statement reads as the settlement
// time once the amount reaches zero.
type SettlementService interface {
	RecordReceivablePayment(ctx context.Context, receivableID int, amount decimal.Decimal, paidAt time.Time) (*Settlement, error)
	RecordPayablePayment(ctx context.Context, payableID int, amount decimal.Decimal, paidAt time.Time) (*Settlement, error)
}

type settlementService struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

func NewSettlementService(pool *pgxpool.Pool, log logrus.FieldLogger) SettlementService {
	return &settlementService{pool: pool, log: log}
}

type settlementKind struct {
	table     string
	selectSQL string
	idColumn  string
	partyTxn  PartyTxnType
	label     string
}

var (
	receivableKind = settlementKind{
		table: "accounts_receivable", selectSQL: receivableSelect, idColumn: "ar.id",
		partyTxn: PartyCredit, label: "Payment for ",
	}
	payableKind = settlementKind{
		table: "accounts_payable", selectSQL: payableSelect, idColumn: "ap.id",
		partyTxn: PartyDebit, label: "Payment to Supplier for ",
	}
)

func (s *settlementService) RecordReceivablePayment(ctx context.Context, id int, amount decimal.Decimal, paidAt time.Time) (*Settlement, error) {
	return s.record(ctx, receivableKind, id, amount, paidAt)
}

func (s *settlementService) RecordPayablePayment(ctx context.Context, id int, amount decimal.Decimal, paidAt time.Time) (*Settlement, error) {
	return s.record(ctx, payableKind, id, amount, paidAt)
}

func (s *settlementService) record(ctx context.Context, k settlementKind, id int, amount decimal.Decimal, paidAt time.Time) (*Settlement, error) {
	if !amount.IsPositive() {
		return nil, invalidInput("payment amount must be positive, got %s", amount)
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Lock the settlement row first; the join select below cannot use FOR UPDATE
	// on an outer-joined table.
	var locked int
	if err := tx.QueryRow(ctx, "SELECT id FROM "+k.table+" WHERE id = $1 FOR UPDATE", id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("%s %d", k.table, id)
		}
		return nil, storeErr("lock settlement", err)
	}

	rows, err := tx.Query(ctx, k.selectSQL+" WHERE "+k.idColumn+" = $1", id)
	if err != nil {
		return nil, storeErr("fetch settlement", err)
	}
	found, err := scanSettlements(rows)
	if err != nil {
		return nil, err
	}
	if len(found) != 1 {
		return nil, notFound("%s %d", k.table, id)
	}
	st := found[0]

	if st.Status() == StatusCompleted {
		return nil, invalidInput("%s %d is already settled", k.table, id)
	}
	if amount.GreaterThan(st.OutstandingAmount) {
		return nil, invalidInput("payment %s exceeds outstanding %s", amount.StringFixed(2), st.OutstandingAmount.StringFixed(2))
	}
	if paidAt.Before(st.CreatedAt) {
		return nil, invalidInput("payment date %s precedes document date %s",
			paidAt.Format(time.DateOnly), st.CreatedAt.Format(time.DateOnly))
	}

	st.OutstandingAmount = st.OutstandingAmount.Sub(amount)
	st.UpdatedAt = paidAt
	if _, err := tx.Exec(ctx,
		"UPDATE "+k.table+" SET outstanding_amount = $1, updated_at = $2 WHERE id = $3",
		st.OutstandingAmount, paidAt, id,
	); err != nil {
		return nil, storeErr("update settlement", err)
	}

	if st.PartyID != 0 {
		if err := insertPartyTxnTx(ctx, tx, st.PartyID, k.partyTxn, amount, k.label+st.Reference, paidAt); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit payment", err)
	}

	s.log.WithFields(logrus.Fields{
		"table":       k.table,
		"id":          id,
		"amount":      amount.StringFixed(2),
		"outstanding": st.OutstandingAmount.StringFixed(2),
		"status":      st.Status(),
	}).Info("payment recorded")
	return &st, nil
}

// ── Expenses ──────────────────────────────────────────────────────────────────

type ExpenseInput struct {
	Category        string
	Title           string
	Amount          decimal.Decimal
	ExpenseDate     time.Time
	PaymentMode     string
	ReferenceNumber string
	Notes           string
}

// ExpenseService stores expenses. Expenses are paid immediately, so the row
// is both the accrual and the cash event.
type ExpenseService interface {
	RecordExpense(ctx context.Context, in ExpenseInput) (*Expense, error)
}

type expenseService struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

func NewExpenseService(pool *pgxpool.Pool, log logrus.FieldLogger) ExpenseService {
	return &expenseService{pool: pool, log: log}
}

func (s *expenseService) RecordExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	if in.Category == "" || in.Title == "" || in.PaymentMode == "" {
		return nil, invalidInput("category, title and payment mode are required")
	}
	if !in.Amount.IsPositive() {
		return nil, invalidInput("expense amount must be positive, got %s", in.Amount)
	}
	if in.ExpenseDate.IsZero() {
		return nil, invalidInput("expense date is required")
	}

	e := Expense{
		Category:        in.Category,
		Title:           in.Title,
		Amount:          in.Amount,
		ExpenseDate:     in.ExpenseDate,
		PaymentMode:     in.PaymentMode,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO expenses (category, title, amount, expense_date, payment_mode, reference_number, notes)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING id
	`, e.Category, e.Title, e.Amount, e.ExpenseDate, e.PaymentMode, e.ReferenceNumber, e.Notes).Scan(&e.ID)
	if err != nil {
		return nil, storeErr("insert expense", err)
	}

	s.log.WithFields(logrus.Fields{
		"expense":  e.ID,
		"category": e.Category,
		"amount":   e.Amount.StringFixed(2),
	}).Info("expense recorded")
	return &e, nil
}
