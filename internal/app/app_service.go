package app

import (
	"context"
	"fmt"
	"time"

	"erp-ledger/internal/ai"
	"erp-ledger/internal/core"
	"erp-ledger/internal/guard"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Deps wires the services an appService delegates to.
type Deps struct {
	Reporting   core.ReportingService
	Inventory   core.InventoryService
	Sales       core.SalesService
	Settlements core.SettlementService
	Expenses    core.ExpenseService
	Guard       guard.SubmissionGuard
	Summarizer  ai.Summarizer
	// Location defines month boundaries and the meaning of date-only inputs.
	Location *time.Location
	Log      logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

type appService struct {
	Deps
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(d Deps) ApplicationService {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Guard == nil {
		d.Guard = guard.NewNoopGuard()
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &appService{Deps: d}
}

func (s *appService) window(req PeriodRequest) (core.Window, error) {
	if err := validateRequest(req); err != nil {
		return core.Window{}, err
	}
	return core.MonthWindow(req.Year, req.Month, s.Location)
}

func (s *appService) currentPeriod() PeriodRequest {
	now := s.Now().In(s.Location)
	return PeriodRequest{Year: now.Year(), Month: int(now.Month())}
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) GetGeneralLedger(ctx context.Context, req PeriodRequest, account string) (*core.GeneralLedger, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	return s.Reporting.GetGeneralLedger(ctx, w, account)
}

func (s *appService) GetTrialBalance(ctx context.Context, req PeriodRequest) (*core.TrialBalance, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	return s.Reporting.GetTrialBalance(ctx, w.End)
}

func (s *appService) GetBalanceSheet(ctx context.Context, req PeriodRequest) (*core.BalanceSheet, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	return s.Reporting.GetBalanceSheet(ctx, w.End)
}

func (s *appService) GetCashFlow(ctx context.Context, req PeriodRequest) (*core.CashFlowStatement, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	return s.Reporting.GetCashFlow(ctx, w)
}

func (s *appService) GetProfitAndLoss(ctx context.Context, req PeriodRequest) (*core.ProfitAndLoss, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	return s.Reporting.GetProfitAndLoss(ctx, w)
}

func (s *appService) GetReconciliation(ctx context.Context, req PeriodRequest) (*core.Reconciliation, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	return s.Reporting.GetReconciliation(ctx, w)
}

func (s *appService) GetAlerts(ctx context.Context) (*core.Alerts, error) {
	return s.Reporting.GetAlerts(ctx, s.Now())
}

func (s *appService) GetExceptionReport(ctx context.Context, req PeriodRequest) (*core.ExceptionReport, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	return s.Reporting.GetExceptionReport(ctx, w, s.Now())
}

func (s *appService) GetAgingReport(ctx context.Context) (*core.AgingReport, error) {
	return s.Reporting.GetAgingReport(ctx, s.Now())
}

func (s *appService) GetPartyPerformance(ctx context.Context, req PeriodRequest) (*core.PartyPerformanceReport, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	return s.Reporting.GetPartyPerformance(ctx, w, s.Now())
}

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.Inventory.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) VerifyBooks(ctx context.Context, req PeriodRequest) (*VerifyResult, error) {
	w, err := s.window(req)
	if err != nil {
		return nil, err
	}
	checks, err := s.Reporting.VerifyStock(ctx)
	if err != nil {
		return nil, err
	}
	gl, err := s.Reporting.GetGeneralLedger(ctx, w, "")
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{Window: w, Stock: checks, StockOK: true, LedgerBalanced: gl.IsBalanced}
	for _, c := range checks {
		if !c.Consistent() {
			res.StockOK = false
			s.Log.WithFields(logrus.Fields{
				"product":   c.ProductID,
				"batch_qty": c.BatchQty,
				"movements": c.MovementQty,
			}).Warn("stock does not match movements")
		}
	}
	res.OK = res.StockOK && res.LedgerBalanced
	return res, nil
}

// ── Writes ────────────────────────────────────────────────────────────────────

func (s *appService) PreviewCogs(ctx context.Context, req PreviewCogsRequest) (*core.CogsResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.Inventory.AllocateCogs(ctx, req.ProductID, req.Quantity)
}

func (s *appService) CreateSale(ctx context.Context, req CreateSaleRequest) (*core.SaleOutcome, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	date, err := parseDate("invoice_date", req.InvoiceDate, s.Location, s.Now())
	if err != nil {
		return nil, err
	}

	in := core.SaleInput{
		PartyID:        req.PartyID,
		InvoiceDate:    date,
		IdempotencyKey: req.IdempotencyKey,
		RejectOversell: req.RejectOversell,
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}
	for i, l := range req.Lines {
		price, err := parseAmount(fmt.Sprintf("lines[%d].price_per_item", i), l.PricePerItem)
		if err != nil {
			return nil, err
		}
		line := core.SaleLineInput{ProductID: l.ProductID, Quantity: l.Quantity, PricePerItem: price}
		if l.GSTRate != "" {
			rate, err := parseAmount(fmt.Sprintf("lines[%d].gst_rate", i), l.GSTRate)
			if err != nil {
				return nil, err
			}
			line.GSTRate = &rate
		}
		in.Lines = append(in.Lines, line)
	}

	release, err := s.Guard.Acquire(ctx, "sale:"+in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.Sales.CreateSalesInvoice(ctx, in)
}

func (s *appService) AddPurchaseBatch(ctx context.Context, req AddBatchRequest) (*core.Batch, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	cost, err := parseAmount("cost_per_item", req.CostPerItem)
	if err != nil {
		return nil, err
	}
	paid := decimal.Zero
	if req.PaidAmount != "" {
		if paid, err = parseAmount("paid_amount", req.PaidAmount); err != nil {
			return nil, err
		}
	}
	received, err := parseDate("received_at", req.ReceivedAt, s.Location, s.Now())
	if err != nil {
		return nil, err
	}

	in := core.PurchaseBatchInput{
		ProductID:   req.ProductID,
		BatchNumber: req.BatchNumber,
		Quantity:    req.Quantity,
		CostPerItem: cost,
		ReceivedAt:  received,
		PaidAmount:  paid,
	}
	if req.SupplierID > 0 {
		supplier := req.SupplierID
		in.SupplierID = &supplier
	}
	if req.ExpiryDate != "" {
		expiry, err := parseDate("expiry_date", req.ExpiryDate, s.Location, time.Time{})
		if err != nil {
			return nil, err
		}
		in.ExpiryDate = &expiry
	}
	return s.Inventory.AddPurchaseBatch(ctx, in)
}

func (s *appService) RecordPayment(ctx context.Context, req PaymentRequest) (*core.Settlement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	paidAt, err := parseDate("paid_at", req.PaidAt, s.Location, s.Now())
	if err != nil {
		return nil, err
	}
	if req.Kind == PaymentPayable {
		return s.Settlements.RecordPayablePayment(ctx, req.ID, amount, paidAt)
	}
	return s.Settlements.RecordReceivablePayment(ctx, req.ID, amount, paidAt)
}

func (s *appService) RecordExpense(ctx context.Context, req ExpenseRequest) (*core.Expense, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	date, err := parseDate("expense_date", req.ExpenseDate, s.Location, s.Now())
	if err != nil {
		return nil, err
	}
	return s.Expenses.RecordExpense(ctx, core.ExpenseInput{
		Category:        req.Category,
		Title:           req.Title,
		Amount:          amount,
		ExpenseDate:     date,
		PaymentMode:     req.PaymentMode,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
}

// ── Insights ──────────────────────────────────────────────────────────────────

func (s *appService) AskInsights(ctx context.Context, req InsightsRequest) (*InsightsResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if s.Summarizer == nil {
		return nil, fmt.Errorf("insights are not configured: %w", core.ErrUnavailable)
	}

	period := s.currentPeriod()
	facts := InsightsFacts{Period: period}
	var err error
	if facts.ProfitAndLoss, err = s.GetProfitAndLoss(ctx, period); err != nil {
		return nil, err
	}
	if facts.CashFlow, err = s.GetCashFlow(ctx, period); err != nil {
		return nil, err
	}
	if facts.Reconciliation, err = s.GetReconciliation(ctx, period); err != nil {
		return nil, err
	}
	if facts.Alerts, err = s.GetAlerts(ctx); err != nil {
		return nil, err
	}
	if facts.Aging, err = s.GetAgingReport(ctx); err != nil {
		return nil, err
	}

	insight, err := s.Summarizer.Summarize(ctx, req.Question, facts)
	if err != nil {
		return nil, err
	}
	return &InsightsResult{Question: req.Question, Period: period, Insight: insight}, nil
}
