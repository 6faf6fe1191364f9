package core

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// ProfitAndLoss is accrual based: revenue and COGS follow invoice dates,
// expenses follow expense dates.
type ProfitAndLoss struct {
	Window             Window           `json:"window"`
	Revenue            decimal.Decimal  `json:"revenue"`
	Cogs               decimal.Decimal  `json:"cogs"`
	GrossProfit        decimal.Decimal  `json:"gross_profit"`
	Expenses           decimal.Decimal  `json:"expenses"`
	ExpensesByCategory []CategoryAmount `json:"expenses_by_category"`
	NetProfit          decimal.Decimal  `json:"net_profit"`
	InvoiceCount       int              `json:"invoice_count"`
}

func BuildProfitAndLoss(b Books, w Window) *ProfitAndLoss {
	t := accrualTotals(b, w)

	byCat := map[string]decimal.Decimal{}
	for _, e := range b.Expenses {
		if w.Contains(e.ExpenseDate) {
			byCat[e.Category] = byCat[e.Category].Add(e.Amount)
		}
	}
	cats := make([]CategoryAmount, 0, len(byCat))
	for c, amt := range byCat {
		cats = append(cats, CategoryAmount{Category: c, Amount: money(amt)})
	}
	slices.SortFunc(cats, func(a, b CategoryAmount) int { return cmp.Compare(a.Category, b.Category) })

	return &ProfitAndLoss{
		Window:             w,
		Revenue:            money(t.revenue),
		Cogs:               money(t.cogs),
		GrossProfit:        money(t.revenue.Sub(t.cogs)),
		Expenses:           money(t.expenses),
		ExpensesByCategory: cats,
		NetProfit:          money(t.revenue.Sub(t.cogs).Sub(t.expenses)),
		InvoiceCount:       t.invoices,
	}
}

type accrual struct {
	revenue  decimal.Decimal
	cogs     decimal.Decimal
	expenses decimal.Decimal
	invoices int
}

func accrualTotals(b Books, w Window) accrual {
	var a accrual
	for _, inv := range b.Invoices {
		if !w.Contains(inv.InvoiceDate) {
			continue
		}
		a.invoices++
		a.revenue = a.revenue.Add(inv.TotalAmount)
		a.cogs = a.cogs.Add(inv.CogsTotal())
	}
	for _, e := range b.Expenses {
		if w.Contains(e.ExpenseDate) {
			a.expenses = a.expenses.Add(e.Amount)
		}
	}
	return a
}

// ── Cash flow ─────────────────────────────────────────────────────────────────

type OperatingActivities struct {
	CashFromCustomers decimal.Decimal `json:"cash_from_customers"`
	PaidToSuppliers   decimal.Decimal `json:"paid_to_suppliers"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	Net               decimal.Decimal `json:"net"`
}

type FinancingActivities struct {
	InterestPaid  decimal.Decimal `json:"interest_paid"`
	LoanPrincipal decimal.Decimal `json:"loan_principal"`
	Net           decimal.Decimal `json:"net"`
}

// CashFlowStatement is cash based. A receivable or payable contributes only in
// the window containing its settlement time.
type CashFlowStatement struct {
	Window      Window              `json:"window"`
	Operating   OperatingActivities `json:"operating"`
	Financing   FinancingActivities `json:"financing"`
	Investing   decimal.Decimal     `json:"investing"`
	NetCashFlow decimal.Decimal     `json:"net_cash_flow"`
}

func BuildCashFlow(b Books, w Window, rules RuleEngine) *CashFlowStatement {
	t := cashTotals(b, w, rules)

	op := OperatingActivities{
		CashFromCustomers: money(t.cashIn),
		PaidToSuppliers:   money(t.supplierPaid),
		OperatingExpenses: money(t.operatingExpenses),
	}
	op.Net = op.CashFromCustomers.Sub(op.PaidToSuppliers).Sub(op.OperatingExpenses)

	fin := FinancingActivities{InterestPaid: money(t.interest), LoanPrincipal: decimal.Zero}
	fin.Net = fin.LoanPrincipal.Sub(fin.InterestPaid)

	return &CashFlowStatement{
		Window:      w,
		Operating:   op,
		Financing:   fin,
		Investing:   decimal.Zero,
		NetCashFlow: op.Net.Add(fin.Net),
	}
}

type cashMovement struct {
	cashIn            decimal.Decimal
	supplierPaid      decimal.Decimal
	operatingExpenses decimal.Decimal
	interest          decimal.Decimal
}

func cashTotals(b Books, w Window, rules RuleEngine) cashMovement {
	var c cashMovement
	for _, r := range b.Receivables {
		if r.Status() == StatusCompleted && w.Contains(r.UpdatedAt) {
			c.cashIn = c.cashIn.Add(r.TotalAmount)
		}
	}
	for _, p := range b.Payables {
		if p.Status() == StatusCompleted && w.Contains(p.UpdatedAt) {
			c.supplierPaid = c.supplierPaid.Add(p.TotalAmount)
		}
	}
	for _, e := range b.Expenses {
		if !w.Contains(e.ExpenseDate) {
			continue
		}
		if rules.IsFinancing(e.Category) {
			c.interest = c.interest.Add(e.Amount)
		} else {
			c.operatingExpenses = c.operatingExpenses.Add(e.Amount)
		}
	}
	return c
}
