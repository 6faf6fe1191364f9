package core

import "github.com/shopspring/decimal"

const (
	AdjustmentReceivables = "Credit Sales Impact (Receivables)"
	AdjustmentInventory   = "Inventory & Payables Timing"
	AdjustmentLoans       = "Loan Principal Movements"
	AdjustmentUnexplained = "Unexplained Residual"
)

type ReconciliationLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	// Detail splits a combined adjustment into its parts, when known.
	Detail []ReconciliationLine `json:"detail,omitempty"`
}

// Reconciliation explains the difference between accrual profit and net cash
// flow for one window. NetProfit plus the sum of Adjustments (including the
// unexplained residual) equals NetCashFlow.
type Reconciliation struct {
	Window      Window               `json:"window"`
	NetProfit   decimal.Decimal      `json:"net_profit"`
	NetCashFlow decimal.Decimal      `json:"net_cash_flow"`
	Gap         decimal.Decimal      `json:"gap"`
	Adjustments []ReconciliationLine `json:"adjustments"`
}

func BuildReconciliation(b Books, w Window, rules RuleEngine) *Reconciliation {
	pl := BuildProfitAndLoss(b, w)
	cf := BuildCashFlow(b, w, rules)
	acc := accrualTotals(b, w)
	cash := cashTotals(b, w, rules)

	purchases := decimal.Zero
	for _, p := range b.Purchases {
		if w.Contains(p.Date) {
			purchases = purchases.Add(p.TotalAmount)
		}
	}

	receivables := money(cash.cashIn.Sub(acc.revenue))
	inventory := money(acc.cogs.Sub(cash.supplierPaid))
	loans := decimal.Zero

	gap := cf.NetCashFlow.Sub(pl.NetProfit)
	unexplained := gap.Sub(receivables).Sub(inventory).Sub(loans)

	return &Reconciliation{
		Window:      w,
		NetProfit:   pl.NetProfit,
		NetCashFlow: cf.NetCashFlow,
		Gap:         gap,
		Adjustments: []ReconciliationLine{
			{Label: AdjustmentReceivables, Amount: receivables},
			{
				Label:  AdjustmentInventory,
				Amount: inventory,
				Detail: []ReconciliationLine{
					{Label: "Inventory build-up", Amount: money(acc.cogs.Sub(purchases))},
					{Label: "Supplier credit", Amount: money(purchases.Sub(cash.supplierPaid))},
				},
			},
			{Label: AdjustmentLoans, Amount: loans},
			{Label: AdjustmentUnexplained, Amount: unexplained},
		},
	}
}

// AdjustmentTotal sums the top-level adjustments.
func (r *Reconciliation) AdjustmentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.Adjustments {
		total = total.Add(a.Amount)
	}
	return total
}
