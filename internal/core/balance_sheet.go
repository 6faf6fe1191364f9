package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type BalanceSheetAssets struct {
	Cash        decimal.Decimal `json:"cash"`
	Receivables decimal.Decimal `json:"receivables"`
	Inventory   decimal.Decimal `json:"inventory"`
	Total       decimal.Decimal `json:"total"`
}

type BalanceSheetLiabilities struct {
	Payables decimal.Decimal `json:"payables"`
	Loans    decimal.Decimal `json:"loans"`
	Total    decimal.Decimal `json:"total"`
}

// BalanceSheet is a point-in-time position. Equity is the plug that makes
// Assets.Total == Liabilities.Total + Equity hold exactly.
type BalanceSheet struct {
	AsOf        time.Time               `json:"as_of"`
	Assets      BalanceSheetAssets      `json:"assets"`
	Liabilities BalanceSheetLiabilities `json:"liabilities"`
	Equity      decimal.Decimal         `json:"equity"`
	IsBalanced  bool                    `json:"is_balanced"`
}

// BuildBalanceSheet computes the position strictly before cutoff.
//
// Cash is a proxy: settled receivables minus settled payables minus expenses.
// Receivables and payables count at their full amount when created before the
// cutoff and not settled before it. Inventory is the remaining quantity of
// batches received before the cutoff at their unit cost.
func BuildBalanceSheet(b Books, cutoff time.Time) *BalanceSheet {
	cash := decimal.Zero
	receivables := decimal.Zero
	for _, r := range b.Receivables {
		if !r.CreatedAt.Before(cutoff) {
			continue
		}
		if r.SettledBefore(cutoff) {
			cash = cash.Add(r.TotalAmount)
		} else {
			receivables = receivables.Add(r.TotalAmount)
		}
	}

	payables := decimal.Zero
	for _, p := range b.Payables {
		if !p.CreatedAt.Before(cutoff) {
			continue
		}
		if p.SettledBefore(cutoff) {
			cash = cash.Sub(p.TotalAmount)
		} else {
			payables = payables.Add(p.TotalAmount)
		}
	}

	for _, e := range b.Expenses {
		if e.ExpenseDate.Before(cutoff) {
			cash = cash.Sub(e.Amount)
		}
	}

	inventory := decimal.Zero
	for _, bt := range b.Batches {
		if !bt.CreatedAt.Before(cutoff) || bt.Quantity <= 0 {
			continue
		}
		inventory = inventory.Add(bt.CostPerItem.Mul(decimal.NewFromInt(int64(bt.Quantity))))
	}

	bs := &BalanceSheet{AsOf: cutoff}
	bs.Assets = BalanceSheetAssets{
		Cash:        money(cash),
		Receivables: money(receivables),
		Inventory:   money(inventory),
	}
	bs.Assets.Total = bs.Assets.Cash.Add(bs.Assets.Receivables).Add(bs.Assets.Inventory)
	bs.Liabilities = BalanceSheetLiabilities{Payables: money(payables), Loans: decimal.Zero}
	bs.Liabilities.Total = bs.Liabilities.Payables.Add(bs.Liabilities.Loans)
	bs.Equity = bs.Assets.Total.Sub(bs.Liabilities.Total)
	bs.IsBalanced = bs.Assets.Total.Equal(bs.Liabilities.Total.Add(bs.Equity))
	return bs
}
