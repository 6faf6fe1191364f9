package app

import (
	"erp-ledger/internal/ai"
	"erp-ledger/internal/core"
)

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// VerifyResult is returned by VerifyBooks. OK is true only when every product
// is consistent and the ledger balances.
type VerifyResult struct {
	Window         core.Window       `json:"window"`
	Stock          []core.StockCheck `json:"stock"`
	StockOK        bool              `json:"stock_ok"`
	LedgerBalanced bool              `json:"ledger_balanced"`
	OK             bool              `json:"ok"`
}

// InsightsFacts is what the summarizer sees. Only aggregated figures leave
// the process.
type InsightsFacts struct {
	Period         PeriodRequest           `json:"period"`
	ProfitAndLoss  *core.ProfitAndLoss     `json:"profit_and_loss"`
	CashFlow       *core.CashFlowStatement `json:"cash_flow"`
	Reconciliation *core.Reconciliation    `json:"reconciliation"`
	Alerts         *core.Alerts            `json:"alerts"`
	Aging          *core.AgingReport       `json:"aging"`
}

// InsightsResult is returned by AskInsights.
type InsightsResult struct {
	Question string        `json:"question"`
	Period   PeriodRequest `json:"period"`
	Insight  *ai.Insight   `json:"insight"`
}
