package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"erp-ledger/internal/app"
	"erp-ledger/internal/core"

	"github.com/shopspring/decimal"
)

const width = 62

func rule(w io.Writer, ch string) { fmt.Fprintln(w, strings.Repeat(ch, width)) }

func title(w io.Writer, name, subtitle string) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  %-58s\n", name)
	if subtitle != "" {
		fmt.Fprintf(w, "  %s\n", subtitle)
	}
	rule(w, "=")
}

func amountLine(w io.Writer, label string, d decimal.Decimal) {
	fmt.Fprintf(w, "  %-42s %15s\n", label, d.StringFixed(2))
}

func windowLabel(win core.Window) string {
	last := win.End.Add(-time.Nanosecond)
	return fmt.Sprintf("Period   : %s to %s", win.Start.Format(time.DateOnly), last.Format(time.DateOnly))
}

func asOfLabel(t time.Time) string {
	return "As of    : " + t.Format(time.RFC3339) + " (exclusive)"
}

func printProfitAndLoss(w io.Writer, r *core.ProfitAndLoss) {
	title(w, "PROFIT AND LOSS", windowLabel(r.Window))
	amountLine(w, fmt.Sprintf("Revenue (%d invoices)", r.InvoiceCount), r.Revenue)
	amountLine(w, "Cost of goods sold", r.Cogs)
	rule(w, "-")
	amountLine(w, "Gross profit", r.GrossProfit)
	for _, c := range r.ExpensesByCategory {
		amountLine(w, "  "+c.Category, c.Amount)
	}
	amountLine(w, "Total expenses", r.Expenses)
	rule(w, "=")
	amountLine(w, "NET PROFIT", r.NetProfit)
}

func printCashFlow(w io.Writer, r *core.CashFlowStatement) {
	title(w, "CASH FLOW STATEMENT", windowLabel(r.Window))
	fmt.Fprintln(w, "  Operating activities")
	amountLine(w, "  Cash from customers", r.Operating.CashFromCustomers)
	amountLine(w, "  Paid to suppliers", r.Operating.PaidToSuppliers.Neg())
	amountLine(w, "  Operating expenses", r.Operating.OperatingExpenses.Neg())
	amountLine(w, "Net operating", r.Operating.Net)
	fmt.Fprintln(w, "  Financing activities")
	amountLine(w, "  Interest paid", r.Financing.InterestPaid.Neg())
	amountLine(w, "  Loan principal", r.Financing.LoanPrincipal)
	amountLine(w, "Net financing", r.Financing.Net)
	amountLine(w, "Net investing", r.Investing)
	rule(w, "=")
	amountLine(w, "NET CASH FLOW", r.NetCashFlow)
}

func printReconciliation(w io.Writer, r *core.Reconciliation) {
	title(w, "PROFIT VS CASH RECONCILIATION", windowLabel(r.Window))
	amountLine(w, "Net profit", r.NetProfit)
	for _, a := range r.Adjustments {
		amountLine(w, a.Label, a.Amount)
		for _, d := range a.Detail {
			amountLine(w, "  "+d.Label, d.Amount)
		}
	}
	rule(w, "-")
	amountLine(w, "Net cash flow", r.NetCashFlow)
	amountLine(w, "Gap (cash - profit)", r.Gap)
}

func printTrialBalance(w io.Writer, r *core.TrialBalance) {
	title(w, "TRIAL BALANCE", asOfLabel(r.AsOf))
	fmt.Fprintf(w, "  %-28s %14s %14s\n", "NAME", "DEBIT", "CREDIT")
	rule(w, "-")
	for _, l := range r.Lines {
		fmt.Fprintf(w, "  %-28s %14s %14s\n", truncate(l.Name, 28), l.Debit.StringFixed(2), l.Credit.StringFixed(2))
	}
	rule(w, "-")
	fmt.Fprintf(w, "  %-28s %14s %14s\n", "TOTAL", r.TotalDebit.StringFixed(2), r.TotalCredit.StringFixed(2))
	rule(w, "=")
	fmt.Fprintf(w, "  Status: %s (difference %s)\n", r.Status, r.Difference.StringFixed(2))
}

func printBalanceSheet(w io.Writer, r *core.BalanceSheet) {
	title(w, "BALANCE SHEET", asOfLabel(r.AsOf))
	fmt.Fprintln(w, "  Assets")
	amountLine(w, "  Cash / Bank", r.Assets.Cash)
	amountLine(w, "  Receivables", r.Assets.Receivables)
	amountLine(w, "  Inventory", r.Assets.Inventory)
	amountLine(w, "Total assets", r.Assets.Total)
	fmt.Fprintln(w, "  Liabilities")
	amountLine(w, "  Payables", r.Liabilities.Payables)
	amountLine(w, "  Loans", r.Liabilities.Loans)
	amountLine(w, "Total liabilities", r.Liabilities.Total)
	amountLine(w, "Equity", r.Equity)
	rule(w, "=")
	fmt.Fprintf(w, "  Balanced: %t\n", r.IsBalanced)
}

func printGeneralLedger(w io.Writer, r *core.GeneralLedger) {
	sub := windowLabel(r.Window)
	if r.Account != "" {
		sub += "  Account: " + r.Account
	}
	title(w, "GENERAL LEDGER", sub)
	fmt.Fprintf(w, "  %-10s %-20s %12s %12s\n", "DATE", "ACCOUNT", "DEBIT", "CREDIT")
	rule(w, "-")
	for _, row := range r.Rows {
		fmt.Fprintf(w, "  %-10s %-20s %12s %12s  %s\n",
			row.Date.Format(time.DateOnly), truncate(row.Account, 20),
			row.Debit.StringFixed(2), row.Credit.StringFixed(2), row.Reference)
	}
	rule(w, "-")
	fmt.Fprintf(w, "  %-31s %12s %12s\n", "TOTAL", r.TotalDebit.StringFixed(2), r.TotalCredit.StringFixed(2))
	fmt.Fprintf(w, "  Balanced: %t\n", r.IsBalanced)
}

func printExceptions(w io.Writer, r *core.ExceptionReport) {
	title(w, "EXCEPTIONS", windowLabel(r.Window))
	if len(r.ExpenseSpikes) == 0 && r.SalesDrop == nil && len(r.Overdue) == 0 {
		fmt.Fprintln(w, "  No exceptions.")
		return
	}
	for _, s := range r.ExpenseSpikes {
		fmt.Fprintf(w, "  Expense spike  %-20s %12s -> %12s (%s%%)\n",
			truncate(s.Category, 20), s.Previous.StringFixed(2), s.Current.StringFixed(2), s.ChangePercent.StringFixed(1))
	}
	if d := r.SalesDrop; d != nil {
		fmt.Fprintf(w, "  Sales drop     %-20s %12s -> %12s (%s%%)\n",
			"", d.Previous.StringFixed(2), d.Current.StringFixed(2), d.ChangePercent.StringFixed(1))
	}
	for _, o := range r.Overdue {
		fmt.Fprintf(w, "  Overdue        %-20s %12s  %d days  %s\n",
			truncate(o.Customer, 20), o.Amount.StringFixed(2), o.Days, o.Reference)
	}
}

func printAging(w io.Writer, r *core.AgingReport) {
	title(w, "AGING", asOfLabel(r.AsOf))
	for _, b := range []string{core.BucketCurrent, core.BucketOverdue, core.BucketCritical} {
		amountLine(w, "Receivables "+b, r.BucketTotals[b])
	}
	rule(w, "-")
	fmt.Fprintln(w, "  Customer exposure")
	for _, e := range r.Exposure {
		amountLine(w, "  "+truncate(e.Name, 38), e.Outstanding)
	}
	rule(w, "-")
	fmt.Fprintln(w, "  Payables")
	for _, p := range r.Payables {
		fmt.Fprintf(w, "  %-24s %12s %4d days  %s\n", truncate(p.Party, 24), p.Amount.StringFixed(2), p.Days, p.Bucket)
	}
}

func printPartyPerformance(w io.Writer, r *core.PartyPerformanceReport) {
	title(w, "PARTY PERFORMANCE", windowLabel(r.Window))
	fmt.Fprintf(w, "  %-24s %4s %12s %12s %6s\n", "CUSTOMER", "INV", "TOTAL", "OUTSTANDING", "DELAY")
	rule(w, "-")
	if len(r.Parties) == 0 {
		fmt.Fprintln(w, "  No invoices in this period.")
		return
	}
	for _, p := range r.Parties {
		fmt.Fprintf(w, "  %-24s %4d %12s %12s %4dd\n",
			truncate(p.Name, 24), p.Invoices, p.Total.StringFixed(2), p.Outstanding.StringFixed(2), p.AvgDelayDays)
	}
}

func printAlerts(w io.Writer, r *core.Alerts) {
	title(w, fmt.Sprintf("ALERTS (%d)", r.TotalAlerts), "")
	for _, e := range r.Expiring {
		fmt.Fprintf(w, "  %-13s %-20s batch %-10s qty %5d  %4d days\n",
			e.Status, truncate(e.ProductName, 20), e.BatchNumber, e.Quantity, e.RemainingDays)
	}
	for _, l := range r.LowStock {
		fmt.Fprintf(w, "  %-13s %-20s stock %5d  threshold %d\n", "LOW_STOCK", truncate(l.Name, 20), l.TotalStock, l.Threshold)
	}
}

func printProducts(w io.Writer, r *app.ProductListResult) {
	title(w, "PRODUCTS", "")
	fmt.Fprintf(w, "  %-5s %-28s %10s %6s\n", "ID", "NAME", "PRICE", "GST")
	rule(w, "-")
	for _, p := range r.Products {
		fmt.Fprintf(w, "  %-5d %-28s %10s %6s\n", p.ID, truncate(p.Name, 28), p.Price.StringFixed(2), p.GSTRate.String())
	}
}

func printCogs(w io.Writer, r *core.CogsResult) {
	title(w, "FIFO COST PREVIEW", fmt.Sprintf("Requested %d, allocated %d", r.QuantityRequested, r.QuantityAllocated))
	fmt.Fprintf(w, "  %-10s %10s %14s\n", "BATCH", "QTY", "COST/ITEM")
	rule(w, "-")
	for _, c := range r.Plan {
		fmt.Fprintf(w, "  %-10d %10d %14s\n", c.BatchID, c.QuantityUsed, c.CostPerItem.StringFixed(2))
	}
	rule(w, "-")
	amountLine(w, "COGS total", r.CogsTotal)
	amountLine(w, "COGS per item", r.CogsPerItem)
	if r.Oversold {
		fmt.Fprintln(w, "  WARNING: requested quantity exceeds available stock")
	}
}

func printVerify(w io.Writer, r *app.VerifyResult) {
	title(w, "BOOKS VERIFICATION", windowLabel(r.Window))
	for _, c := range r.Stock {
		mark := "ok"
		if !c.Consistent() {
			mark = "MISMATCH"
		}
		fmt.Fprintf(w, "  %-28s batches %6d movements %6d  %s\n", truncate(c.ProductName, 28), c.BatchQty, c.MovementQty, mark)
	}
	rule(w, "-")
	fmt.Fprintf(w, "  Stock consistent : %t\n", r.StockOK)
	fmt.Fprintf(w, "  Ledger balanced  : %t\n", r.LedgerBalanced)
	if r.OK {
		fmt.Fprintln(w, "  Books verified.")
	} else {
		fmt.Fprintln(w, "  Books verification FAILED.")
	}
}

func printInsights(w io.Writer, r *app.InsightsResult) {
	title(w, "INSIGHTS", fmt.Sprintf("Period   : %04d-%02d", r.Period.Year, r.Period.Month))
	fmt.Fprintf(w, "  Q: %s\n\n", r.Question)
	if r.Insight == nil {
		return
	}
	fmt.Fprintf(w, "  %s\n", r.Insight.Summary)
	for _, h := range r.Insight.Highlights {
		fmt.Fprintf(w, "  + %s\n", h)
	}
	for _, risk := range r.Insight.Risks {
		fmt.Fprintf(w, "  ! %s\n", risk)
	}
	fmt.Fprintf(w, "  Confidence: %.0f%%\n", r.Insight.Confidence*100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
