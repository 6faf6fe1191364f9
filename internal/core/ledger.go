package core

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRow is one side of a derived double-entry posting. Rows are never
// stored; they are projected from raw events on every request.
type LedgerRow struct {
	Date      time.Time       `json:"date"`
	Account   string          `json:"account"`
	Type      AccountType     `json:"type"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Reference string          `json:"reference"`
	// RunningBalance is the cumulative debit minus credit. It is only
	// populated when the ledger is filtered to a single account.
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// AccountSummary totals the projected rows of one account.
type AccountSummary struct {
	Account string          `json:"account"`
	Type    AccountType     `json:"type"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Balance decimal.Decimal `json:"balance"`
}

type GeneralLedger struct {
	Window      Window           `json:"window"`
	Account     string           `json:"account,omitempty"`
	Rows        []LedgerRow      `json:"rows"`
	Accounts    []AccountSummary `json:"accounts"`
	TotalDebit  decimal.Decimal  `json:"total_debit"`
	TotalCredit decimal.Decimal  `json:"total_credit"`
	// IsBalanced is computed over the unfiltered projection.
	IsBalanced bool `json:"is_balanced"`
}

// ProjectLedger maps every event in b that falls inside w to balanced
// debit/credit rows, sorted by date. Rows with equal dates keep projection
// order. account, when non-empty, restricts the returned rows to that account
// after sorting; it never affects IsBalanced.
func ProjectLedger(b Books, w Window, rules RuleEngine, account string) *GeneralLedger {
	rows := projectRows(b, w, rules)
	slices.SortStableFunc(rows, func(x, y LedgerRow) int {
		return x.Date.Compare(y.Date)
	})

	allDebit, allCredit := decimal.Zero, decimal.Zero
	for _, r := range rows {
		allDebit = allDebit.Add(r.Debit)
		allCredit = allCredit.Add(r.Credit)
	}

	gl := &GeneralLedger{
		Window:     w,
		Account:    account,
		Rows:       rows,
		Accounts:   summarizeAccounts(rows),
		IsBalanced: allDebit.Equal(allCredit),
	}

	if account != "" {
		filtered := make([]LedgerRow, 0)
		running := decimal.Zero
		for _, r := range rows {
			if !strings.EqualFold(r.Account, account) {
				continue
			}
			running = running.Add(r.Debit).Sub(r.Credit)
			r.RunningBalance = running
			filtered = append(filtered, r)
		}
		gl.Rows = filtered
	}

	for _, r := range gl.Rows {
		gl.TotalDebit = gl.TotalDebit.Add(r.Debit)
		gl.TotalCredit = gl.TotalCredit.Add(r.Credit)
	}
	gl.TotalDebit = money(gl.TotalDebit)
	gl.TotalCredit = money(gl.TotalCredit)
	return gl
}

func projectRows(b Books, w Window, rules RuleEngine) []LedgerRow {
	rows := make([]LedgerRow, 0)
	post := func(date time.Time, debit, credit string, amount decimal.Decimal, ref string) {
		rows = append(rows,
			LedgerRow{Date: date, Account: debit, Type: accountTypeOf(debit), Debit: amount, Credit: decimal.Zero, Reference: ref},
			LedgerRow{Date: date, Account: credit, Type: accountTypeOf(credit), Debit: decimal.Zero, Credit: amount, Reference: ref},
		)
	}

	for _, inv := range b.Invoices {
		if !w.Contains(inv.InvoiceDate) {
			continue
		}
		post(inv.InvoiceDate, AccountReceivable, AccountSales, inv.TotalAmount, "Invoice: "+inv.InvoiceNumber)
		for _, l := range inv.Lines {
			if l.CogsTotal.IsPositive() {
				post(inv.InvoiceDate, AccountCOGS, AccountInventory, l.CogsTotal, "COGS for "+inv.InvoiceNumber)
			}
		}
	}

	for _, r := range b.Receivables {
		if r.Status() != StatusCompleted || !w.Contains(r.UpdatedAt) {
			continue
		}
		post(r.UpdatedAt, AccountCash, AccountReceivable, r.TotalAmount, "Payment for "+r.Reference)
	}

	for _, p := range b.Purchases {
		if !w.Contains(p.Date) {
			continue
		}
		post(p.Date, AccountInventory, AccountPayable, p.TotalAmount, "Purchase Batch: "+p.BatchNumber)
	}

	for _, p := range b.Payables {
		if p.Status() != StatusCompleted || !w.Contains(p.UpdatedAt) {
			continue
		}
		post(p.UpdatedAt, AccountPayable, AccountCash, p.TotalAmount, "Payment to Supplier for "+p.Reference)
	}

	for _, e := range b.Expenses {
		if !w.Contains(e.ExpenseDate) {
			continue
		}
		post(e.ExpenseDate, rules.ResolveExpenseAccount(e.Category), AccountCash, e.Amount, "Expense: "+e.Title)
	}

	return rows
}

func summarizeAccounts(rows []LedgerRow) []AccountSummary {
	byName := map[string]*AccountSummary{}
	for _, r := range rows {
		s, ok := byName[r.Account]
		if !ok {
			s = &AccountSummary{Account: r.Account, Type: r.Type}
			byName[r.Account] = s
		}
		s.Debit = s.Debit.Add(r.Debit)
		s.Credit = s.Credit.Add(r.Credit)
	}
	out := make([]AccountSummary, 0, len(byName))
	for _, s := range byName {
		s.Balance = money(s.Debit.Sub(s.Credit))
		s.Debit = money(s.Debit)
		s.Credit = money(s.Credit)
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b AccountSummary) int { return cmp.Compare(a.Account, b.Account) })
	return out
}

func accountTypeOf(name string) AccountType {
	switch name {
	case AccountReceivable, AccountInventory, AccountCash:
		return AccountAsset
	case AccountPayable:
		return AccountLiability
	case AccountSales:
		return AccountRevenue
	default:
		return AccountExpense
	}
}
