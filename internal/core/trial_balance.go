package core

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TrialBalanceBalanced = "Balanced"
	TrialBalanceMismatch = "Mismatch"
)

// balanceTolerance is the largest Dr/Cr difference still reported as balanced.
var balanceTolerance = decimal.RequireFromString("0.01")

type TrialBalanceLine struct {
	Name      string          `json:"name"`
	Group     string          `json:"group"`
	PartyID   int             `json:"party_id,omitempty"`
	PartyType PartyType       `json:"party_type,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	// Side is "Dr" or "Cr" depending on which column carries the balance.
	Side string `json:"side"`
}

type TrialBalance struct {
	AsOf        time.Time          `json:"as_of"`
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	Difference  decimal.Decimal    `json:"difference"`
	IsBalanced  bool               `json:"is_balanced"`
	Status      string             `json:"status"`
}

// BuildTrialBalance nets party ledger transactions per party and groups
// expenses by category, counting only records strictly before cutoff. Every
// party with a transaction gets a line; a zero net is shown on the Dr side. The
// result is not forced to balance; a difference of 0.01 or more is reported
// with the Mismatch status.
func BuildTrialBalance(b Books, cutoff time.Time) *TrialBalance {
	type partyAcc struct {
		id    int
		name  string
		ptype PartyType
		net   decimal.Decimal
	}
	parties := map[int]*partyAcc{}
	for _, t := range b.PartyTxns {
		if !t.Date.Before(cutoff) {
			continue
		}
		p, ok := parties[t.PartyID]
		if !ok {
			p = &partyAcc{id: t.PartyID, name: t.PartyName, ptype: t.PartyType}
			parties[t.PartyID] = p
		}
		if t.Type == PartyDebit {
			p.net = p.net.Add(t.Amount)
		} else {
			p.net = p.net.Sub(t.Amount)
		}
	}

	partyLines := make([]TrialBalanceLine, 0, len(parties))
	for _, p := range parties {
		// A settled party stays listed as a zero Dr line.
		line := TrialBalanceLine{Name: p.name, Group: "Party", PartyID: p.id, PartyType: p.ptype, Debit: decimal.Zero, Credit: decimal.Zero}
		if !p.net.IsNegative() {
			line.Debit, line.Side = money(p.net), "Dr"
		} else {
			line.Credit, line.Side = money(p.net.Neg()), "Cr"
		}
		partyLines = append(partyLines, line)
	}
	slices.SortFunc(partyLines, func(a, b TrialBalanceLine) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.PartyID, b.PartyID)
	})

	categories := map[string]decimal.Decimal{}
	for _, e := range b.Expenses {
		if !e.ExpenseDate.Before(cutoff) {
			continue
		}
		categories[e.Category] = categories[e.Category].Add(e.Amount)
	}
	expenseLines := make([]TrialBalanceLine, 0, len(categories))
	for cat, amt := range categories {
		expenseLines = append(expenseLines, TrialBalanceLine{
			Name: "Expense: " + cat, Group: "Expense", Debit: money(amt), Credit: decimal.Zero, Side: "Dr",
		})
	}
	slices.SortFunc(expenseLines, func(a, b TrialBalanceLine) int { return cmp.Compare(a.Name, b.Name) })

	tb := &TrialBalance{AsOf: cutoff, Lines: append(partyLines, expenseLines...)}
	for _, l := range tb.Lines {
		tb.TotalDebit = tb.TotalDebit.Add(l.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(l.Credit)
	}
	tb.TotalDebit = money(tb.TotalDebit)
	tb.TotalCredit = money(tb.TotalCredit)
	tb.Difference = tb.TotalDebit.Sub(tb.TotalCredit)
	tb.IsBalanced = tb.Difference.Abs().LessThan(balanceTolerance)
	tb.Status = TrialBalanceMismatch
	if tb.IsBalanced {
		tb.Status = TrialBalanceBalanced
	}
	return tb
}
