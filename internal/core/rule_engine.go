package core

import "strings"

// CategoryInterest is the expense category booked as interest and reported
// under financing cash flows.
const CategoryInterest = "Interest on Loans"

// RuleEngine resolves which ledger account an expense category posts to and
// whether it belongs to financing rather than operating activity.
type RuleEngine interface {
	ResolveExpenseAccount(category string) string
	IsFinancing(category string) bool
}

type ruleEngine struct {
	accounts  map[string]string
	financing map[string]bool
}

// NewRuleEngine returns the default rules: "Interest on Loans" posts to
// Interest Expense and counts as financing; every other category posts to
// "Expense: <category>". overrides maps a category to a custom account name.
func NewRuleEngine(overrides map[string]string) RuleEngine {
	r := &ruleEngine{
		accounts:  map[string]string{normalizeCategory(CategoryInterest): AccountInterest},
		financing: map[string]bool{normalizeCategory(CategoryInterest): true},
	}
	for cat, acct := range overrides {
		if strings.TrimSpace(acct) == "" {
			continue
		}
		r.accounts[normalizeCategory(cat)] = acct
	}
	return r
}

func (r *ruleEngine) ResolveExpenseAccount(category string) string {
	if acct, ok := r.accounts[normalizeCategory(category)]; ok {
		return acct
	}
	return "Expense: " + category
}

func (r *ruleEngine) IsFinancing(category string) bool {
	return r.financing[normalizeCategory(category)]
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
