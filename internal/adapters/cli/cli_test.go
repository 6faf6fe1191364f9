package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"erp-ledger/internal/adapters/cli"
	"erp-ledger/internal/ai"
	"erp-ledger/internal/app"
	"erp-ledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService implements only what the tests call; any other method panics
// through the nil embedded interface.
type stubService struct {
	app.ApplicationService

	period  app.PeriodRequest
	account string
	verify  *app.VerifyResult
	err     error
}

var march = core.Window{
	Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
}

func (s *stubService) GetProfitAndLoss(_ context.Context, req app.PeriodRequest) (*core.ProfitAndLoss, error) {
	s.period = req
	if s.err != nil {
		return nil, s.err
	}
	return &core.ProfitAndLoss{
		Window:             march,
		Revenue:            decimal.NewFromInt(1000),
		Cogs:               decimal.NewFromInt(600),
		GrossProfit:        decimal.NewFromInt(400),
		Expenses:           decimal.NewFromInt(100),
		ExpensesByCategory: []core.CategoryAmount{{Category: "Rent", Amount: decimal.NewFromInt(100)}},
		NetProfit:          decimal.NewFromInt(300),
		InvoiceCount:       1,
	}, nil
}

func (s *stubService) GetTrialBalance(_ context.Context, req app.PeriodRequest) (*core.TrialBalance, error) {
	s.period = req
	return &core.TrialBalance{
		AsOf: march.End,
		Lines: []core.TrialBalanceLine{
			{Name: "Asha Traders", Debit: decimal.NewFromInt(354), Side: "Dr"},
			{Name: "Sales", Credit: decimal.NewFromInt(354), Side: "Cr"},
		},
		TotalDebit:  decimal.NewFromInt(354),
		TotalCredit: decimal.NewFromInt(354),
		IsBalanced:  true,
		Status:      "Balanced",
	}, nil
}

func (s *stubService) GetGeneralLedger(_ context.Context, req app.PeriodRequest, account string) (*core.GeneralLedger, error) {
	s.period, s.account = req, account
	return &core.GeneralLedger{Window: march, Account: account, IsBalanced: true}, nil
}

func (s *stubService) PreviewCogs(_ context.Context, req app.PreviewCogsRequest) (*core.CogsResult, error) {
	return &core.CogsResult{
		QuantityRequested: req.Quantity,
		QuantityAllocated: 20,
		Plan: []core.BatchConsumption{
			{BatchID: 1, QuantityUsed: 10, CostPerItem: decimal.NewFromInt(5)},
			{BatchID: 2, QuantityUsed: 10, CostPerItem: decimal.NewFromInt(7)},
		},
		CogsTotal:   decimal.NewFromInt(120),
		CogsPerItem: decimal.NewFromInt(3),
		Oversold:    true,
	}, nil
}

func (s *stubService) VerifyBooks(_ context.Context, req app.PeriodRequest) (*app.VerifyResult, error) {
	s.period = req
	return s.verify, nil
}

func (s *stubService) AskInsights(_ context.Context, req app.InsightsRequest) (*app.InsightsResult, error) {
	return &app.InsightsResult{
		Question: req.Question,
		Period:   app.PeriodRequest{Year: 2026, Month: 3},
		Insight:  &ai.Insight{Summary: "Profit held up.", Highlights: []string{"Revenue 1000"}, Confidence: 0.8},
	}, nil
}

func (s *stubService) GetPartyPerformance(_ context.Context, req app.PeriodRequest) (*core.PartyPerformanceReport, error) {
	s.period = req
	return &core.PartyPerformanceReport{
		Window: march,
		Parties: []core.PartyPerformance{
			{PartyID: 1, Name: "Asha Traders", Invoices: 2, Total: decimal.NewFromInt(708), Outstanding: decimal.NewFromInt(354), AvgDelayDays: 12},
		},
	}, nil
}

func run(t *testing.T, svc app.ApplicationService, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := cli.Run(context.Background(), svc, args, &out)
	return out.String(), err
}

func TestRun_ProfitAndLoss(t *testing.T) {
	svc := &stubService{}
	out, err := run(t, svc, "pl", "2026", "3")
	require.NoError(t, err)

	assert.Equal(t, app.PeriodRequest{Year: 2026, Month: 3}, svc.period)
	assert.Contains(t, out, "PROFIT AND LOSS")
	assert.Contains(t, out, "Period   : 2026-03-01 to 2026-03-31")
	assert.Contains(t, out, "Revenue (1 invoices)")
	assert.Contains(t, out, strings.Repeat("=", 62))
	assert.Regexp(t, `NET PROFIT\s+300\.00`, out)
}

func TestRun_PartyPerformance(t *testing.T) {
	svc := &stubService{}
	out, err := run(t, svc, "parties", "2026", "3")
	require.NoError(t, err)

	assert.Equal(t, app.PeriodRequest{Year: 2026, Month: 3}, svc.period)
	assert.Contains(t, out, "PARTY PERFORMANCE")
	assert.Regexp(t, `Asha Traders\s+2\s+708\.00\s+354\.00\s+12d`, out)
}

func TestRun_JSON(t *testing.T) {
	out, err := run(t, &stubService{}, "json", "tb", "2026", "3")
	require.NoError(t, err)

	var tb core.TrialBalance
	require.NoError(t, json.Unmarshal([]byte(out), &tb))
	assert.True(t, tb.IsBalanced)
	assert.Len(t, tb.Lines, 2)
}

func TestRun_LedgerAccountAndAliases(t *testing.T) {
	svc := &stubService{}
	out, err := run(t, svc, "gl", "2026", "3", "Cash / Bank")
	require.NoError(t, err)
	assert.Equal(t, "Cash / Bank", svc.account)
	assert.Contains(t, out, "Account: Cash / Bank")

	out, err = run(t, svc, "bal", "2026", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "TRIAL BALANCE")
	assert.Contains(t, out, "Status: Balanced")
}

func TestRun_Cogs(t *testing.T) {
	out, err := run(t, &stubService{}, "cogs", "1", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "Requested 40, allocated 20")
	assert.Regexp(t, `COGS total\s+120\.00`, out)
	assert.Contains(t, out, "WARNING")
}

func TestRun_Verify(t *testing.T) {
	ok := &stubService{verify: &app.VerifyResult{
		Window:         march,
		Stock:          []core.StockCheck{{ProductID: 1, ProductName: "Paracetamol 500", BatchQty: 5, MovementQty: 5}},
		StockOK:        true,
		LedgerBalanced: true,
		OK:             true,
	}}
	out, err := run(t, ok, "verify", "2026", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Books verified.")

	bad := &stubService{verify: &app.VerifyResult{
		Window:         march,
		Stock:          []core.StockCheck{{ProductID: 1, ProductName: "Paracetamol 500", BatchQty: 5, MovementQty: 7}},
		LedgerBalanced: true,
	}}
	out, err = run(t, bad, "verify", "2026", "3")
	require.ErrorIs(t, err, cli.ErrVerifyFailed)
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "FAILED")
}

func TestRun_Ask(t *testing.T) {
	out, err := run(t, &stubService{}, "ask", "how", "was", "March?")
	require.NoError(t, err)
	assert.Contains(t, out, "Q: how was March?")
	assert.Contains(t, out, "+ Revenue 1000")
	assert.Contains(t, out, "Confidence: 80%")
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown", []string{"propose"}},
		{"missing month", []string{"pl", "2026"}},
		{"bad year", []string{"pl", "twenty", "3"}},
		{"cogs args", []string{"cogs", "1"}},
		{"ask without question", []string{"ask"}},
		{"bare json", []string{"json"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, &stubService{}, tc.args...)
			assert.ErrorIs(t, err, cli.ErrUsage)
		})
	}
}

func TestRun_ServiceErrorPassesThrough(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("month 13: %w", core.ErrInvalidInput)}
	out, err := run(t, svc, "pl", "2026", "13")
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, out)
}
