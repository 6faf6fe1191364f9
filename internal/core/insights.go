package core

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ── Exception report ──────────────────────────────────────────────────────────

var (
	expenseSpikeFactor = decimal.RequireFromString("1.3")
	salesDropFactor    = decimal.RequireFromString("0.8")
	hundred            = decimal.NewFromInt(100)
)

const overdueReceivableDays = 60

type ExpenseSpike struct {
	Category      string          `json:"category"`
	Previous      decimal.Decimal `json:"previous"`
	Current       decimal.Decimal `json:"current"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

type SalesDrop struct {
	Previous      decimal.Decimal `json:"previous"`
	Current       decimal.Decimal `json:"current"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

type OverdueReceivable struct {
	Customer  string          `json:"customer"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Days      int             `json:"days"`
}

type ExceptionReport struct {
	Window        Window              `json:"window"`
	ExpenseSpikes []ExpenseSpike      `json:"expense_spikes"`
	SalesDrop     *SalesDrop          `json:"sales_drop,omitempty"`
	Overdue       []OverdueReceivable `json:"overdue_receivables"`
}

// BuildExceptionReport compares w with the preceding window: expense
// categories that grew by more than 30%, and total sales that fell by more
// than 20%. It also lists receivables still pending more than 60 days after
// creation as of now.
func BuildExceptionReport(b Books, w Window, now time.Time) *ExceptionReport {
	prev := w.Previous()
	r := &ExceptionReport{Window: w, ExpenseSpikes: []ExpenseSpike{}, Overdue: []OverdueReceivable{}}

	current := expensesByCategory(b, w)
	previous := expensesByCategory(b, prev)
	for cat, curr := range current {
		p := previous[cat]
		if p.IsPositive() && curr.GreaterThan(p.Mul(expenseSpikeFactor)) {
			r.ExpenseSpikes = append(r.ExpenseSpikes, ExpenseSpike{
				Category:      cat,
				Previous:      money(p),
				Current:       money(curr),
				ChangePercent: percentChange(p, curr),
			})
		}
	}
	slices.SortFunc(r.ExpenseSpikes, func(a, b ExpenseSpike) int { return cmp.Compare(a.Category, b.Category) })

	currSales := accrualTotals(b, w).revenue
	prevSales := accrualTotals(b, prev).revenue
	if prevSales.IsPositive() && currSales.LessThan(prevSales.Mul(salesDropFactor)) {
		r.SalesDrop = &SalesDrop{
			Previous:      money(prevSales),
			Current:       money(currSales),
			ChangePercent: percentChange(prevSales, currSales),
		}
	}

	for _, rec := range b.Receivables {
		if rec.Status() != StatusPending {
			continue
		}
		days := elapsedDays(rec.CreatedAt, now)
		if days <= overdueReceivableDays {
			continue
		}
		r.Overdue = append(r.Overdue, OverdueReceivable{
			Customer:  rec.PartyName,
			Reference: rec.Reference,
			Amount:    money(rec.OutstandingAmount),
			Days:      days,
		})
	}
	slices.SortStableFunc(r.Overdue, func(a, b OverdueReceivable) int { return cmp.Compare(b.Days, a.Days) })
	return r
}

func expensesByCategory(b Books, w Window) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, e := range b.Expenses {
		if w.Contains(e.ExpenseDate) {
			out[e.Category] = out[e.Category].Add(e.Amount)
		}
	}
	return out
}

func percentChange(prev, curr decimal.Decimal) decimal.Decimal {
	return money(curr.Sub(prev).Div(prev).Mul(hundred))
}

// ── Credit risk / aging ───────────────────────────────────────────────────────

const (
	BucketCurrent  = "0-30 days"
	BucketOverdue  = "31-60 days"
	BucketCritical = "60+ days"
)

type AgingEntry struct {
	SettlementID int             `json:"settlement_id"`
	Party        string          `json:"party"`
	Reference    string          `json:"reference"`
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Days         int             `json:"days"`
	Bucket       string          `json:"bucket"`
	Status       string          `json:"status"`
}

type CustomerExposure struct {
	PartyID     int             `json:"party_id"`
	Name        string          `json:"name"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type AgingReport struct {
	AsOf        time.Time          `json:"as_of"`
	Receivables []AgingEntry       `json:"receivables"`
	Payables    []AgingEntry       `json:"payables"`
	Exposure    []CustomerExposure `json:"customer_exposure"`
	// BucketTotals maps each bucket to the outstanding receivable amount in it.
	BucketTotals map[string]decimal.Decimal `json:"bucket_totals"`
}

// BuildAgingReport buckets pending receivables and payables by whole days
// elapsed since creation.
func BuildAgingReport(b Books, now time.Time) *AgingReport {
	r := &AgingReport{
		AsOf:        now,
		Receivables: agingEntries(b.Receivables, now),
		Payables:    agingEntries(b.Payables, now),
		Exposure:    []CustomerExposure{},
		BucketTotals: map[string]decimal.Decimal{
			BucketCurrent:  decimal.Zero,
			BucketOverdue:  decimal.Zero,
			BucketCritical: decimal.Zero,
		},
	}

	exposure := map[int]*CustomerExposure{}
	for _, e := range r.Receivables {
		r.BucketTotals[e.Bucket] = r.BucketTotals[e.Bucket].Add(e.Amount)
	}
	for _, rec := range b.Receivables {
		if rec.Status() != StatusPending || rec.CreatedAt.After(now) {
			continue
		}
		c, ok := exposure[rec.PartyID]
		if !ok {
			c = &CustomerExposure{PartyID: rec.PartyID, Name: rec.PartyName}
			exposure[rec.PartyID] = c
		}
		c.Outstanding = c.Outstanding.Add(rec.OutstandingAmount)
	}
	for _, c := range exposure {
		c.Outstanding = money(c.Outstanding)
		r.Exposure = append(r.Exposure, *c)
	}
	slices.SortFunc(r.Exposure, func(a, b CustomerExposure) int {
		if c := b.Outstanding.Cmp(a.Outstanding); c != 0 {
			return c
		}
		return cmp.Compare(a.PartyID, b.PartyID)
	})
	return r
}

func agingEntries(items []Settlement, now time.Time) []AgingEntry {
	out := []AgingEntry{}
	for _, s := range items {
		if s.Status() != StatusPending || s.CreatedAt.After(now) {
			continue
		}
		days := elapsedDays(s.CreatedAt, now)
		bucket, status := BucketCurrent, "Current"
		switch {
		case days > 60:
			bucket, status = BucketCritical, "Critical"
		case days > 30:
			bucket, status = BucketOverdue, "Overdue"
		}
		out = append(out, AgingEntry{
			SettlementID: s.ID,
			Party:        s.PartyName,
			Reference:    s.Reference,
			Date:         s.CreatedAt,
			Amount:       money(s.OutstandingAmount),
			Days:         days,
			Bucket:       bucket,
			Status:       status,
		})
	}
	slices.SortStableFunc(out, func(a, b AgingEntry) int { return cmp.Compare(b.Days, a.Days) })
	return out
}

func elapsedDays(from, now time.Time) int {
	return int(math.Floor(now.Sub(from).Hours() / 24))
}

// ── Party performance ─────────────────────────────────────────────────────────

type PartyPerformance struct {
	PartyID      int             `json:"party_id"`
	Name         string          `json:"name"`
	Invoices     int             `json:"invoices"`
	Total        decimal.Decimal `json:"total"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	AvgDelayDays int             `json:"avg_delay_days"`
}

type PartyPerformanceReport struct {
	Window  Window             `json:"window"`
	AsOf    time.Time          `json:"as_of"`
	Parties []PartyPerformance `json:"parties"`
}

// BuildPartyPerformance summarizes each customer invoiced in w: invoiced
// total, what is still outstanding on those invoices, and the average days
// from invoice to payment. A settled receivable is measured to its
// settlement time, a pending one to now. Negative delays count as zero.
func BuildPartyPerformance(b Books, w Window, now time.Time) *PartyPerformanceReport {
	receivables := make(map[int]Settlement, len(b.Receivables))
	for _, r := range b.Receivables {
		receivables[r.DocumentID] = r
	}

	type acc struct {
		perf     PartyPerformance
		delay    int
		measured int
	}
	byParty := map[int]*acc{}
	for _, inv := range b.Invoices {
		if !w.Contains(inv.InvoiceDate) {
			continue
		}
		a, ok := byParty[inv.PartyID]
		if !ok {
			a = &acc{perf: PartyPerformance{PartyID: inv.PartyID, Name: inv.PartyName}}
			byParty[inv.PartyID] = a
		}
		a.perf.Invoices++
		a.perf.Total = a.perf.Total.Add(inv.TotalAmount)

		rec, ok := receivables[inv.ID]
		if !ok {
			continue
		}
		a.perf.Outstanding = a.perf.Outstanding.Add(rec.OutstandingAmount)
		until := now
		if rec.Status() == StatusCompleted {
			until = rec.UpdatedAt
		}
		a.delay += max(0, elapsedDays(inv.InvoiceDate, until))
		a.measured++
	}

	r := &PartyPerformanceReport{Window: w, AsOf: now, Parties: []PartyPerformance{}}
	for _, a := range byParty {
		if a.measured > 0 {
			a.perf.AvgDelayDays = int(math.Round(float64(a.delay) / float64(a.measured)))
		}
		a.perf.Total = money(a.perf.Total)
		a.perf.Outstanding = money(a.perf.Outstanding)
		r.Parties = append(r.Parties, a.perf)
	}
	slices.SortFunc(r.Parties, func(a, b PartyPerformance) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.PartyID, b.PartyID)
	})
	return r
}
