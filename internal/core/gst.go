package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Supported GST slabs, in percent.
var GSTRates = []int64{0, 5, 12, 18, 28}

var DefaultGSTRate = decimal.NewFromInt(18)

// GSTBreakdown splits tax on a taxable amount. Intra-state supplies carry
// CGST and SGST at half the rate each; inter-state supplies carry IGST.
type GSTBreakdown struct {
	Taxable decimal.Decimal `json:"taxable"`
	CGST    decimal.Decimal `json:"cgst"`
	SGST    decimal.Decimal `json:"sgst"`
	IGST    decimal.Decimal `json:"igst"`
	Total   decimal.Decimal `json:"total"`
}

func (g GSTBreakdown) Tax() decimal.Decimal {
	return g.CGST.Add(g.SGST).Add(g.IGST)
}

func (g GSTBreakdown) Add(o GSTBreakdown) GSTBreakdown {
	return GSTBreakdown{
		Taxable: g.Taxable.Add(o.Taxable),
		CGST:    g.CGST.Add(o.CGST),
		SGST:    g.SGST.Add(o.SGST),
		IGST:    g.IGST.Add(o.IGST),
		Total:   g.Total.Add(o.Total),
	}
}

// ValidGSTRate reports whether rate is one of the supported slabs.
func ValidGSTRate(rate decimal.Decimal) bool {
	for _, r := range GSTRates {
		if rate.Equal(decimal.NewFromInt(r)) {
			return true
		}
	}
	return false
}

// SameState compares two state names case-insensitively. An empty state on
// either side is treated as intra-state.
func SameState(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(a, b)
}

// CalculateGST computes the tax split for taxable at rate percent.
func CalculateGST(taxable, rate decimal.Decimal, intraState bool) (GSTBreakdown, error) {
	if taxable.IsNegative() {
		return GSTBreakdown{}, invalidInput("taxable amount must not be negative, got %s", taxable)
	}
	if !ValidGSTRate(rate) {
		return GSTBreakdown{}, invalidInput("unsupported GST rate %s", rate)
	}
	tax := taxable.Mul(rate).Div(decimal.NewFromInt(100))
	g := GSTBreakdown{Taxable: money(taxable), CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
	if intraState {
		half := money(tax.Div(decimal.NewFromInt(2)))
		g.CGST = half
		g.SGST = half
	} else {
		g.IGST = money(tax)
	}
	g.Total = g.Taxable.Add(g.Tax())
	return g, nil
}
