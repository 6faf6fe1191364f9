package core

import (
	"cmp"
	"math"
	"slices"
	"time"
)

type ExpiryStatus string

const (
	ExpiryExpired      ExpiryStatus = "EXPIRED"
	ExpiryExpiringSoon ExpiryStatus = "EXPIRING_SOON"
)

type ExpiryAlert struct {
	BatchID       int          `json:"batch_id"`
	BatchNumber   string       `json:"batch_number"`
	ProductID     int          `json:"product_id"`
	ProductName   string       `json:"product_name"`
	Quantity      int          `json:"quantity"`
	ExpiryDate    time.Time    `json:"expiry_date"`
	RemainingDays int          `json:"remaining_days"`
	Status        ExpiryStatus `json:"status"`
}

type LowStockAlert struct {
	ProductID  int    `json:"product_id"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	TotalStock int    `json:"total_stock"`
	Threshold  int    `json:"threshold"`
}

type Alerts struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Expiring    []ExpiryAlert   `json:"expiring"`
	LowStock    []LowStockAlert `json:"low_stock"`
	TotalAlerts int             `json:"total_alerts"`
}

// EvaluateAlerts flags batches whose expiry falls within the product's alert
// window (already expired included) and products whose total remaining
// quantity is at or below their low-stock threshold. now is supplied by the
// caller; nothing here reads the clock.
func EvaluateAlerts(products []Product, batches []Batch, now time.Time) *Alerts {
	byProduct := make(map[int][]Batch, len(products))
	for _, b := range batches {
		byProduct[b.ProductID] = append(byProduct[b.ProductID], b)
	}

	a := &Alerts{GeneratedAt: now, Expiring: []ExpiryAlert{}, LowStock: []LowStockAlert{}}
	for _, p := range products {
		total := 0
		for _, b := range byProduct[p.ID] {
			total += b.Quantity
			if b.ExpiryDate == nil {
				continue
			}
			days := RemainingDays(*b.ExpiryDate, now)
			if days > p.ExpiryAlertDays {
				continue
			}
			status := ExpiryExpiringSoon
			if days < 0 {
				status = ExpiryExpired
			}
			a.Expiring = append(a.Expiring, ExpiryAlert{
				BatchID:       b.ID,
				BatchNumber:   b.BatchNumber,
				ProductID:     p.ID,
				ProductName:   p.Name,
				Quantity:      b.Quantity,
				ExpiryDate:    *b.ExpiryDate,
				RemainingDays: days,
				Status:        status,
			})
		}
		if total <= p.LowStockAlertQty {
			a.LowStock = append(a.LowStock, LowStockAlert{
				ProductID:  p.ID,
				Name:       p.Name,
				SKU:        p.SKU,
				TotalStock: total,
				Threshold:  p.LowStockAlertQty,
			})
		}
	}

	slices.SortStableFunc(a.Expiring, func(x, y ExpiryAlert) int { return cmp.Compare(x.RemainingDays, y.RemainingDays) })
	slices.SortStableFunc(a.LowStock, func(x, y LowStockAlert) int { return cmp.Compare(x.TotalStock, y.TotalStock) })
	a.TotalAlerts = len(a.Expiring) + len(a.LowStock)
	return a
}

// RemainingDays is ceil((expiry - now) / 24h). Negative means expired.
func RemainingDays(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}
