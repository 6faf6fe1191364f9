package core

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// AllocateFIFO walks batches oldest-first (by Seq, then ID) and builds the
// consumption plan for quantity units. It never mutates batches.
//
// When stock runs out the remaining units are left uncosted and the result is
// flagged Oversold. Total and per-item figures are rounded to two places
// independently from the unrounded total.
func AllocateFIFO(batches []Batch, quantity int) (CogsResult, error) {
	if quantity < 0 {
		return CogsResult{}, invalidInput("quantity must not be negative, got %d", quantity)
	}
	result := CogsResult{
		CogsPerItem:       decimal.Zero,
		CogsTotal:         decimal.Zero,
		Plan:              []BatchConsumption{},
		QuantityRequested: quantity,
	}
	if quantity == 0 {
		return result, nil
	}

	ordered := slices.Clone(batches)
	slices.SortStableFunc(ordered, func(a, b Batch) int {
		if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	remaining := quantity
	total := decimal.Zero
	for _, b := range ordered {
		if remaining == 0 {
			break
		}
		if b.Quantity <= 0 {
			continue
		}
		used := min(b.Quantity, remaining)
		result.Plan = append(result.Plan, BatchConsumption{
			BatchID:      b.ID,
			QuantityUsed: used,
			CostPerItem:  b.CostPerItem,
		})
		total = total.Add(b.CostPerItem.Mul(decimal.NewFromInt(int64(used))))
		remaining -= used
	}

	result.QuantityAllocated = quantity - remaining
	result.Oversold = remaining > 0
	result.CogsTotal = money(total)
	result.CogsPerItem = money(total.Div(decimal.NewFromInt(int64(quantity))))
	return result, nil
}

// ApplyConsumption returns a copy of batches with the plan subtracted. It is
// the in-memory counterpart of InventoryService.ApplyConsumptionTx and fails
// rather than letting any quantity go negative.
func ApplyConsumption(batches []Batch, plan []BatchConsumption) ([]Batch, error) {
	out := slices.Clone(batches)
	index := make(map[int]int, len(out))
	for i, b := range out {
		index[b.ID] = i
	}
	for _, c := range plan {
		if c.QuantityUsed < 0 {
			return nil, invalidInput("negative consumption %d for batch %d", c.QuantityUsed, c.BatchID)
		}
		i, ok := index[c.BatchID]
		if !ok {
			return nil, notFound("batch %d", c.BatchID)
		}
		if out[i].Quantity < c.QuantityUsed {
			return nil, inconsistent("batch %d has %d units, plan consumes %d", c.BatchID, out[i].Quantity, c.QuantityUsed)
		}
		out[i].Quantity -= c.QuantityUsed
	}
	return out, nil
}

// PlanQuantity sums QuantityUsed over a plan.
func PlanQuantity(plan []BatchConsumption) int {
	n := 0
	for _, c := range plan {
		n += c.QuantityUsed
	}
	return n
}
