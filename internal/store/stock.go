package store

import (
	"maps"
	"slices"

	perrors "github.com/dongyi/catalog/internal/errors"
)

// applyAdjustments decrements stock in place, evaluating items in input order so repeated
// product ids accumulate. Variants of one item are checked in label order before any of them
// is decremented. A missing variant counts as zero stock and non-positive quantities are skipped, so they
// never create variants. It returns the ids whose stock changed, in first-seen order.
// On error stock may be partially modified and must be discarded by the caller.
func applyAdjustments(stock map[int64]map[string]int32, items []StockAdjustment) ([]int64, error) {
	var touched []int64
	for _, item := range items {
		current, ok := stock[item.ProductID]
		if !ok {
			return nil, &perrors.ProductNotFoundError{ProductID: item.ProductID}
		}
		variants := slices.Sorted(maps.Keys(item.Spec))
		changed := false
		for _, variant := range variants {
			qty := item.Spec[variant]
			if qty <= 0 {
				continue
			}
			if available := current[variant]; available < qty {
				return nil, &perrors.InsufficientStockError{
					ProductID: item.ProductID,
					Variant:   variant,
					Available: available,
					Requested: qty,
				}
			}
			changed = true
		}
		if !changed {
			continue
		}
		for _, variant := range variants {
			if qty := item.Spec[variant]; qty > 0 {
				current[variant] -= qty
			}
		}
		if !slices.Contains(touched, item.ProductID) {
			touched = append(touched, item.ProductID)
		}
	}
	return touched, nil
}

// batchIDs returns the distinct product ids of items in ascending order.
func batchIDs(items []StockAdjustment) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
