/*
Package ledger provides the inventory ledger and sales aggregation engine.

PURPOSE:
  This package contains the data model and algorithms for tracking
  raw-material stock, selling recipes composed of fixed material
  quantities, and reporting sales statistics over time windows.

KEY CONCEPTS IN THIS FILE (types.go):
  - Material: A raw stock item with a fractional quantity on hand
  - Recipe: A sellable composite item with per-unit material consumption
  - Sale: An immutable record of a recipe sold at some price and time

DESIGN PRINCIPLES:
  1. Immutability: Sales are never modified after creation
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
     on fractional stock quantities and money
  3. Counters only grow: Material.Consumed and Recipe.SoldCount are
     monotonically non-decreasing
  4. Snapshot pricing: a Sale carries the recipe price at sale time,
     so later price changes never rewrite history

SEE ALSO:
  - store.go: The in-memory system of record holding the collections
  - engine.go: Validate-then-commit consumption of materials
  - stats.go: Time-windowed aggregation over sales
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MATERIAL - Raw stock item
// =============================================================================

// Material is a raw stock item with a quantity on hand.
//
// INVARIANTS:
//   - Stock never goes negative after a committed transaction
//   - Consumed is monotonically non-decreasing
//   - Stock and Consumed are mutated only by the consumption engine
type Material struct {
	ID       int64
	Name     string
	Stock    decimal.Decimal // quantity on hand, may be fractional
	Deadline decimal.Decimal // reorder threshold
	Consumed decimal.Decimal // cumulative total ever consumed via sales
}

// LowStock reports whether the material has fallen to or below its
// reorder threshold. Display concern only, never enforced as a limit.
func (m Material) LowStock() bool {
	return m.Stock.LessThanOrEqual(m.Deadline)
}

// =============================================================================
// RECIPE - Sellable composite item
// =============================================================================

// RecipeItem is one fixed material consumption per unit sold.
type RecipeItem struct {
	MaterialID int64
	Qty        decimal.Decimal // amount consumed per one unit sold, positive
}

// Recipe is a finished item composed of fixed material quantities.
//
// INVARIANTS:
//   - Every item's MaterialID referenced an existing material at creation
//   - SoldCount is monotonically non-decreasing, mutated only by the
//     consumption engine
type Recipe struct {
	ID        int64
	Name      string
	Price     decimal.Decimal // non-negative unit sale price
	Items     []RecipeItem
	SoldCount int64 // cumulative units sold
}

// clone returns a deep copy so callers can't alias the Items slice
// back into the store.
func (r Recipe) clone() Recipe {
	out := r
	out.Items = append([]RecipeItem(nil), r.Items...)
	return out
}

// =============================================================================
// SALE - Immutable sales record
// =============================================================================

// Sale records one recipe sold in some quantity at some price and time.
// Immutable after creation. Deleted only as a cascade effect of recipe
// deletion or wholesale replacement during restore.
type Sale struct {
	ID           int64
	RecipeID     int64
	Qty          int64           // units sold, positive
	PricePerUnit decimal.Decimal // recipe price snapshotted at sale time
	Timestamp    time.Time
}

// Total is the sale's revenue: Qty * PricePerUnit.
func (s Sale) Total() decimal.Decimal {
	return s.PricePerUnit.Mul(decimal.NewFromInt(s.Qty))
}

// =============================================================================
// WELL-FORMEDNESS - Used by bulk replace to reject malformed input
// =============================================================================

func (m Material) wellFormed() bool {
	return m.ID > 0 && m.Name != "" && !m.Stock.IsNegative() && !m.Consumed.IsNegative()
}

func (r Recipe) wellFormed() bool {
	if r.ID <= 0 || r.Name == "" || r.Price.IsNegative() || r.SoldCount < 0 {
		return false
	}
	for _, it := range r.Items {
		if it.MaterialID <= 0 || !it.Qty.IsPositive() {
			return false
		}
	}
	return true
}

func (s Sale) wellFormed() bool {
	return s.ID > 0 && s.RecipeID > 0 && s.Qty > 0 && !s.PricePerUnit.IsNegative()
}
