/*
engine.go - Validate-then-commit consumption of materials

PURPOSE:
  The Engine applies recipe-sale transactions against the Store. The
  critical invariant: no material's stock ever goes negative, and a
  sale is all-or-nothing across the recipe's items.

TWO-PHASE CHECK-THEN-COMMIT:
  RecordSale validates EVERY item against current stock before ANY
  stock is decremented. A recipe with items [(A, 2), (B, huge)] where B
  falls short must leave A untouched too. The atomicity is structural:
  the validate pass and the apply pass are separate loops under one
  write lock, so a partial consumption cannot occur.

WHAT COMMITS TOGETHER:
  - each material's Stock down / Consumed up by item.Qty * quantity
  - the recipe's SoldCount up by quantity
  - one new Sale with a freshly allocated id, the recipe's price
    snapshotted, and the current timestamp

ERROR HANDLING:
  InsufficientStockError carries the material name, the required amount
  and the current amount so the caller can present a precise message.
  Any error leaves the store exactly as it was.

SEE ALSO:
  - store.go: The locked primitives the engine writes through
  - integrity.go: Deletion constraints (the other writer)
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine validates and applies stock mutations against a Store.
type Engine struct {
	store *Store

	// Now supplies sale timestamps. Overridable in tests.
	Now func() time.Time
}

// NewEngine creates an engine writing to the given store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store, Now: time.Now}
}

// =============================================================================
// RECORD SALE - The core transaction
// =============================================================================

// RecordSale sells quantity units of the recipe: checks stock for every
// item, then decrements stock, bumps consumption counters and appends
// the Sale. All-or-nothing; no stock is ever decremented without the
// sale being recorded, and vice versa.
func (e *Engine) RecordSale(recipeID int64, quantity int64) (Sale, error) {
	if quantity <= 0 {
		return Sale{}, ErrInvalidQuantity
	}

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()

	recipe, ok := s.recipeByIDLocked(recipeID)
	if !ok {
		return Sale{}, ErrRecipeNotFound
	}

	qty := decimal.NewFromInt(quantity)

	// Validation phase: all items must pass before any stock moves.
	for _, item := range recipe.Items {
		required := item.Qty.Mul(qty)
		mat, ok := s.materialByIDLocked(item.MaterialID)
		if !ok {
			return Sale{}, &InsufficientStockError{
				MaterialID: item.MaterialID,
				Required:   required,
				Available:  decimal.Zero,
			}
		}
		if mat.Stock.LessThan(required) {
			return Sale{}, &InsufficientStockError{
				MaterialID:   mat.ID,
				MaterialName: mat.Name,
				Required:     required,
				Available:    mat.Stock,
			}
		}
	}

	// Commit phase: every item passed, nothing below can fail.
	for _, item := range recipe.Items {
		consumed := item.Qty.Mul(qty)
		mat, _ := s.materialByIDLocked(item.MaterialID)
		mat.Stock = mat.Stock.Sub(consumed)
		mat.Consumed = mat.Consumed.Add(consumed)
		s.updateMaterialLocked(mat)
	}

	recipe.SoldCount += quantity
	s.updateRecipeLocked(recipe)

	sale := Sale{
		ID:           s.saleIDs.allocate(),
		RecipeID:     recipe.ID,
		Qty:          quantity,
		PricePerUnit: recipe.Price,
		Timestamp:    e.Now(),
	}
	s.appendSaleLocked(sale)

	return sale, nil
}

// =============================================================================
// STOCK IN
// =============================================================================

// StockIn adds quantity to a material's stock. No upper bound.
func (e *Engine) StockIn(materialID int64, quantity decimal.Decimal) (Material, error) {
	if !quantity.IsPositive() {
		return Material{}, ErrInvalidQuantity
	}

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()

	mat, ok := s.materialByIDLocked(materialID)
	if !ok {
		return Material{}, ErrMaterialNotFound
	}

	mat.Stock = mat.Stock.Add(quantity)
	s.updateMaterialLocked(mat)
	return mat, nil
}

// =============================================================================
// ADD MATERIAL / ADD RECIPE
// =============================================================================

// AddMaterial creates a material with a fresh id and zero consumption.
func (e *Engine) AddMaterial(name string, initialStock, deadline decimal.Decimal) (Material, error) {
	if name == "" {
		return Material{}, ErrInvalidInput
	}
	if initialStock.IsNegative() {
		return Material{}, ErrInvalidInput
	}

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()

	mat := Material{
		ID:       s.materialIDs.allocate(),
		Name:     name,
		Stock:    initialStock,
		Deadline: deadline,
		Consumed: decimal.Zero,
	}
	s.appendMaterialLocked(mat)
	return mat, nil
}

// AddRecipe creates a recipe with a fresh id. Items with an
// unresolvable material or a non-positive qty are silently dropped;
// if no items survive, the whole operation fails with ErrEmptyRecipe.
func (e *Engine) AddRecipe(name string, price decimal.Decimal, items []RecipeItem) (Recipe, error) {
	if name == "" {
		return Recipe{}, ErrInvalidInput
	}
	if price.IsNegative() {
		return Recipe{}, ErrInvalidInput
	}

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []RecipeItem
	for _, item := range items {
		if !item.Qty.IsPositive() {
			continue
		}
		if _, ok := s.materialByIDLocked(item.MaterialID); !ok {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		return Recipe{}, ErrEmptyRecipe
	}

	recipe := Recipe{
		ID:    s.recipeIDs.allocate(),
		Name:  name,
		Price: price,
		Items: kept,
	}
	s.appendRecipeLocked(recipe)
	return recipe.clone(), nil
}
