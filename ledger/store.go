/*
store.go - In-memory system of record for the three collections

PURPOSE:
  The Store holds the Material, Recipe and Sale collections and the
  per-collection id allocators. It is an explicit object handed to the
  engine, the integrity guard and the collaborators - there is no
  ambient singleton.

MUTATION DISCIPLINE:
  - Stock, Consumed and SoldCount are mutated only by the consumption
    engine (engine.go) and the integrity guard (integrity.go), which
    live in this package and use the locked primitives directly.
  - Sales are never mutated after creation, only appended, cascaded
    away on recipe deletion, or wholesale replaced on restore.
  - Readers always get copies; nothing callers do to a returned slice
    can reach the collections.

BULK REPLACE:
  ReplaceAll publishes the new collections in a fixed order (materials,
  recipes, sales) with the allocator recompute interleaved per
  collection, so counters and collections stay mutually consistent at
  every step. A collection containing a malformed entity falls back to
  empty for that entity type rather than aborting the whole load.

LOCKING:
  A single RWMutex guards the collections. The intended deployment is a
  single operator, but the HTTP collaborator can issue overlapping
  requests, so the engine holds the write lock across its whole
  validate-then-commit sequence.

SEE ALSO:
  - allocator.go: The per-collection id counters
  - engine.go: The only writer of stock/consumption counters
*/
package ledger

import "sync"

// =============================================================================
// STORE
// =============================================================================

// Store is the in-memory system of record.
type Store struct {
	mu sync.RWMutex

	materials []Material
	recipes   []Recipe
	sales     []Sale

	materialIDs allocator
	recipeIDs   allocator
	saleIDs     allocator
}

// NewStore creates an empty store with all id counters at 1.
func NewStore() *Store {
	s := &Store{}
	s.materialIDs.recompute(nil)
	s.recipeIDs.recompute(nil)
	s.saleIDs.recompute(nil)
	return s
}

// =============================================================================
// READ ACCESS - Always copies
// =============================================================================

// Materials returns a copy of the material collection.
func (s *Store) Materials() []Material {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Material(nil), s.materials...)
}

// Recipes returns a deep copy of the recipe collection.
func (s *Store) Recipes() []Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Recipe, len(s.recipes))
	for i, r := range s.recipes {
		out[i] = r.clone()
	}
	return out
}

// Sales returns a copy of the sale collection.
func (s *Store) Sales() []Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Sale(nil), s.sales...)
}

// MaterialByID returns the material with the given id.
func (s *Store) MaterialByID(id int64) (Material, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.materialByIDLocked(id)
	return m, ok
}

// RecipeByID returns the recipe with the given id.
func (s *Store) RecipeByID(id int64) (Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipeByIDLocked(id)
	if !ok {
		return Recipe{}, false
	}
	return r.clone(), true
}

// =============================================================================
// BULK REPLACE - Restore / initial load entry point
// =============================================================================

// ReplaceAll swaps all three collections for restored data. A
// collection containing a malformed entity is replaced by an empty one
// instead of aborting the load. Collections are published in a fixed
// order with the id counter recomputed after each swap.
func (s *Store) ReplaceAll(materials []Material, recipes []Recipe, sales []Sale) {
	materials = wellFormedMaterials(materials)
	recipes = wellFormedRecipes(recipes)
	sales = wellFormedSales(sales)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.materials = materials
	s.materialIDs.recompute(materialIDs(materials))

	s.recipes = recipes
	s.recipeIDs.recompute(recipeIDs(recipes))

	s.sales = sales
	s.saleIDs.recompute(saleIDs(sales))
}

func wellFormedMaterials(in []Material) []Material {
	out := make([]Material, 0, len(in))
	for _, m := range in {
		if !m.wellFormed() {
			return []Material{}
		}
		out = append(out, m)
	}
	return out
}

func wellFormedRecipes(in []Recipe) []Recipe {
	out := make([]Recipe, 0, len(in))
	for _, r := range in {
		if !r.wellFormed() {
			return []Recipe{}
		}
		out = append(out, r.clone())
	}
	return out
}

func wellFormedSales(in []Sale) []Sale {
	out := make([]Sale, 0, len(in))
	for _, sl := range in {
		if !sl.wellFormed() {
			return []Sale{}
		}
		out = append(out, sl)
	}
	return out
}

func materialIDs(ms []Material) []int64 {
	ids := make([]int64, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func recipeIDs(rs []Recipe) []int64 {
	ids := make([]int64, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

func saleIDs(ss []Sale) []int64 {
	ids := make([]int64, len(ss))
	for i, sl := range ss {
		ids[i] = sl.ID
	}
	return ids
}

// =============================================================================
// LOCKED PRIMITIVES - One mutation primitive per collection
// =============================================================================
// Callers (engine.go, integrity.go) hold s.mu for writing.

func (s *Store) materialByIDLocked(id int64) (Material, bool) {
	for _, m := range s.materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}

func (s *Store) recipeByIDLocked(id int64) (Recipe, bool) {
	for _, r := range s.recipes {
		if r.ID == id {
			return r, true
		}
	}
	return Recipe{}, false
}

func (s *Store) appendMaterialLocked(m Material) {
	s.materials = append(s.materials, m)
}

func (s *Store) appendRecipeLocked(r Recipe) {
	s.recipes = append(s.recipes, r)
}

func (s *Store) appendSaleLocked(sl Sale) {
	s.sales = append(s.sales, sl)
}

func (s *Store) updateMaterialLocked(m Material) bool {
	for i := range s.materials {
		if s.materials[i].ID == m.ID {
			s.materials[i] = m
			return true
		}
	}
	return false
}

func (s *Store) updateRecipeLocked(r Recipe) bool {
	for i := range s.recipes {
		if s.recipes[i].ID == r.ID {
			s.recipes[i] = r
			return true
		}
	}
	return false
}

func (s *Store) removeMaterialLocked(id int64) bool {
	for i := range s.materials {
		if s.materials[i].ID == id {
			s.materials = append(s.materials[:i], s.materials[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) removeRecipeLocked(id int64) bool {
	for i := range s.recipes {
		if s.recipes[i].ID == id {
			s.recipes = append(s.recipes[:i], s.recipes[i+1:]...)
			return true
		}
	}
	return false
}

// removeSalesByRecipeLocked drops every sale referencing the recipe.
// Returns how many were removed.
func (s *Store) removeSalesByRecipeLocked(recipeID int64) int {
	kept := s.sales[:0]
	removed := 0
	for _, sl := range s.sales {
		if sl.RecipeID == recipeID {
			removed++
			continue
		}
		kept = append(kept, sl)
	}
	s.sales = kept
	return removed
}
