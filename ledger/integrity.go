/*
integrity.go - Cross-entity deletion constraints

PURPOSE:
  The Guard enforces referential integrity on deletion:

  1. A material referenced by any recipe cannot be deleted.
  2. Deleting a recipe cascades to every sale referencing it, so the
     aggregation engine never observes a dangling RecipeID as a result
     of deletion.

  Sales reference recipes, not materials, so material deletion never
  touches the sale collection.

SEE ALSO:
  - engine.go: The other writer of the store
  - stats.go: The read side that relies on the cascade
*/
package ledger

// =============================================================================
// INTEGRITY GUARD
// =============================================================================

// Guard enforces cross-entity deletion constraints on a Store.
type Guard struct {
	store *Store
}

// NewGuard creates a guard for the given store.
func NewGuard(store *Store) *Guard {
	return &Guard{store: store}
}

// DeleteMaterial removes a material, failing with MaterialInUseError if
// any recipe's items still reference it.
func (g *Guard) DeleteMaterial(materialID int64) error {
	s := g.store
	s.mu.Lock()
	defer s.mu.Unlock()

	mat, ok := s.materialByIDLocked(materialID)
	if !ok {
		return ErrMaterialNotFound
	}

	var users []string
	for _, r := range s.recipes {
		for _, item := range r.Items {
			if item.MaterialID == materialID {
				users = append(users, r.Name)
				break
			}
		}
	}
	if len(users) > 0 {
		return &MaterialInUseError{
			MaterialID:   materialID,
			MaterialName: mat.Name,
			RecipeNames:  users,
		}
	}

	s.removeMaterialLocked(materialID)
	return nil
}

// DeleteRecipe removes a recipe and cascades to every sale with a
// matching RecipeID. Returns how many sales were removed.
func (g *Guard) DeleteRecipe(recipeID int64) (int, error) {
	s := g.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeRecipeLocked(recipeID) {
		return 0, ErrRecipeNotFound
	}
	return s.removeSalesByRecipeLocked(recipeID), nil
}
