/*
integrity_test.go - Deletion constraint behavior

Tests for:
- Material deletion blocked while referenced by a recipe
- Recipe deletion cascading to its sales
*/
package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mise/stockledger/ledger"
)

func TestDeleteMaterial_BlockedWhileReferenced(t *testing.T) {
	// GIVEN: A material referenced by a recipe
	// WHEN: Deleting the material
	// THEN: MaterialInUseError naming the referencing recipe; material stays

	_, store, _ := newTestEngine(t)
	guard := ledger.NewGuard(store)
	flour := materialByName(t, store, "flour")

	err := guard.DeleteMaterial(flour.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrMaterialInUse)
	var inUse *ledger.MaterialInUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, "flour", inUse.MaterialName)
	assert.Contains(t, inUse.RecipeNames, "pancake")

	_, ok := store.MaterialByID(flour.ID)
	assert.True(t, ok, "material must not be removed")
}

func TestDeleteMaterial_UnreferencedSucceeds(t *testing.T) {
	store := ledger.NewStore()
	eng := ledger.NewEngine(store)
	guard := ledger.NewGuard(store)

	salt, err := eng.AddMaterial("salt", d("10"), d("0"))
	require.NoError(t, err)

	require.NoError(t, guard.DeleteMaterial(salt.ID))
	_, ok := store.MaterialByID(salt.ID)
	assert.False(t, ok)
}

func TestDeleteMaterial_NotFound(t *testing.T) {
	guard := ledger.NewGuard(ledger.NewStore())
	err := guard.DeleteMaterial(123)
	assert.ErrorIs(t, err, ledger.ErrMaterialNotFound)
}

func TestDeleteRecipe_CascadesToSales(t *testing.T) {
	// GIVEN: Two recipes, three sales of the first and one of the second
	// WHEN: Deleting the first recipe
	// THEN: Its three sales are removed; the other recipe's sale survives

	store := ledger.NewStore()
	eng := ledger.NewEngine(store)
	guard := ledger.NewGuard(store)

	flour, _ := eng.AddMaterial("flour", d("1000"), d("0"))
	bun, err := eng.AddRecipe("bun", d("50"), []ledger.RecipeItem{
		{MaterialID: flour.ID, Qty: d("1")},
	})
	require.NoError(t, err)
	crepe, err := eng.AddRecipe("crepe", d("80"), []ledger.RecipeItem{
		{MaterialID: flour.ID, Qty: d("2")},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := eng.RecordSale(bun.ID, 1)
		require.NoError(t, err)
	}
	_, err = eng.RecordSale(crepe.ID, 1)
	require.NoError(t, err)

	removed, err := guard.DeleteRecipe(bun.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, ok := store.RecipeByID(bun.ID)
	assert.False(t, ok)
	sales := store.Sales()
	require.Len(t, sales, 1)
	assert.Equal(t, crepe.ID, sales[0].RecipeID, "no sale of a deleted recipe may survive")
}

func TestDeleteRecipe_NotFound(t *testing.T) {
	guard := ledger.NewGuard(ledger.NewStore())
	_, err := guard.DeleteRecipe(7)
	assert.ErrorIs(t, err, ledger.ErrRecipeNotFound)
}
