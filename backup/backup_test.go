/*
backup_test.go - Export/restore round-trip behavior

Tests for:
- Full round-trip through the workbook, nested items included
- Aggregation results surviving export + restore unchanged
- Missing-sheet rejection with the resource named
*/
package backup_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mise/stockledger/backup"
	"github.com/mise/stockledger/ledger"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixture() ([]ledger.Material, []ledger.Recipe, []ledger.Sale) {
	materials := []ledger.Material{
		{ID: 1, Name: "flour", Stock: d("94.5"), Deadline: d("10"), Consumed: d("5.5")},
		{ID: 3, Name: "espresso", Stock: d("48"), Deadline: d("5"), Consumed: d("2")},
	}
	recipes := []ledger.Recipe{
		{ID: 1, Name: "pancake", Price: d("600"), SoldCount: 2, Items: []ledger.RecipeItem{
			{MaterialID: 1, Qty: d("2")},
			{MaterialID: 3, Qty: d("0.5")},
		}},
		{ID: 2, Name: "waffle", Price: d("750"), SoldCount: 1, Items: []ledger.RecipeItem{
			{MaterialID: 1, Qty: d("1.5")},
		}},
	}
	sales := []ledger.Sale{
		{ID: 1, RecipeID: 1, Qty: 2, PricePerUnit: d("600"),
			Timestamp: time.Date(2026, time.April, 2, 8, 30, 0, 0, time.Local)},
		{ID: 2, RecipeID: 2, Qty: 1, PricePerUnit: d("750"),
			Timestamp: time.Date(2026, time.April, 2, 8, 45, 0, 0, time.Local)},
	}
	return materials, recipes, sales
}

func TestExportImport_RoundTrip(t *testing.T) {
	// GIVEN: Two materials, two recipes with nested items, two sales
	// WHEN: Exporting to a workbook and importing it back
	// THEN: Every field round-trips, nested items included

	materials, recipes, sales := fixture()

	data, err := backup.Export(materials, recipes, sales)
	require.NoError(t, err)

	gotMaterials, gotRecipes, gotSales, err := backup.Import(data)
	require.NoError(t, err)

	require.Len(t, gotMaterials, 2)
	assert.Equal(t, int64(3), gotMaterials[1].ID)
	assert.Equal(t, "espresso", gotMaterials[1].Name)
	assert.True(t, gotMaterials[0].Stock.Equal(d("94.5")))
	assert.True(t, gotMaterials[0].Consumed.Equal(d("5.5")))

	require.Len(t, gotRecipes, 2)
	assert.Equal(t, "pancake", gotRecipes[0].Name)
	assert.True(t, gotRecipes[0].Price.Equal(d("600")))
	assert.Equal(t, int64(2), gotRecipes[0].SoldCount)
	require.Len(t, gotRecipes[0].Items, 2, "nested items must survive the tabular encoding")
	assert.Equal(t, int64(3), gotRecipes[0].Items[1].MaterialID)
	assert.True(t, gotRecipes[0].Items[1].Qty.Equal(d("0.5")))

	require.Len(t, gotSales, 2)
	assert.Equal(t, int64(2), gotSales[1].ID)
	assert.True(t, gotSales[1].PricePerUnit.Equal(d("750")))
	assert.True(t, gotSales[0].Timestamp.Equal(sales[0].Timestamp))
}

func TestExportImport_PreservesAggregation(t *testing.T) {
	// GIVEN: Stats computed over the live collections
	// WHEN: Exporting, importing, replacing all, and recomputing
	// THEN: The aggregation results are identical

	materials, recipes, sales := fixture()
	before := ledger.ComputeStats(sales, recipes, ledger.FilterAll())

	data, err := backup.Export(materials, recipes, sales)
	require.NoError(t, err)
	gotMaterials, gotRecipes, gotSales, err := backup.Import(data)
	require.NoError(t, err)

	store := ledger.NewStore()
	store.ReplaceAll(gotMaterials, gotRecipes, gotSales)

	after := ledger.ComputeStats(store.Sales(), store.Recipes(), ledger.FilterAll())

	assert.Equal(t, before.Summary.TotalQty, after.Summary.TotalQty)
	assert.True(t, before.Summary.TotalSales.Equal(after.Summary.TotalSales))
	require.Len(t, after.PerRecipe, len(before.PerRecipe))
	for i := range before.PerRecipe {
		assert.Equal(t, before.PerRecipe[i].RecipeID, after.PerRecipe[i].RecipeID)
		assert.Equal(t, before.PerRecipe[i].Qty, after.PerRecipe[i].Qty)
		assert.True(t, before.PerRecipe[i].Sales.Equal(after.PerRecipe[i].Sales))
	}
	require.Len(t, after.Hourly, len(before.Hourly))
	for i := range before.Hourly {
		assert.Equal(t, before.Hourly[i].Buckets, after.Hourly[i].Buckets)
	}
}

func TestImport_MissingSheet_Rejected(t *testing.T) {
	// GIVEN: A workbook with materials and recipes but no sales sheet
	// WHEN: Importing
	// THEN: The restore fails entirely, naming the missing resource

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), backup.SheetMaterials))
	_, err := f.NewSheet(backup.SheetRecipes)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))
	require.NoError(t, f.Close())

	_, _, _, err = backup.Import(buf.Bytes())

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrMalformedBackup)
	var missing *ledger.MissingResourceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, backup.SheetSales, missing.Resource)
}

func TestImport_UnreadableData_Rejected(t *testing.T) {
	_, _, _, err := backup.Import([]byte("not a workbook"))
	assert.ErrorIs(t, err, ledger.ErrMalformedBackup)
}

func TestImport_UnparseableSheet_FallsBackToEmpty(t *testing.T) {
	// GIVEN: A valid workbook whose sales sheet has a garbage qty
	// WHEN: Importing
	// THEN: Sales come back empty; the other collections still load

	materials, recipes, sales := fixture()
	data, err := backup.Export(materials, recipes, sales)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(backup.SheetSales, "C2", "many"))
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))
	require.NoError(t, f.Close())

	gotMaterials, gotRecipes, gotSales, err := backup.Import(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, gotMaterials, 2)
	assert.Len(t, gotRecipes, 2)
	assert.Empty(t, gotSales)
}
