/*
handlers_test.go - HTTP surface tests

Tests for:
- Material and recipe creation through the API
- Sale recording, including the insufficient-stock rejection path
- Error status mapping (400/404/409)
- Stats and backup endpoints end to end
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mise/stockledger/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) (http.Handler, *ledger.Store) {
	t.Helper()
	store := ledger.NewStore()
	h := NewHandler(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewRouter(h, false), store
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// seedWorld creates flour (stock 100) and a pancake recipe through the API.
func seedWorld(t *testing.T, router http.Handler) (materialID, recipeID int64) {
	t.Helper()

	rec := do(t, router, http.MethodPost, "/api/materials",
		`{"name": "flour", "stock": "100", "deadline": "10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mat := decode[MaterialDTO](t, rec)

	rec = do(t, router, http.MethodPost, "/api/recipes",
		`{"name": "pancake", "price": "600", "items": [{"material_id": `+
			jsonInt(mat.ID)+`, "qty": "2"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	recipe := decode[RecipeDTO](t, rec)

	return mat.ID, recipe.ID
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// =============================================================================
// MATERIALS
// =============================================================================

func TestCreateAndListMaterials(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/materials",
		`{"name": "espresso", "stock": "50.5", "deadline": "5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[MaterialDTO](t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.LowStock)

	rec = do(t, router, http.MethodGet, "/api/materials", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]MaterialDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "espresso", list[0].Name)
}

func TestCreateMaterial_EmptyName_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/materials",
		`{"name": "", "stock": "1", "deadline": "0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStockIn(t *testing.T) {
	router, _ := newTestRouter(t)
	materialID, _ := seedWorld(t, router)

	rec := do(t, router, http.MethodPost,
		"/api/materials/"+jsonInt(materialID)+"/stock-in", `{"qty": "25"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	mat := decode[MaterialDTO](t, rec)
	assert.Equal(t, "125", mat.Stock.String())
}

func TestDeleteMaterial_InUse_Conflict(t *testing.T) {
	router, _ := newTestRouter(t)
	materialID, _ := seedWorld(t, router)

	rec := do(t, router, http.MethodDelete, "/api/materials/"+jsonInt(materialID), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Details, "pancake")
}

// =============================================================================
// SALES
// =============================================================================

func TestRecordSale_HTTP(t *testing.T) {
	router, store := newTestRouter(t)
	_, recipeID := seedWorld(t, router)

	rec := do(t, router, http.MethodPost, "/api/sales",
		`{"recipe_id": `+jsonInt(recipeID)+`, "qty": 3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decode[SaleDTO](t, rec)
	assert.Equal(t, int64(3), sale.Qty)
	assert.Equal(t, "1800", sale.Total.String())

	mats := store.Materials()
	require.Len(t, mats, 1)
	assert.Equal(t, "94", mats[0].Stock.String())
}

func TestRecordSale_InsufficientStock_BadRequest(t *testing.T) {
	router, store := newTestRouter(t)
	_, recipeID := seedWorld(t, router)

	rec := do(t, router, http.MethodPost, "/api/sales",
		`{"recipe_id": `+jsonInt(recipeID)+`, "qty": 1000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Details, "flour")

	assert.Empty(t, store.Sales(), "rejected sale must not be recorded")
}

func TestRecordSale_UnknownRecipe_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	seedWorld(t, router)

	rec := do(t, router, http.MethodPost, "/api/sales", `{"recipe_id": 99, "qty": 1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// RECIPES
// =============================================================================

func TestDeleteRecipe_ReportsCascadedSales(t *testing.T) {
	router, store := newTestRouter(t)
	_, recipeID := seedWorld(t, router)

	for i := 0; i < 2; i++ {
		rec := do(t, router, http.MethodPost, "/api/sales",
			`{"recipe_id": `+jsonInt(recipeID)+`, "qty": 1}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, router, http.MethodDelete, "/api/recipes/"+jsonInt(recipeID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]int](t, rec)
	assert.Equal(t, 2, resp["removed_sales"])
	assert.Empty(t, store.Sales())
}

func TestCreateRecipe_NoValidItems_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/recipes",
		`{"name": "ghost", "price": "100", "items": [{"material_id": 99, "qty": "1"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// STATS
// =============================================================================

func TestGetStats(t *testing.T) {
	router, _ := newTestRouter(t)
	_, recipeID := seedWorld(t, router)

	rec := do(t, router, http.MethodPost, "/api/sales",
		`{"recipe_id": `+jsonInt(recipeID)+`, "qty": 2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/stats?filter=all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatsDTO](t, rec)
	assert.Equal(t, int64(2), stats.Summary.TotalQty)
	assert.Equal(t, "1200", stats.Summary.TotalSales.String())
	require.Len(t, stats.PerRecipe, 1)
	assert.Equal(t, "pancake", stats.PerRecipe[0].Name)
	require.Len(t, stats.Hourly, 1)
	assert.Len(t, stats.Hourly[0].Buckets, 24)
}

func TestGetStats_UnknownFilter_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/stats?filter=lastweek", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// BACKUP
// =============================================================================

func TestBackup_ExportRestore_HTTP(t *testing.T) {
	router, store := newTestRouter(t)
	_, recipeID := seedWorld(t, router)
	rec := do(t, router, http.MethodPost, "/api/sales",
		`{"recipe_id": `+jsonInt(recipeID)+`, "qty": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/backup/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	workbook := rec.Body.Bytes()

	// Wipe and restore.
	store.ReplaceAll(nil, nil, nil)
	require.Empty(t, store.Materials())

	req := httptest.NewRequest(http.MethodPost, "/api/backup/restore", bytes.NewReader(workbook))
	restoreRec := httptest.NewRecorder()
	router.ServeHTTP(restoreRec, req)
	require.Equal(t, http.StatusOK, restoreRec.Code, restoreRec.Body.String())

	assert.Len(t, store.Materials(), 1)
	assert.Len(t, store.Recipes(), 1)
	assert.Len(t, store.Sales(), 1)
}

func TestBackup_Restore_Garbage_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/backup/restore",
		strings.NewReader("not a workbook"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
