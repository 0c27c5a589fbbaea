/*
handlers.go - HTTP API handlers for the inventory ledger

PURPOSE:
  Exposes the ledger via REST. Handles HTTP request/response and JSON
  serialization, delegates all business rules to the ledger package.

ENDPOINTS:
  Materials:
    GET    /api/materials                 List materials
    POST   /api/materials                 Add material
    POST   /api/materials/{id}/stock-in   Add stock
    DELETE /api/materials/{id}            Delete (blocked while referenced)

  Recipes:
    GET    /api/recipes                   List recipes
    POST   /api/recipes                   Add recipe
    DELETE /api/recipes/{id}              Delete (cascades to sales)

  Sales:
    GET    /api/sales                     List sales
    POST   /api/sales                     Record a sale

  Reports:
    GET    /api/stats?filter=today|all|custom&start=&end=

  Backup:
    GET    /api/backup/export             Download xlsx workbook
    POST   /api/backup/restore            Upload xlsx workbook

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, insufficient stock, empty recipe, bad backup
  - 404: Unknown material or recipe
  - 409: Material still referenced by a recipe
  - 500: Internal errors

PERSISTENCE:
  Every successful mutation writes a fresh snapshot through the sqlite
  store; a snapshot failure is logged, never surfaced, since the
  in-memory state already committed.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mise/stockledger/backup"
	"github.com/mise/stockledger/ledger"
)

const (
	timeFormat = time.RFC3339
	dateFormat = "2006-01-02"
)

// Snapshotter is the durable persistence collaborator.
// Implemented by store/sqlite.Store; nil disables persistence.
type Snapshotter interface {
	Save(ctx context.Context, materials []ledger.Material, recipes []ledger.Recipe, sales []ledger.Sale) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *ledger.Store
	Engine *ledger.Engine
	Guard  *ledger.Guard
	Snap   Snapshotter
	Log    *slog.Logger
}

// NewHandler creates a handler around the given store. snap may be nil
// to run without durable persistence.
func NewHandler(store *ledger.Store, snap Snapshotter, log *slog.Logger) *Handler {
	return &Handler{
		Ledger: store,
		Engine: ledger.NewEngine(store),
		Guard:  ledger.NewGuard(store),
		Snap:   snap,
		Log:    log,
	}
}

// persist writes a snapshot after a successful mutation.
func (h *Handler) persist(r *http.Request) {
	if h.Snap == nil {
		return
	}
	err := h.Snap.Save(r.Context(), h.Ledger.Materials(), h.Ledger.Recipes(), h.Ledger.Sales())
	if err != nil {
		h.Log.Error("snapshot failed", "err", err)
	}
}

// =============================================================================
// MATERIAL HANDLERS
// =============================================================================

// ListMaterials returns all materials.
// GET /api/materials
func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials := h.Ledger.Materials()
	dtos := make([]MaterialDTO, len(materials))
	for i, m := range materials {
		dtos[i] = toMaterialDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMaterial adds a material.
// POST /api/materials
func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req CreateMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mat, err := h.Engine.AddMaterial(req.Name, req.Stock, req.Deadline)
	if err != nil {
		writeLedgerError(w, "Failed to add material", err)
		return
	}

	h.persist(r)
	writeJSON(w, http.StatusCreated, toMaterialDTO(mat))
}

// StockIn adds stock to a material.
// POST /api/materials/{id}/stock-in
func (h *Handler) StockIn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid material id", err)
		return
	}

	var req StockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mat, err := h.Engine.StockIn(id, req.Qty)
	if err != nil {
		writeLedgerError(w, "Failed to stock in", err)
		return
	}

	h.persist(r)
	writeJSON(w, http.StatusOK, toMaterialDTO(mat))
}

// DeleteMaterial removes a material unless a recipe references it.
// DELETE /api/materials/{id}
func (h *Handler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid material id", err)
		return
	}

	if err := h.Guard.DeleteMaterial(id); err != nil {
		writeLedgerError(w, "Failed to delete material", err)
		return
	}

	h.persist(r)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECIPE HANDLERS
// =============================================================================

// ListRecipes returns all recipes.
// GET /api/recipes
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes := h.Ledger.Recipes()
	dtos := make([]RecipeDTO, len(recipes))
	for i, rec := range recipes {
		dtos[i] = toRecipeDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRecipe adds a recipe.
// POST /api/recipes
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req CreateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]ledger.RecipeItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = ledger.RecipeItem{MaterialID: it.MaterialID, Qty: it.Qty}
	}

	recipe, err := h.Engine.AddRecipe(req.Name, req.Price, items)
	if err != nil {
		writeLedgerError(w, "Failed to add recipe", err)
		return
	}

	h.persist(r)
	writeJSON(w, http.StatusCreated, toRecipeDTO(recipe))
}

// DeleteRecipe removes a recipe and cascades to its sales.
// DELETE /api/recipes/{id}
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recipe id", err)
		return
	}

	removed, err := h.Guard.DeleteRecipe(id)
	if err != nil {
		writeLedgerError(w, "Failed to delete recipe", err)
		return
	}

	h.persist(r)
	writeJSON(w, http.StatusOK, map[string]int{"removed_sales": removed})
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// ListSales returns all sales.
// GET /api/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales := h.Ledger.Sales()
	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordSale sells a recipe, consuming its materials atomically.
// POST /api/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req RecordSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sale, err := h.Engine.RecordSale(req.RecipeID, req.Qty)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientStock) {
			salesRejected.Inc()
		}
		writeLedgerError(w, "Failed to record sale", err)
		return
	}

	salesRecorded.Inc()
	h.persist(r)
	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

// =============================================================================
// STATS HANDLER
// =============================================================================

// GetStats aggregates sales over a time window.
// GET /api/stats?filter=today|all|custom&start=2026-04-02&end=2026-04-03
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	stats := ledger.ComputeStats(h.Ledger.Sales(), h.Ledger.Recipes(), filter)
	writeJSON(w, http.StatusOK, toStatsDTO(stats))
}

func parseFilter(r *http.Request) (ledger.StatsFilter, error) {
	switch mode := r.URL.Query().Get("filter"); mode {
	case "", "all":
		return ledger.FilterAll(), nil
	case "today":
		return ledger.FilterToday(), nil
	case "custom":
		// Absent or inverted dates yield an empty result downstream,
		// not an error; only unparseable dates are rejected here.
		var start, end time.Time
		var err error
		if s := r.URL.Query().Get("start"); s != "" {
			if start, err = time.ParseInLocation(dateFormat, s, time.Local); err != nil {
				return ledger.StatsFilter{}, fmt.Errorf("start: %w", err)
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if end, err = time.ParseInLocation(dateFormat, s, time.Local); err != nil {
				return ledger.StatsFilter{}, fmt.Errorf("end: %w", err)
			}
		}
		return ledger.FilterRange(start, end), nil
	default:
		return ledger.StatsFilter{}, fmt.Errorf("unknown filter %q", mode)
	}
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// ExportBackup downloads the three collections as one xlsx workbook.
// GET /api/backup/export
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := backup.Export(h.Ledger.Materials(), h.Ledger.Recipes(), h.Ledger.Sales())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export backup", err)
		return
	}

	name := fmt.Sprintf("stockledger_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// RestoreBackup replaces all three collections from an uploaded
// workbook. The prior state is untouched if the workbook is rejected.
// POST /api/backup/restore
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	materials, recipes, sales, err := backup.Import(data)
	if err != nil {
		writeLedgerError(w, "Failed to restore backup", err)
		return
	}

	h.Ledger.ReplaceAll(materials, recipes, sales)
	h.persist(r)
	writeJSON(w, http.StatusOK, map[string]int{
		"materials": len(h.Ledger.Materials()),
		"recipes":   len(h.Ledger.Recipes()),
		"sales":     len(h.Ledger.Sales()),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps ledger error kinds to HTTP statuses.
func writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrMaterialInUse):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
