/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal ledger model from the external contract. The
  core never parses raw form input; the UI constructs these typed
  requests and the handlers validate them.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DECIMALS:
  Quantities and money serialize as JSON strings (decimal.Decimal's
  default), so clients never see float rounding artifacts.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/mise/stockledger/ledger"
)

// =============================================================================
// MATERIALS
// =============================================================================

// MaterialDTO represents a material in API responses.
type MaterialDTO struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Stock    decimal.Decimal `json:"stock"`
	Deadline decimal.Decimal `json:"deadline"`
	Consumed decimal.Decimal `json:"consumed"`
	LowStock bool            `json:"low_stock"`
}

// CreateMaterialRequest is the request to add a material.
type CreateMaterialRequest struct {
	Name     string          `json:"name"`
	Stock    decimal.Decimal `json:"stock"`
	Deadline decimal.Decimal `json:"deadline"`
}

// StockInRequest is the request to add stock to a material.
type StockInRequest struct {
	Qty decimal.Decimal `json:"qty"`
}

func toMaterialDTO(m ledger.Material) MaterialDTO {
	return MaterialDTO{
		ID:       m.ID,
		Name:     m.Name,
		Stock:    m.Stock,
		Deadline: m.Deadline,
		Consumed: m.Consumed,
		LowStock: m.LowStock(),
	}
}

// =============================================================================
// RECIPES
// =============================================================================

// RecipeItemDTO is one material consumption line of a recipe.
type RecipeItemDTO struct {
	MaterialID int64           `json:"material_id"`
	Qty        decimal.Decimal `json:"qty"`
}

// RecipeDTO represents a recipe in API responses.
type RecipeDTO struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Items     []RecipeItemDTO `json:"items"`
	SoldCount int64           `json:"sold_count"`
}

// CreateRecipeRequest is the request to add a recipe.
type CreateRecipeRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Items []RecipeItemDTO `json:"items"`
}

func toRecipeDTO(r ledger.Recipe) RecipeDTO {
	items := make([]RecipeItemDTO, len(r.Items))
	for i, it := range r.Items {
		items[i] = RecipeItemDTO{MaterialID: it.MaterialID, Qty: it.Qty}
	}
	return RecipeDTO{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Items:     items,
		SoldCount: r.SoldCount,
	}
}

// =============================================================================
// SALES
// =============================================================================

// SaleDTO represents a sale in API responses.
type SaleDTO struct {
	ID           int64           `json:"id"`
	RecipeID     int64           `json:"recipe_id"`
	Qty          int64           `json:"qty"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Total        decimal.Decimal `json:"total"`
	Timestamp    string          `json:"timestamp"`
}

// RecordSaleRequest is the request to record a sale.
type RecordSaleRequest struct {
	RecipeID int64 `json:"recipe_id"`
	Qty      int64 `json:"qty"`
}

func toSaleDTO(s ledger.Sale) SaleDTO {
	return SaleDTO{
		ID:           s.ID,
		RecipeID:     s.RecipeID,
		Qty:          s.Qty,
		PricePerUnit: s.PricePerUnit,
		Total:        s.Total(),
		Timestamp:    s.Timestamp.Format(timeFormat),
	}
}

// =============================================================================
// STATS
// =============================================================================

// SummaryDTO totals the filtered sales.
type SummaryDTO struct {
	TotalQty   int64           `json:"total_qty"`
	TotalSales decimal.Decimal `json:"total_sales"`
}

// RecipeStatsDTO is one per-recipe rollup.
type RecipeStatsDTO struct {
	RecipeID int64           `json:"recipe_id"`
	Name     string          `json:"name"`
	Qty      int64           `json:"qty"`
	Sales    decimal.Decimal `json:"sales"`
}

// HourlySeriesDTO is the 24-bucket series for one recipe.
// A null bucket is a gap (no data), not a zero.
type HourlySeriesDTO struct {
	RecipeID int64    `json:"recipe_id"`
	Buckets  []*int64 `json:"buckets"`
}

// StatsDTO is the full aggregation response.
type StatsDTO struct {
	Summary   SummaryDTO        `json:"summary"`
	PerRecipe []RecipeStatsDTO  `json:"per_recipe"`
	Hourly    []HourlySeriesDTO `json:"hourly"`
}

func toStatsDTO(s ledger.Stats) StatsDTO {
	perRecipe := make([]RecipeStatsDTO, len(s.PerRecipe))
	for i, r := range s.PerRecipe {
		perRecipe[i] = RecipeStatsDTO{
			RecipeID: r.RecipeID,
			Name:     r.Name,
			Qty:      r.Qty,
			Sales:    r.Sales,
		}
	}
	hourly := make([]HourlySeriesDTO, len(s.Hourly))
	for i, h := range s.Hourly {
		buckets := make([]*int64, len(h.Buckets))
		copy(buckets, h.Buckets[:])
		hourly[i] = HourlySeriesDTO{RecipeID: h.RecipeID, Buckets: buckets}
	}
	return StatsDTO{
		Summary:   SummaryDTO{TotalQty: s.Summary.TotalQty, TotalSales: s.Summary.TotalSales},
		PerRecipe: perRecipe,
		Hourly:    hourly,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
