/*
stats.go - Time-windowed sales aggregation

PURPOSE:
  Derives report data from the sale collection: totals, per-recipe
  rollups and per-hour buckets over a time window. Read-only and
  side-effect free; recomputed on every query since the collections are
  memory-resident.

FILTERS:
  today           the current calendar day, local time, both boundaries
                  inclusive
  all             no filtering
  custom(a, b)    calendar dates expanded to a 00:00:00.000 .. b
                  23:59:59.999, local time, inclusive. An inverted or
                  incomplete range yields an empty result, not an error.

OUTPUT SHAPE:
  Summary         total units and total revenue over the filtered set
  PerRecipe       one entry per distinct recipe, in insertion order of
                  first occurrence in the filtered sequence (not sorted);
                  a deleted recipe shows the fixed placeholder label
  Hourly          a 24-bucket series per recipe indexed by local
                  hour-of-day; a nil bucket is a "no data" marker,
                  distinct from an explicit zero

TIMEZONE:
  Hour bucketing uses local wall-clock time with no normalization. The
  deployment is single-location; cross-timezone use is out of scope.

SEE ALSO:
  - store.go: Where the sale collection lives
  - integrity.go: The cascade that keeps RecipeIDs resolvable
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeletedRecipeLabel is the placeholder name reported for sales whose
// recipe no longer exists.
const DeletedRecipeLabel = "(deleted recipe)"

// =============================================================================
// FILTER
// =============================================================================

type FilterMode int

const (
	FilterModeAll FilterMode = iota
	FilterModeToday
	FilterModeCustom
)

// StatsFilter selects which sales enter the aggregation.
type StatsFilter struct {
	Mode  FilterMode
	Start time.Time // calendar date; zero means absent
	End   time.Time // calendar date; zero means absent
}

// FilterAll selects every sale.
func FilterAll() StatsFilter {
	return StatsFilter{Mode: FilterModeAll}
}

// FilterToday selects sales falling within the current calendar day.
func FilterToday() StatsFilter {
	return StatsFilter{Mode: FilterModeToday}
}

// FilterRange selects sales between start 00:00:00.000 and end
// 23:59:59.999, both given as calendar dates.
func FilterRange(start, end time.Time) StatsFilter {
	return StatsFilter{Mode: FilterModeCustom, Start: start, End: end}
}

// window resolves the filter to a concrete [from, to] interval.
// ok=false means the filter selects nothing; all=true means no bounds.
func (f StatsFilter) window() (from, to time.Time, all, ok bool) {
	switch f.Mode {
	case FilterModeAll:
		return time.Time{}, time.Time{}, true, true
	case FilterModeToday:
		now := time.Now()
		from = startOfDay(now)
		return from, endOfDay(now), false, true
	case FilterModeCustom:
		if f.Start.IsZero() || f.End.IsZero() {
			return time.Time{}, time.Time{}, false, false
		}
		from = startOfDay(f.Start)
		to = endOfDay(f.End)
		if from.After(to) {
			return time.Time{}, time.Time{}, false, false
		}
		return from, to, false, true
	default:
		return time.Time{}, time.Time{}, false, false
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// Summary totals the filtered set.
type Summary struct {
	TotalQty   int64
	TotalSales decimal.Decimal // sum of Qty * PricePerUnit
}

// RecipeStats is the rollup for one recipe over the filtered set.
type RecipeStats struct {
	RecipeID int64
	Name     string
	Qty      int64
	Sales    decimal.Decimal
}

// HourlySeries is a fixed 24-bucket series for one recipe, indexed by
// local hour-of-day. A nil bucket means no data for that hour -
// consumers must treat it as a gap, not a zero.
type HourlySeries struct {
	RecipeID int64
	Buckets  [24]*int64
}

// Stats is the full aggregation result.
type Stats struct {
	Summary   Summary
	PerRecipe []RecipeStats
	Hourly    []HourlySeries
}

// =============================================================================
// COMPUTE
// =============================================================================

// ComputeStats aggregates the filtered sales: overall totals, one
// rollup per distinct recipe in order of first occurrence, and one
// 24-bucket hourly series per recipe. Pure; no caching, no mutation.
func ComputeStats(sales []Sale, recipes []Recipe, filter StatsFilter) Stats {
	stats := Stats{
		Summary:   Summary{TotalSales: decimal.Zero},
		PerRecipe: []RecipeStats{},
		Hourly:    []HourlySeries{},
	}

	from, to, all, ok := filter.window()
	if !ok {
		return stats
	}

	names := make(map[int64]string, len(recipes))
	for _, r := range recipes {
		names[r.ID] = r.Name
	}

	// Index into PerRecipe/Hourly by recipe, preserving first-occurrence order.
	index := make(map[int64]int)

	for _, sale := range sales {
		if !all && (sale.Timestamp.Before(from) || sale.Timestamp.After(to)) {
			continue
		}

		stats.Summary.TotalQty += sale.Qty
		stats.Summary.TotalSales = stats.Summary.TotalSales.Add(sale.Total())

		i, seen := index[sale.RecipeID]
		if !seen {
			name, exists := names[sale.RecipeID]
			if !exists {
				name = DeletedRecipeLabel
			}
			i = len(stats.PerRecipe)
			index[sale.RecipeID] = i
			stats.PerRecipe = append(stats.PerRecipe, RecipeStats{
				RecipeID: sale.RecipeID,
				Name:     name,
				Sales:    decimal.Zero,
			})
			stats.Hourly = append(stats.Hourly, HourlySeries{RecipeID: sale.RecipeID})
		}

		stats.PerRecipe[i].Qty += sale.Qty
		stats.PerRecipe[i].Sales = stats.PerRecipe[i].Sales.Add(sale.Total())

		hour := sale.Timestamp.Local().Hour()
		if stats.Hourly[i].Buckets[hour] == nil {
			stats.Hourly[i].Buckets[hour] = new(int64)
		}
		*stats.Hourly[i].Buckets[hour] += sale.Qty
	}

	return stats
}
