/*
Package backup packages the three ledger collections as a single xlsx
workbook and restores them from one.

PURPOSE:
  Operators back up and move their data as one spreadsheet file with
  three named tabular resources (sheets): materials, recipes, sales.
  Each collection exports independently as flat rows; a recipe's item
  list is nested, so it rides in ONE encoded cell (a JSON sub-value)
  and round-trips through the tabular format intact.

RESTORE CONTRACT:
  - All three sheets must be present, or the restore fails entirely
    with a MissingResourceError naming the absent sheet.
  - A sheet whose rows cannot be parsed comes back as an empty
    collection for that entity type rather than aborting the load;
    ledger.Store.ReplaceAll applies the same rule to malformed
    entities.
  - The caller swaps the result in via Store.ReplaceAll, so a failed
    restore never touches the in-memory state.

SEE ALSO:
  - ledger/store.go: ReplaceAll, the other half of the restore path
  - store/sqlite: The durable snapshot store (same nested-items encoding)
*/
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mise/stockledger/ledger"
)

// Sheet names, one per collection. Restore requires all three.
const (
	SheetMaterials = "materials"
	SheetRecipes   = "recipes"
	SheetSales     = "sales"
)

const timestampFormat = time.RFC3339Nano

// =============================================================================
// EXPORT
// =============================================================================

// Export writes the three collections into one xlsx workbook.
func Export(materials []ledger.Material, recipes []ledger.Recipe, sales []ledger.Sale) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet becomes the materials sheet.
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetMaterials); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetRecipes, SheetSales} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	materialRows := [][]interface{}{
		{"id", "name", "stock", "deadline", "consumed"},
	}
	for _, m := range materials {
		materialRows = append(materialRows, []interface{}{
			m.ID, m.Name, m.Stock.String(), m.Deadline.String(), m.Consumed.String(),
		})
	}

	recipeRows := [][]interface{}{
		{"id", "name", "price", "items", "sold_count"},
	}
	for _, r := range recipes {
		items, err := encodeItems(r.Items)
		if err != nil {
			return nil, fmt.Errorf("encode items of recipe %d: %w", r.ID, err)
		}
		recipeRows = append(recipeRows, []interface{}{
			r.ID, r.Name, r.Price.String(), items, r.SoldCount,
		})
	}

	saleRows := [][]interface{}{
		{"id", "recipe_id", "qty", "price_per_unit", "timestamp"},
	}
	for _, s := range sales {
		saleRows = append(saleRows, []interface{}{
			s.ID, s.RecipeID, s.Qty, s.PricePerUnit.String(),
			s.Timestamp.Format(timestampFormat),
		})
	}

	for sheet, rows := range map[string][][]interface{}{
		SheetMaterials: materialRows,
		SheetRecipes:   recipeRows,
		SheetSales:     saleRows,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// =============================================================================
// IMPORT
// =============================================================================

// Import parses a workbook produced by Export. All three sheets must be
// present; an unparseable sheet yields an empty collection for that
// entity type.
func Import(data []byte) ([]ledger.Material, []ledger.Recipe, []ledger.Sale, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: not a readable workbook", ledger.ErrMalformedBackup)
	}
	defer func() { _ = f.Close() }()

	var rows = map[string][][]string{}
	for _, sheet := range []string{SheetMaterials, SheetRecipes, SheetSales} {
		idx, err := f.GetSheetIndex(sheet)
		if err != nil || idx < 0 {
			return nil, nil, nil, &ledger.MissingResourceError{Resource: sheet}
		}
		r, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, nil, &ledger.MissingResourceError{Resource: sheet}
		}
		rows[sheet] = r
	}

	materials, err := parseMaterials(rows[SheetMaterials])
	if err != nil {
		materials = []ledger.Material{}
	}
	recipes, err := parseRecipes(rows[SheetRecipes])
	if err != nil {
		recipes = []ledger.Recipe{}
	}
	sales, err := parseSales(rows[SheetSales])
	if err != nil {
		sales = []ledger.Sale{}
	}
	return materials, recipes, sales, nil
}

func parseMaterials(rows [][]string) ([]ledger.Material, error) {
	var out []ledger.Material
	for i, row := range dataRows(rows) {
		if len(row) < 5 {
			return nil, fmt.Errorf("materials row %d: want 5 columns, got %d", i+2, len(row))
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("materials row %d: id: %w", i+2, err)
		}
		stock, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("materials row %d: stock: %w", i+2, err)
		}
		deadline, err := decimal.NewFromString(row[3])
		if err != nil {
			return nil, fmt.Errorf("materials row %d: deadline: %w", i+2, err)
		}
		consumed, err := decimal.NewFromString(row[4])
		if err != nil {
			return nil, fmt.Errorf("materials row %d: consumed: %w", i+2, err)
		}
		out = append(out, ledger.Material{
			ID: id, Name: row[1], Stock: stock, Deadline: deadline, Consumed: consumed,
		})
	}
	return out, nil
}

func parseRecipes(rows [][]string) ([]ledger.Recipe, error) {
	var out []ledger.Recipe
	for i, row := range dataRows(rows) {
		if len(row) < 5 {
			return nil, fmt.Errorf("recipes row %d: want 5 columns, got %d", i+2, len(row))
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("recipes row %d: id: %w", i+2, err)
		}
		price, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("recipes row %d: price: %w", i+2, err)
		}
		items, err := decodeItems(row[3])
		if err != nil {
			return nil, fmt.Errorf("recipes row %d: items: %w", i+2, err)
		}
		sold, err := strconv.ParseInt(row[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("recipes row %d: sold_count: %w", i+2, err)
		}
		out = append(out, ledger.Recipe{
			ID: id, Name: row[1], Price: price, Items: items, SoldCount: sold,
		})
	}
	return out, nil
}

func parseSales(rows [][]string) ([]ledger.Sale, error) {
	var out []ledger.Sale
	for i, row := range dataRows(rows) {
		if len(row) < 5 {
			return nil, fmt.Errorf("sales row %d: want 5 columns, got %d", i+2, len(row))
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sales row %d: id: %w", i+2, err)
		}
		recipeID, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sales row %d: recipe_id: %w", i+2, err)
		}
		qty, err := strconv.ParseInt(row[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sales row %d: qty: %w", i+2, err)
		}
		price, err := decimal.NewFromString(row[3])
		if err != nil {
			return nil, fmt.Errorf("sales row %d: price_per_unit: %w", i+2, err)
		}
		ts, err := time.Parse(timestampFormat, row[4])
		if err != nil {
			return nil, fmt.Errorf("sales row %d: timestamp: %w", i+2, err)
		}
		out = append(out, ledger.Sale{
			ID: id, RecipeID: recipeID, Qty: qty, PricePerUnit: price, Timestamp: ts,
		})
	}
	return out, nil
}

// dataRows skips the header row.
func dataRows(rows [][]string) [][]string {
	if len(rows) < 2 {
		return nil
	}
	return rows[1:]
}

// =============================================================================
// NESTED ITEMS ENCODING
// =============================================================================
// A recipe's item list is a nested sequence, so it is carried as a
// single JSON-encoded cell value instead of being spread across columns.

type itemJSON struct {
	MaterialID int64  `json:"material_id"`
	Qty        string `json:"qty"`
}

func encodeItems(items []ledger.RecipeItem) (string, error) {
	enc := make([]itemJSON, len(items))
	for i, it := range items {
		enc[i] = itemJSON{MaterialID: it.MaterialID, Qty: it.Qty.String()}
	}
	b, err := json.Marshal(enc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeItems(s string) ([]ledger.RecipeItem, error) {
	var enc []itemJSON
	if err := json.Unmarshal([]byte(s), &enc); err != nil {
		return nil, err
	}
	items := make([]ledger.RecipeItem, len(enc))
	for i, it := range enc {
		qty, err := decimal.NewFromString(it.Qty)
		if err != nil {
			return nil, err
		}
		items[i] = ledger.RecipeItem{MaterialID: it.MaterialID, Qty: qty}
	}
	return items, nil
}
