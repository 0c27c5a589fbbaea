/*
Package sqlite provides the durable snapshot store for the ledger.

PURPOSE:
  The ledger is memory-resident; this package is the persistence
  collaborator that reads and writes the durable copy. Each collection
  persists as an ordered sequence of flat records. A recipe's item list
  is nested, so it is stored as a single JSON-encoded TEXT column and
  round-trips through the flat schema unchanged.

KEY TABLES:
  materials: id, name, stock, deadline, consumed
  recipes:   id, name, price, items_json, sold_count
  sales:     id, recipe_id, qty, price_per_unit, sold_at

DECIMALS:
  Quantities and money are stored as TEXT to preserve decimal
  precision; SQLite REAL would reintroduce float rounding.

SNAPSHOT SEMANTICS:
  Save rewrites all three tables inside one database transaction, so a
  crash mid-save leaves the previous snapshot intact. Load returns the
  three collections for Store.ReplaceAll.

WAL MODE:
  The database is opened with WAL for better crash recovery.

USAGE:
  snap, err := sqlite.New("./stockledger.db")
  ...
  materials, recipes, sales, err := snap.Load(ctx)
  store.ReplaceAll(materials, recipes, sales)

SEE ALSO:
  - ledger/store.go: The in-memory system of record this snapshots
  - backup package: The operator-facing xlsx encoding of the same data
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/mise/stockledger/ledger"
)

// Store persists ledger snapshots in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS materials (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		stock TEXT NOT NULL,
		deadline TEXT NOT NULL,
		consumed TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recipes (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		items_json TEXT NOT NULL,
		sold_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY,
		recipe_id INTEGER NOT NULL,
		qty INTEGER NOT NULL,
		price_per_unit TEXT NOT NULL,
		sold_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_recipe ON sales(recipe_id);
	CREATE INDEX IF NOT EXISTS idx_sales_sold_at ON sales(sold_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SAVE - Rewrite the snapshot in one transaction
// =============================================================================

// Save replaces the durable snapshot with the given collections.
// All-or-nothing: a failure rolls back to the previous snapshot.
func (s *Store) Save(ctx context.Context, materials []ledger.Material, recipes []ledger.Recipe, sales []ledger.Sale) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"materials", "recipes", "sales"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, m := range materials {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO materials (id, name, stock, deadline, consumed) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.Stock.String(), m.Deadline.String(), m.Consumed.String(),
		)
		if err != nil {
			return fmt.Errorf("save material %d: %w", m.ID, err)
		}
	}

	for _, r := range recipes {
		items, err := encodeItems(r.Items)
		if err != nil {
			return fmt.Errorf("encode items of recipe %d: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recipes (id, name, price, items_json, sold_count) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Price.String(), items, r.SoldCount,
		)
		if err != nil {
			return fmt.Errorf("save recipe %d: %w", r.ID, err)
		}
	}

	for _, sl := range sales {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sales (id, recipe_id, qty, price_per_unit, sold_at) VALUES (?, ?, ?, ?, ?)`,
			sl.ID, sl.RecipeID, sl.Qty, sl.PricePerUnit.String(),
			sl.Timestamp.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("save sale %d: %w", sl.ID, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// LOAD - Read the snapshot back
// =============================================================================

// Load reads the three collections, ordered by id,
// ready for Store.ReplaceAll.
func (s *Store) Load(ctx context.Context) ([]ledger.Material, []ledger.Recipe, []ledger.Sale, error) {
	materials, err := s.loadMaterials(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	recipes, err := s.loadRecipes(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	sales, err := s.loadSales(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return materials, recipes, sales, nil
}

func (s *Store) loadMaterials(ctx context.Context) ([]ledger.Material, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, stock, deadline, consumed FROM materials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}
	defer rows.Close()

	var out []ledger.Material
	for rows.Next() {
		var m ledger.Material
		var stock, deadline, consumed string
		if err := rows.Scan(&m.ID, &m.Name, &stock, &deadline, &consumed); err != nil {
			return nil, err
		}
		if m.Stock, err = decimal.NewFromString(stock); err != nil {
			return nil, fmt.Errorf("material %d: stock: %w", m.ID, err)
		}
		if m.Deadline, err = decimal.NewFromString(deadline); err != nil {
			return nil, fmt.Errorf("material %d: deadline: %w", m.ID, err)
		}
		if m.Consumed, err = decimal.NewFromString(consumed); err != nil {
			return nil, fmt.Errorf("material %d: consumed: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) loadRecipes(ctx context.Context) ([]ledger.Recipe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price, items_json, sold_count FROM recipes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}
	defer rows.Close()

	var out []ledger.Recipe
	for rows.Next() {
		var r ledger.Recipe
		var price, items string
		if err := rows.Scan(&r.ID, &r.Name, &price, &items, &r.SoldCount); err != nil {
			return nil, err
		}
		if r.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("recipe %d: price: %w", r.ID, err)
		}
		if r.Items, err = decodeItems(items); err != nil {
			return nil, fmt.Errorf("recipe %d: items: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) loadSales(ctx context.Context) ([]ledger.Sale, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipe_id, qty, price_per_unit, sold_at FROM sales ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	defer rows.Close()

	var out []ledger.Sale
	for rows.Next() {
		var sl ledger.Sale
		var price, soldAt string
		if err := rows.Scan(&sl.ID, &sl.RecipeID, &sl.Qty, &price, &soldAt); err != nil {
			return nil, err
		}
		if sl.PricePerUnit, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("sale %d: price_per_unit: %w", sl.ID, err)
		}
		if sl.Timestamp, err = time.Parse(time.RFC3339Nano, soldAt); err != nil {
			return nil, fmt.Errorf("sale %d: sold_at: %w", sl.ID, err)
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// =============================================================================
// NESTED ITEMS ENCODING - Same shape the backup package uses
// =============================================================================

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
