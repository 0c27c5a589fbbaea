/*
errors.go - Centralized error types for the inventory ledger

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers match with errors.Is on the sentinels, or errors.As on the
  structured types when they need the details for a precise message.

ERROR CATEGORIES:
  1. Input errors     - empty names, non-positive quantities
  2. Stock errors     - a sale would drive a material negative
  3. Integrity errors - deletion blocked by a reference
  4. Backup errors    - missing resource on restore

  None of these are fatal: every failed operation leaves the store
  exactly as it was.

SEE ALSO:
  - engine.go: Returns input and stock errors
  - integrity.go: Returns MaterialInUseError
  - backup package: Returns MissingResourceError
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed input such as an empty
	// name or a negative initial stock.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuantity is returned when a quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInsufficientStock is returned when a sale would drive a
	// material's stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrMaterialInUse is returned when deleting a material that is
	// still referenced by at least one recipe.
	ErrMaterialInUse = errors.New("material in use")

	// ErrEmptyRecipe is returned when no valid items survive filtering
	// on recipe creation.
	ErrEmptyRecipe = errors.New("recipe has no valid items")

	// ErrMaterialNotFound is returned when a referenced material doesn't exist.
	ErrMaterialNotFound = errors.New("material not found")

	// ErrRecipeNotFound is returned when a referenced recipe doesn't exist.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrMalformedBackup is returned when a backup archive is missing a
	// required resource on restore.
	ErrMalformedBackup = errors.New("malformed backup")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports which material fell short, how much
// the sale required, and how much was on hand, so the caller can
// present a precise message.
type InsufficientStockError struct {
	MaterialID   int64
	MaterialName string
	Required     decimal.Decimal
	Available    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	name := e.MaterialName
	if name == "" {
		name = fmt.Sprintf("material #%d", e.MaterialID)
	}
	return fmt.Sprintf("insufficient stock of %s: required %s, available %s",
		name, e.Required, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// MaterialInUseError reports which recipes still reference a material
// whose deletion was blocked.
type MaterialInUseError struct {
	MaterialID   int64
	MaterialName string
	RecipeNames  []string
}

func (e *MaterialInUseError) Error() string {
	return fmt.Sprintf("material %q is used by: %s",
		e.MaterialName, strings.Join(e.RecipeNames, ", "))
}

func (e *MaterialInUseError) Unwrap() error {
	return ErrMaterialInUse
}

// MissingResourceError names the backup resource that was absent on restore.
type MissingResourceError struct {
	Resource string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("backup is missing required resource %q", e.Resource)
}

func (e *MissingResourceError) Unwrap() error {
	return ErrMalformedBackup
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrMaterialInUse) ||
		errors.Is(err, ErrEmptyRecipe) ||
		errors.Is(err, ErrMalformedBackup)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMaterialNotFound) ||
		errors.Is(err, ErrRecipeNotFound)
}
