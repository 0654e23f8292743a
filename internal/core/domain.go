package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// AllCategories is the sentinel a caller passes to disable category
// filtering. An empty string is accepted as an alias.
const AllCategories = "All Categories"

// DefaultCategory is assigned when a raw record carries no category.
const DefaultCategory = "Uncategorized"

type (
	TxType string

	// Transaction is the canonical, post-normalization record. Amounts are
	// always non-negative; the sign is carried by Type.
	Transaction struct {
		ID          string
		Type        TxType
		Amount      Money
		Category    string
		Description string
		OccurredAt  time.Time
		Owner       string // opaque reference to the creating user
	}

	// Category lifecycle is owned by the store and the UI; aggregation only
	// uses the name as a grouping key.
	Category struct {
		Name      string
		Type      TxType
		Color     string
		Icon      string
		CreatedBy string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrEmptyCategory = errors.New("empty category name")
)

// Valid reports whether the type is one of the two recognized values.
// Matching is case-sensitive, following the store's convention.
func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if tx.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if tx.OccurredAt.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}
