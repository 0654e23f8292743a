package core

import (
	"testing"
	"time"
)

func TestTxTypeValid(t *testing.T) {
	cases := []struct {
		in TxType
		ok bool
	}{
		{Income, true},
		{Expense, true},
		{"Income", false}, // case-sensitive, matching the store convention
		{"EXPENSE", false},
		{"transfer", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := tc.in.Valid(); got != tc.ok {
			t.Fatalf("TxType(%q).Valid() = %v, want %v", tc.in, got, tc.ok)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:         "t1",
		Type:       Income,
		Amount:     Money{Cents: 100},
		Category:   "Salary",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "transfer", Amount: Money{Cents: 1}, Category: "c", OccurredAt: good.OccurredAt},
		{Type: Income, Amount: Money{Cents: -1}, Category: "c", OccurredAt: good.OccurredAt},
		{Type: Income, Amount: Money{Cents: 1}, Category: "c"}, // zero date
		{Type: Income, Amount: Money{Cents: 1}, Category: "  ", OccurredAt: good.OccurredAt},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Name: "Food", Type: Expense}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Category{Name: "", Type: Expense}).Validate(); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := (Category{Name: "Food", Type: "other"}).Validate(); err == nil {
		t.Fatalf("expected error for bad type")
	}
}
