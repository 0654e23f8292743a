package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"khata/internal/core"
)

func testTx(id string, cents int64) core.Transaction {
	return core.Transaction{
		ID:         id,
		Type:       core.Expense,
		Amount:     core.Money{Cents: cents},
		Category:   "Food",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Append(ctx, "fam1", testTx("", 100))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}
	if _, err := s.Append(ctx, "fam2", testTx("t2", 200)); err != nil {
		t.Fatalf("append: %v", err)
	}

	txs, err := s.ListTransactions(ctx, "fam1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != id {
		t.Fatalf("unexpected fam1 snapshot: %+v", txs)
	}

	// Families are isolated.
	txs, _ = s.ListTransactions(ctx, "fam2")
	if len(txs) != 1 || txs[0].ID != "t2" {
		t.Fatalf("unexpected fam2 snapshot: %+v", txs)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	bad := testTx("t1", 100)
	bad.Type = "transfer"
	if _, err := s.Append(context.Background(), "fam", bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestUpdateTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Append(ctx, "fam", testTx("t1", 100)); err != nil {
		t.Fatalf("append: %v", err)
	}

	edited := testTx("t1", 250)
	edited.Category = "Transport"
	edited.Description = "bus pass"
	if err := s.UpdateTransaction(ctx, "fam", edited); err != nil {
		t.Fatalf("update: %v", err)
	}

	txs, _ := s.ListTransactions(ctx, "fam")
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	got := txs[0]
	if got.Amount.Cents != 250 || got.Category != "Transport" || got.Description != "bus pass" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := s.UpdateTransaction(ctx, "fam", testTx("missing", 100)); err == nil {
		t.Fatalf("expected error updating unknown id")
	}

	bad := testTx("t1", 100)
	bad.Type = "transfer"
	if err := s.UpdateTransaction(ctx, "fam", bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Append(ctx, "fam", testTx("t1", 100)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "fam", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "fam", "t1"); err == nil {
		t.Fatalf("expected error deleting twice")
	}
	txs, _ := s.ListTransactions(ctx, "fam")
	if len(txs) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", txs)
	}
}

func TestCategories(t *testing.T) {
	s := New()
	ctx := context.Background()

	cats := []core.Category{
		{Name: "Food", Type: core.Expense, Color: "#fff"},
		{Name: "Salary", Type: core.Income},
		{Name: "Rent", Type: core.Expense},
	}
	for _, c := range cats {
		if err := s.SaveCategory(ctx, "fam", c); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	// Same (name, type) updates in place.
	if err := s.SaveCategory(ctx, "fam", core.Category{Name: "Food", Type: core.Expense, Color: "#f00"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.ListCategories(ctx, "fam")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(got))
	}
	// Sorted by type then name: Food, Rent, Salary.
	if got[0].Name != "Food" || got[0].Color != "#f00" || got[1].Name != "Rent" || got[2].Name != "Salary" {
		t.Fatalf("unexpected order: %+v", got)
	}

	if err := s.DeleteCategory(ctx, "fam", "Rent", core.Expense); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = s.ListCategories(ctx, "fam")
	if len(got) != 2 {
		t.Fatalf("expected 2 categories after delete, got %d", len(got))
	}
}

func TestListFamilies(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Append(ctx, "b", testTx("t1", 100))
	s.Append(ctx, "a", testTx("t2", 100))
	s.SaveCategory(ctx, "c", core.Category{Name: "Food", Type: core.Expense})

	families, err := s.ListFamilies(ctx)
	if err != nil {
		t.Fatalf("list families: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(families) != 3 {
		t.Fatalf("expected 3 families, got %v", families)
	}
	for i, f := range want {
		if families[i] != f {
			t.Fatalf("families = %v, want %v", families, want)
		}
	}
}

func TestNewFromFiles(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	seed := `[
		{"title": "pay", "amount": 100, "category": "Salary", "type": "income", "date": "2024-01-01"},
		{"title": "bad", "amount": "-5", "type": "expense", "date": "2024-01-01"},
		{"title": "lunch", "amount": "4.50", "category": "Food", "type": "expense", "date": "2024-01-02"}
	]`
	if err := os.WriteFile(filepath.Join(base, "data", "seed_transactions.json"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFromFiles(base)
	if err != nil {
		t.Fatalf("NewFromFiles: %v", err)
	}
	txs, _ := s.ListTransactions(context.Background(), "demo")
	if len(txs) != 2 {
		t.Fatalf("expected 2 seeded transactions, got %d", len(txs))
	}
}

func TestNewFromFilesMissingDir(t *testing.T) {
	s, err := NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatalf("missing seed files should not fail: %v", err)
	}
	families, _ := s.ListFamilies(context.Background())
	if len(families) != 0 {
		t.Fatalf("expected no families, got %v", families)
	}
}
