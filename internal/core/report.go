package core

import "sort"

// Row is one flat report line: column name to a string or number, ready for
// a CSV, spreadsheet or PDF table writer. Display formatting (currency,
// date strings) happens here and nowhere else; totals always come from
// Aggregate, never from re-summing in an exporter.
type Row map[string]any

// Column orders for the writers, which need a stable header row.
var (
	TransactionColumns = []string{"ID", "Date", "Type", "Description", "Category", "Amount"}
	BucketColumns      = []string{"Period", "Income", "Expense", "Net"}
	CategoryColumns    = []string{"Type", "Category", "Total"}
)

// TransactionRows flattens a snapshot for detail exports.
func TransactionRows(txs []Transaction) []Row {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, Row{
			"ID":          tx.ID,
			"Date":        tx.OccurredAt.Format("2006-01-02"),
			"Type":        string(tx.Type),
			"Description": tx.Description,
			"Category":    tx.Category,
			"Amount":      amountString(tx.Amount.Cents),
		})
	}
	return rows
}

// BucketRows flattens per-period totals for summary exports. The bucket of
// an unbucketed aggregation is labeled "Total".
func BucketRows(res Result) []Row {
	rows := make([]Row, 0, len(res.Buckets))
	for _, b := range res.Buckets {
		period := b.Key
		if period == "" {
			period = "Total"
		}
		rows = append(rows, Row{
			"Period":  period,
			"Income":  FormatRupees(b.IncomeCents),
			"Expense": FormatRupees(b.ExpenseCents),
			"Net":     FormatRupees(b.NetCents),
		})
	}
	return rows
}

// CategoryRows flattens the per-category totals of a whole-input
// aggregation, income first, categories sorted by name.
func CategoryRows(res Result) []Row {
	income := make(map[string]int64)
	expense := make(map[string]int64)
	for _, b := range res.Buckets {
		for cat, cents := range b.IncomeByCategory {
			income[cat] += cents
		}
		for cat, cents := range b.ExpenseByCategory {
			expense[cat] += cents
		}
	}

	var rows []Row
	for _, part := range []struct {
		typ    TxType
		totals map[string]int64
	}{{Income, income}, {Expense, expense}} {
		cats := make([]string, 0, len(part.totals))
		for c := range part.totals {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			rows = append(rows, Row{
				"Type":     string(part.typ),
				"Category": c,
				"Total":    FormatRupees(part.totals[c]),
			})
		}
	}
	return rows
}
