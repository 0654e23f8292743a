package core

import "time"

// Filter narrows a transaction snapshot before aggregation. Zero values
// disable the corresponding constraint.
type Filter struct {
	From     time.Time
	To       time.Time
	Category string // AllCategories or "" means no category constraint
	Type     TxType // "" means both types
}

// ApplyFilter returns the transactions matching f, preserving input order.
// The input slice is never mutated. The range is inclusive on both ends;
// when To carries no time-of-day it is extended to the end of that day, so
// "to 2024-01-02" includes the whole of January 2nd.
func ApplyFilter(txs []Transaction, f Filter) []Transaction {
	to := f.To
	if !to.IsZero() && isDateOnly(to) {
		to = endOfDay(to)
	}

	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if !f.From.IsZero() && tx.OccurredAt.Before(f.From) {
			continue
		}
		if !to.IsZero() && tx.OccurredAt.After(to) {
			continue
		}
		if f.Category != "" && f.Category != AllCategories && tx.Category != f.Category {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func isDateOnly(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

func endOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 23, 59, 59, 999999999, t.Location())
}
