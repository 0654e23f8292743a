package core

import (
	"sort"
	"time"
)

// Bucketing selects the time partition used to group transactions.
type Bucketing int

const (
	// BucketNone folds the whole input into a single bucket with an empty key.
	BucketNone Bucketing = iota
	// BucketDaily keys buckets as "2006-01-02".
	BucketDaily
	// BucketMonthly keys buckets as "2006-01".
	BucketMonthly
)

// AggregateOptions configures one aggregation pass.
type AggregateOptions struct {
	Bucketing Bucketing

	// RangeStart/RangeEnd, when both set, force a bucket for every day or
	// month in the range even if no transaction falls into it. Charts need
	// contiguous axes; a day without spending is zero, not absent.
	RangeStart time.Time
	RangeEnd   time.Time

	// OpeningBalanceCents seeds the running balance. Default 0.
	OpeningBalanceCents int64

	// Location is the calendar used to derive bucket keys. Nil means UTC.
	Location *time.Location
}

// Bucket holds the totals for one time partition. Income and expense are
// positive; the sign convention lives in NetCents only.
type Bucket struct {
	Key               string
	IncomeCents       int64
	ExpenseCents      int64
	NetCents          int64
	IncomeByCategory  map[string]int64
	ExpenseByCategory map[string]int64
}

// BalanceEntry is one step of the running balance, in chronological order.
type BalanceEntry struct {
	ID           string
	OccurredAt   time.Time
	Type         TxType
	AmountCents  int64
	BalanceCents int64
}

// Result is the output of one aggregation pass. It is recomputed from a
// fresh snapshot on every call and never persisted.
type Result struct {
	Buckets []Bucket

	// Grand totals over the whole input, independent of bucketing.
	IncomeCents  int64
	ExpenseCents int64
	NetCents     int64

	Balance []BalanceEntry
}

// Aggregate groups and reduces a pre-filtered snapshot in a single linear
// pass. Buckets come back sorted by key, so the output is identical for any
// permutation of the input. The running balance orders transactions by
// (OccurredAt, ID); insertion order never matters.
func Aggregate(txs []Transaction, opts AggregateOptions) Result {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	buckets := make(map[string]*Bucket)
	zeroFill(buckets, opts, loc)

	var res Result
	for _, tx := range txs {
		key := bucketKey(tx.OccurredAt, opts.Bucketing, loc)
		b, ok := buckets[key]
		if !ok {
			b = newBucket(key)
			buckets[key] = b
		}
		switch tx.Type {
		case Income:
			b.IncomeCents += tx.Amount.Cents
			b.IncomeByCategory[tx.Category] += tx.Amount.Cents
			res.IncomeCents += tx.Amount.Cents
		case Expense:
			b.ExpenseCents += tx.Amount.Cents
			b.ExpenseByCategory[tx.Category] += tx.Amount.Cents
			res.ExpenseCents += tx.Amount.Cents
		}
		b.NetCents = b.IncomeCents - b.ExpenseCents
	}
	res.NetCents = res.IncomeCents - res.ExpenseCents

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	res.Buckets = make([]Bucket, 0, len(keys))
	for _, k := range keys {
		res.Buckets = append(res.Buckets, *buckets[k])
	}

	res.Balance = runningBalance(txs, opts.OpeningBalanceCents)
	return res
}

func newBucket(key string) *Bucket {
	return &Bucket{
		Key:               key,
		IncomeByCategory:  make(map[string]int64),
		ExpenseByCategory: make(map[string]int64),
	}
}

func bucketKey(t time.Time, b Bucketing, loc *time.Location) string {
	switch b {
	case BucketDaily:
		return t.In(loc).Format("2006-01-02")
	case BucketMonthly:
		return t.In(loc).Format("2006-01")
	default:
		return ""
	}
}

// zeroFill pre-creates empty buckets for every period in the configured
// range. Without a range no filling happens.
func zeroFill(buckets map[string]*Bucket, opts AggregateOptions, loc *time.Location) {
	if opts.RangeStart.IsZero() || opts.RangeEnd.IsZero() {
		return
	}
	switch opts.Bucketing {
	case BucketDaily:
		start := opts.RangeStart.In(loc)
		cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end := opts.RangeEnd.In(loc)
		for !cur.After(end) {
			key := cur.Format("2006-01-02")
			buckets[key] = newBucket(key)
			cur = cur.AddDate(0, 0, 1)
		}
	case BucketMonthly:
		start := opts.RangeStart.In(loc)
		cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
		end := opts.RangeEnd.In(loc)
		for !cur.After(end) {
			key := cur.Format("2006-01")
			buckets[key] = newBucket(key)
			cur = cur.AddDate(0, 1, 0)
		}
	}
}

// runningBalance computes the cumulative net total transaction by
// transaction. Ties on OccurredAt break on ID to keep the sequence
// deterministic across snapshot deliveries.
func runningBalance(txs []Transaction, opening int64) []BalanceEntry {
	if len(txs) == 0 {
		return nil
	}
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].OccurredAt.Equal(ordered[j].OccurredAt) {
			return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	entries := make([]BalanceEntry, 0, len(ordered))
	balance := opening
	for _, tx := range ordered {
		if tx.Type == Income {
			balance += tx.Amount.Cents
		} else {
			balance -= tx.Amount.Cents
		}
		entries = append(entries, BalanceEntry{
			ID:           tx.ID,
			OccurredAt:   tx.OccurredAt,
			Type:         tx.Type,
			AmountCents:  tx.Amount.Cents,
			BalanceCents: balance,
		})
	}
	return entries
}
