package http

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"khata/internal/core"
)

type bucketView struct {
	Period       string `json:"period"`
	IncomeCents  int64  `json:"income_cents"`
	ExpenseCents int64  `json:"expense_cents"`
	NetCents     int64  `json:"net_cents"`
}

func bucketViews(buckets []core.Bucket) []bucketView {
	views := make([]bucketView, 0, len(buckets))
	for _, b := range buckets {
		views = append(views, bucketView{
			Period:       b.Key,
			IncomeCents:  b.IncomeCents,
			ExpenseCents: b.ExpenseCents,
			NetCents:     b.NetCents,
		})
	}
	return views
}

// filteredSnapshot loads the family snapshot and applies the query
// filter; on error it has already written the response.
func (s *Server) filteredSnapshot(w http.ResponseWriter, r *http.Request) (string, []core.Transaction, bool) {
	family, ok := parseFamily(w, r)
	if !ok {
		return "", nil, false
	}
	filter, err := parseFilter(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	}

	txs, err := s.snapshot(r.Context(), family)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load snapshot",
			"family", family, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to load transactions")
		return "", nil, false
	}
	return family, core.ApplyFilter(txs, filter), true
}

// handleDashboardSummary returns the grand totals for the filtered
// snapshot.
func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	_, txs, ok := s.filteredSnapshot(w, r)
	if !ok {
		return
	}

	res := core.Aggregate(txs, core.AggregateOptions{})
	writeJSON(w, http.StatusOK, map[string]any{
		"income_cents":    res.IncomeCents,
		"expense_cents":   res.ExpenseCents,
		"net_cents":       res.NetCents,
		"income_display":  core.FormatRupees(res.IncomeCents),
		"expense_display": core.FormatRupees(res.ExpenseCents),
		"net_display":     core.FormatRupees(res.NetCents),
		"count":           len(txs),
	})
}

// handleDashboardDaily returns zero-filled daily buckets. Default range
// is the last 15 days.
func (s *Server) handleDashboardDaily(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.IsZero() {
		now := time.Now().UTC()
		to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -14)
	}

	txs, err := s.snapshot(r.Context(), family)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	txs = core.ApplyFilter(txs, core.Filter{From: from, To: to})

	res := core.Aggregate(txs, core.AggregateOptions{
		Bucketing:  core.BucketDaily,
		RangeStart: from,
		RangeEnd:   to,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"buckets": bucketViews(res.Buckets),
	})
}

// handleDashboardMonthly returns twelve zero-filled month buckets for
// one year (default: the current year).
func (s *Server) handleDashboardMonthly(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}
	year := time.Now().UTC().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1970 || parsed > 9999 {
			httpError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = parsed
	}
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)

	txs, err := s.snapshot(r.Context(), family)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	txs = core.ApplyFilter(txs, core.Filter{From: from, To: to})

	res := core.Aggregate(txs, core.AggregateOptions{
		Bucketing:  core.BucketMonthly,
		RangeStart: from,
		RangeEnd:   to,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"buckets": bucketViews(res.Buckets),
	})
}

// handleDashboardCategories returns per-category totals for pie charts.
func (s *Server) handleDashboardCategories(w http.ResponseWriter, r *http.Request) {
	_, txs, ok := s.filteredSnapshot(w, r)
	if !ok {
		return
	}

	res := core.Aggregate(txs, core.AggregateOptions{})

	type slice struct {
		Category string `json:"category"`
		Cents    int64  `json:"cents"`
		Display  string `json:"display"`
	}
	slicesOf := func(totals map[string]int64) []slice {
		names := make([]string, 0, len(totals))
		for name := range totals {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]slice, 0, len(names))
		for _, name := range names {
			out = append(out, slice{
				Category: name,
				Cents:    totals[name],
				Display:  core.FormatRupees(totals[name]),
			})
		}
		return out
	}

	income := []slice{}
	expense := []slice{}
	if len(res.Buckets) == 1 {
		income = slicesOf(res.Buckets[0].IncomeByCategory)
		expense = slicesOf(res.Buckets[0].ExpenseByCategory)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"income":  income,
		"expense": expense,
	})
}

// handleDashboardCalendar returns daily expense totals for one month,
// zero-filled so the calendar grid has a cell per day.
func (s *Server) handleDashboardCalendar(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = parsed
	}
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			httpError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = parsed
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	txs, err := s.snapshot(r.Context(), family)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	txs = core.ApplyFilter(txs, core.Filter{From: from, To: to, Type: core.Expense})

	res := core.Aggregate(txs, core.AggregateOptions{
		Bucketing:  core.BucketDaily,
		RangeStart: from,
		RangeEnd:   to,
	})

	type dayView struct {
		Date         string `json:"date"`
		ExpenseCents int64  `json:"expense_cents"`
	}
	days := make([]dayView, 0, len(res.Buckets))
	for _, b := range res.Buckets {
		days = append(days, dayView{Date: b.Key, ExpenseCents: b.ExpenseCents})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":  year,
		"month": month,
		"days":  days,
	})
}

// handleDashboardBalance returns the running balance series of the
// filtered snapshot.
func (s *Server) handleDashboardBalance(w http.ResponseWriter, r *http.Request) {
	_, txs, ok := s.filteredSnapshot(w, r)
	if !ok {
		return
	}

	var opening int64
	if v := r.URL.Query().Get("opening_cents"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid opening_cents")
			return
		}
		opening = parsed
	}

	res := core.Aggregate(txs, core.AggregateOptions{OpeningBalanceCents: opening})

	type balanceView struct {
		ID           string `json:"id"`
		Date         string `json:"date"`
		Type         string `json:"type"`
		AmountCents  int64  `json:"amount_cents"`
		BalanceCents int64  `json:"balance_cents"`
	}
	series := make([]balanceView, 0, len(res.Balance))
	for _, e := range res.Balance {
		series = append(series, balanceView{
			ID:           e.ID,
			Date:         e.OccurredAt.UTC().Format("2006-01-02"),
			Type:         string(e.Type),
			AmountCents:  e.AmountCents,
			BalanceCents: e.BalanceCents,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opening_cents": opening,
		"balance":       series,
	})
}
