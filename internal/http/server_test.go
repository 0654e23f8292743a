package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"khata/internal/ledger/memory"
	"khata/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	s := NewServer(":0",
		store,
		services.NewTransactionService(store, nil),
		services.NewBackupService(store))
	t.Cleanup(func() { s.rateLimiter.stop(); s.cacheManager.Stop() })
	return s
}

func doJSON(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func createTx(t *testing.T, s *Server, family, body string) string {
	t.Helper()
	rec, resp := doJSON(t, s, http.MethodPost, "/api/transactions?family="+family, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	id, _ := resp["id"].(string)
	if id == "" {
		t.Fatalf("create response missing id: %v", resp)
	}
	return id
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("health: %d %v", rec.Code, resp)
	}

	rec, resp = doJSON(t, s, http.MethodGet, "/api/ready", "")
	if rec.Code != http.StatusOK || resp["status"] != "ready" {
		t.Fatalf("ready: %d %v", rec.Code, resp)
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	s := newTestServer(t)

	createTx(t, s, "fam", `{"title":"pay","amount":"100","category":"Salary","type":"income","date":"2024-01-01"}`)
	createTx(t, s, "fam", `{"title":"lunch","amount":40,"category":"Food","type":"expense","date":"2024-01-01"}`)
	createTx(t, s, "fam", `{"amount":"50","category":"Salary","type":"income","date":"2024-01-02"}`)

	rec, resp := doJSON(t, s, http.MethodGet, "/api/transactions?family=fam", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	if resp["count"].(float64) != 3 {
		t.Fatalf("count = %v, want 3", resp["count"])
	}

	// Single-day filter.
	rec, resp = doJSON(t, s, http.MethodGet, "/api/transactions?family=fam&from=2024-01-02&to=2024-01-02", "")
	if rec.Code != http.StatusOK || resp["count"].(float64) != 1 {
		t.Fatalf("filtered list: %d %v", rec.Code, resp)
	}

	// Families are isolated.
	rec, resp = doJSON(t, s, http.MethodGet, "/api/transactions?family=other", "")
	if rec.Code != http.StatusOK || resp["count"].(float64) != 0 {
		t.Fatalf("other family should be empty: %v", resp)
	}
}

func TestCreateRejectsBadRecords(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"negative amount", `{"amount":"-5","category":"Food","type":"expense","date":"2024-01-01"}`},
		{"case-mismatched type", `{"amount":"5","category":"Food","type":"Income","date":"2024-01-01"}`},
		{"bad date", `{"amount":"5","category":"Food","type":"expense","date":"yesterday"}`},
		{"not json", `this is not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := doJSON(t, s, http.MethodPost, "/api/transactions?family=fam", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	rec, _ := doJSON(t, s, http.MethodPost, "/api/transactions", `{"amount":"5","category":"c","type":"expense","date":"2024-01-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing family should be 400, got %d", rec.Code)
	}
}

func TestUpdateTransaction(t *testing.T) {
	s := newTestServer(t)
	id := createTx(t, s, "fam", `{"title":"lunch","amount":"40","category":"Food","type":"expense","date":"2024-01-01"}`)

	// Prime the snapshot cache so the update has to invalidate it.
	doJSON(t, s, http.MethodGet, "/api/transactions?family=fam", "")

	rec, resp := doJSON(t, s, http.MethodPut, "/api/transactions/"+id+"?family=fam",
		`{"title":"dinner","amount":"62.50","category":"Restaurant","type":"expense","date":"2024-01-03"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}
	if resp["id"] != id || resp["amount_cents"].(float64) != 6250 || resp["category"] != "Restaurant" {
		t.Fatalf("unexpected update response: %v", resp)
	}

	_, resp = doJSON(t, s, http.MethodGet, "/api/transactions?family=fam", "")
	if resp["count"].(float64) != 1 {
		t.Fatalf("expected 1 transaction, got %v", resp["count"])
	}
	tx := resp["transactions"].([]any)[0].(map[string]any)
	if tx["amount_cents"].(float64) != 6250 || tx["category"] != "Restaurant" || tx["date"] != "2024-01-03" {
		t.Fatalf("list does not reflect the edit: %v", tx)
	}

	rec, _ = doJSON(t, s, http.MethodPut, "/api/transactions/missing?family=fam",
		`{"amount":"5","category":"Food","type":"expense","date":"2024-01-01"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id should 404, got %d", rec.Code)
	}

	rec, _ = doJSON(t, s, http.MethodPut, "/api/transactions/"+id+"?family=fam",
		`{"amount":"-5","category":"Food","type":"expense","date":"2024-01-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad record should 400, got %d", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := newTestServer(t)
	id := createTx(t, s, "fam", `{"amount":"5","category":"Food","type":"expense","date":"2024-01-01"}`)

	rec, _ := doJSON(t, s, http.MethodDelete, "/api/transactions/"+id+"?family=fam", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d", rec.Code)
	}
	rec, _ = doJSON(t, s, http.MethodDelete, "/api/transactions/"+id+"?family=fam", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete should 404, got %d", rec.Code)
	}

	_, resp := doJSON(t, s, http.MethodGet, "/api/transactions?family=fam", "")
	if resp["count"].(float64) != 0 {
		t.Fatalf("snapshot should be empty after delete: %v", resp)
	}
}

func TestCategoriesEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/categories?family=fam", `{"name":"Food","type":"expense","color":"#fff"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save category returned %d: %s", rec.Code, rec.Body.String())
	}
	rec, _ = doJSON(t, s, http.MethodPost, "/api/categories?family=fam", `{"name":"","type":"expense"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid category should 400, got %d", rec.Code)
	}

	_, resp := doJSON(t, s, http.MethodGet, "/api/categories?family=fam", "")
	if resp["count"].(float64) != 1 {
		t.Fatalf("expected 1 category: %v", resp)
	}

	rec, _ = doJSON(t, s, http.MethodDelete, "/api/categories?family=fam&name=Food&type=expense", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete category returned %d", rec.Code)
	}
	rec, _ = doJSON(t, s, http.MethodDelete, "/api/categories?family=fam&name=Food&type=expense", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete should 404, got %d", rec.Code)
	}
}

func TestDashboardSummaryAndDaily(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, "fam", `{"amount":"100","category":"Salary","type":"income","date":"2024-01-01"}`)
	createTx(t, s, "fam", `{"amount":"40","category":"Food","type":"expense","date":"2024-01-01"}`)
	createTx(t, s, "fam", `{"amount":"50","category":"Salary","type":"income","date":"2024-01-02"}`)

	rec, resp := doJSON(t, s, http.MethodGet, "/api/dashboard/summary?family=fam", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary returned %d", rec.Code)
	}
	if resp["income_cents"].(float64) != 15000 || resp["expense_cents"].(float64) != 4000 || resp["net_cents"].(float64) != 11000 {
		t.Fatalf("unexpected summary: %v", resp)
	}

	rec, resp = doJSON(t, s, http.MethodGet, "/api/dashboard/daily?family=fam&from=2024-01-01&to=2024-01-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("daily returned %d", rec.Code)
	}
	buckets := resp["buckets"].([]any)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 zero-filled buckets, got %d", len(buckets))
	}
	first := buckets[0].(map[string]any)
	if first["period"] != "2024-01-01" || first["income_cents"].(float64) != 10000 || first["expense_cents"].(float64) != 4000 {
		t.Fatalf("unexpected first bucket: %v", first)
	}
	last := buckets[2].(map[string]any)
	if last["income_cents"].(float64) != 0 || last["expense_cents"].(float64) != 0 {
		t.Fatalf("empty day should be zero, got %v", last)
	}
}

func TestDashboardMonthlyAndCalendar(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, "fam", `{"amount":"100","category":"Salary","type":"income","date":"2024-03-15"}`)

	rec, resp := doJSON(t, s, http.MethodGet, "/api/dashboard/monthly?family=fam&year=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("monthly returned %d", rec.Code)
	}
	buckets := resp["buckets"].([]any)
	if len(buckets) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(buckets))
	}
	march := buckets[2].(map[string]any)
	if march["period"] != "2024-03" || march["income_cents"].(float64) != 10000 {
		t.Fatalf("unexpected march bucket: %v", march)
	}

	createTx(t, s, "fam", `{"amount":"40","category":"Food","type":"expense","date":"2024-03-15"}`)
	rec, resp = doJSON(t, s, http.MethodGet, "/api/dashboard/calendar?family=fam&year=2024&month=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("calendar returned %d", rec.Code)
	}
	days := resp["days"].([]any)
	if len(days) != 31 {
		t.Fatalf("march should have 31 days, got %d", len(days))
	}
	d15 := days[14].(map[string]any)
	if d15["date"] != "2024-03-15" || d15["expense_cents"].(float64) != 4000 {
		t.Fatalf("unexpected day cell: %v", d15)
	}
}

func TestDashboardCategoriesAndBalance(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, "fam", `{"amount":"100","category":"Salary","type":"income","date":"2024-01-01"}`)
	createTx(t, s, "fam", `{"amount":"40","category":"Food","type":"expense","date":"2024-01-01"}`)
	createTx(t, s, "fam", `{"amount":"50","category":"Salary","type":"income","date":"2024-01-02"}`)

	_, resp := doJSON(t, s, http.MethodGet, "/api/dashboard/categories?family=fam", "")
	income := resp["income"].([]any)
	if len(income) != 1 {
		t.Fatalf("expected 1 income category: %v", resp)
	}
	salary := income[0].(map[string]any)
	if salary["category"] != "Salary" || salary["cents"].(float64) != 15000 {
		t.Fatalf("unexpected salary slice: %v", salary)
	}

	_, resp = doJSON(t, s, http.MethodGet, "/api/dashboard/balance?family=fam", "")
	series := resp["balance"].([]any)
	if len(series) != 3 {
		t.Fatalf("expected 3 balance entries: %v", resp)
	}
	final := series[2].(map[string]any)
	if final["balance_cents"].(float64) != 11000 {
		t.Fatalf("final balance = %v, want 11000", final["balance_cents"])
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, "fam", `{"title":"pay","amount":"100","category":"Salary","type":"income","date":"2024-01-01"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/export/transactions.csv?family=fam", nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("export returned %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions_fam.csv") {
		t.Fatalf("content disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID,Date,") {
		t.Fatalf("unexpected CSV body: %q", rec.Body.String())
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, "fam", `{"title":"pay","amount":"100","category":"Salary","type":"income","date":"2024-01-01"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/backup?family=fam", nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("backup returned %d", rec.Code)
	}

	recRestore, resp := doJSON(t, s, http.MethodPost, "/api/restore?family=other", rec.Body.String())
	if recRestore.Code != http.StatusOK {
		t.Fatalf("restore returned %d: %s", recRestore.Code, recRestore.Body.String())
	}
	if resp["restored"].(float64) != 1 {
		t.Fatalf("unexpected restore report: %v", resp)
	}

	_, listResp := doJSON(t, s, http.MethodGet, "/api/transactions?family=other", "")
	if listResp["count"].(float64) != 1 {
		t.Fatalf("restored family should have 1 transaction: %v", listResp)
	}
}

func TestSnapshotCacheInvalidation(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, "fam", `{"amount":"5","category":"Food","type":"expense","date":"2024-01-01"}`)

	// Prime the cache, then write and expect the next read to see it.
	doJSON(t, s, http.MethodGet, "/api/transactions?family=fam", "")
	createTx(t, s, "fam", `{"amount":"6","category":"Food","type":"expense","date":"2024-01-02"}`)

	_, resp := doJSON(t, s, http.MethodGet, "/api/transactions?family=fam", "")
	if resp["count"].(float64) != 2 {
		t.Fatalf("stale snapshot after write: %v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	createTx(t, s, "fam", `{"amount":"5","category":"Food","type":"expense","date":"2024-01-01"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "transactions_created_total 1") {
		t.Fatalf("metrics missing transaction counter: %s", body)
	}
	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics missing request counter: %s", body)
	}
}
