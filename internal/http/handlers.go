package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.startedAt).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	// The store is the only hard dependency; a family listing is cheap.
	if _, err := s.store.ListFamilies(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// handleMetrics exposes counters in a Prometheus-like plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	totalTransactions := atomic.LoadInt64(&s.appMetrics.totalTransactions)
	cacheHits := atomic.LoadInt64(&s.appMetrics.cacheHits)
	cacheMisses := atomic.LoadInt64(&s.appMetrics.cacheMisses)
	uptime := time.Since(s.appMetrics.startedAt)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP transactions_created_total Total number of transactions created\n")
	fmt.Fprintf(w, "# TYPE transactions_created_total counter\n")
	fmt.Fprintf(w, "transactions_created_total %d\n\n", totalTransactions)

	fmt.Fprintf(w, "# HELP snapshot_cache_hits_total Snapshot cache hits\n")
	fmt.Fprintf(w, "# TYPE snapshot_cache_hits_total counter\n")
	fmt.Fprintf(w, "snapshot_cache_hits_total %d\n\n", cacheHits)

	fmt.Fprintf(w, "# HELP snapshot_cache_misses_total Snapshot cache misses\n")
	fmt.Fprintf(w, "# TYPE snapshot_cache_misses_total counter\n")
	fmt.Fprintf(w, "snapshot_cache_misses_total %d\n\n", cacheMisses)

	fmt.Fprintf(w, "# HELP snapshot_cache_entries Current snapshot cache entries\n")
	fmt.Fprintf(w, "# TYPE snapshot_cache_entries gauge\n")
	fmt.Fprintf(w, "snapshot_cache_entries %d\n\n", s.snapshotCache.Size())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.activeClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
