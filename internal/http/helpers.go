package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"khata/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseFamily reads the required family query parameter.
func parseFamily(w http.ResponseWriter, r *http.Request) (string, bool) {
	family := strings.TrimSpace(r.URL.Query().Get("family"))
	if family == "" {
		httpError(w, http.StatusBadRequest, "missing required query parameter: family")
		return "", false
	}
	return family, true
}

// parseDateRange reads optional from/to query params (YYYY-MM-DD).
func parseDateRange(r *http.Request) (from, to time.Time, err error) {
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date %q", v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date %q", v)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("to date is before from date")
	}
	return from, to, nil
}

// parseFilter builds a snapshot filter from the query string.
func parseFilter(r *http.Request) (core.Filter, error) {
	from, to, err := parseDateRange(r)
	if err != nil {
		return core.Filter{}, err
	}
	f := core.Filter{
		From:     from,
		To:       to,
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		typ := core.TxType(v)
		if !typ.Valid() {
			return core.Filter{}, fmt.Errorf("invalid type %q", v)
		}
		f.Type = typ
	}
	return f, nil
}

// normalizeStatus maps normalization failures to 400 and everything else
// to 500.
func normalizeStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		// First address in the chain is the client.
		if i := strings.IndexByte(v, ','); i > 0 {
			return strings.TrimSpace(v[:i])
		}
		return strings.TrimSpace(v)
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return v
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) countTransaction() {
	atomic.AddInt64(&s.appMetrics.totalTransactions, 1)
}

func (s *Server) countCacheHit() {
	atomic.AddInt64(&s.appMetrics.cacheHits, 1)
}

func (s *Server) countCacheMiss() {
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)
}
