// Package http exposes the ledger as a JSON API: transaction CRUD,
// dashboard aggregations, CSV export, and backup/restore.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"khata/internal/cache"
	"khata/internal/core"
	"khata/internal/ledger"
	"khata/internal/middleware/security"
	"khata/internal/middleware/trace"
	"khata/internal/services"
)

type Server struct {
	http.Server

	store        ledger.Store
	transactions *services.TransactionService
	backups      *services.BackupService

	rateLimiter *rateLimiter

	// Per-family snapshot cache, invalidated on every write.
	snapshotCache *cache.LRUCache[[]core.Transaction]
	cacheManager  *cache.Manager

	traceMiddleware *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	totalTransactions int64
	cacheHits         int64
	cacheMisses       int64
	startedAt         time.Time
}

// Simple in-memory rate limiter: 60 requests per minute per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

func (rl *rateLimiter) activeClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// NewServer wires routes, middleware, and caches into a ready-to-run
// server.
func NewServer(addr string, store ledger.Store, transactions *services.TransactionService, backups *services.BackupService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:         store,
		transactions:  transactions,
		backups:       backups,
		rateLimiter:   newRateLimiter(),
		snapshotCache: cache.NewLRUCache[[]core.Transaction](100, 5*time.Minute),
		cacheManager:  cache.NewManager(),
		appMetrics:    &appMetrics{startedAt: time.Now()},
	}
	s.cacheManager.Register(s.snapshotCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleSaveCategory)
	mux.HandleFunc("DELETE /api/categories", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/dashboard/summary", s.handleDashboardSummary)
	mux.HandleFunc("GET /api/dashboard/daily", s.handleDashboardDaily)
	mux.HandleFunc("GET /api/dashboard/monthly", s.handleDashboardMonthly)
	mux.HandleFunc("GET /api/dashboard/categories", s.handleDashboardCategories)
	mux.HandleFunc("GET /api/dashboard/calendar", s.handleDashboardCalendar)
	mux.HandleFunc("GET /api/dashboard/balance", s.handleDashboardBalance)

	mux.HandleFunc("GET /api/export/transactions.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/backup", s.handleBackup)
	mux.HandleFunc("POST /api/restore", s.handleRestore)

	s.traceMiddleware = trace.NewMiddleware(clientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.withRateLimit(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = headers.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// withRateLimit throttles mutating requests per client IP. Reads stay
// unthrottled, dashboards poll aggressively.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			httpError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background goroutines, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// snapshot returns the family's transactions, served from cache when hot.
func (s *Server) snapshot(ctx context.Context, family string) ([]core.Transaction, error) {
	if txs, ok := s.snapshotCache.Get(family); ok {
		s.countCacheHit()
		return txs, nil
	}
	s.countCacheMiss()

	txs, err := s.store.ListTransactions(ctx, family)
	if err != nil {
		return nil, err
	}
	s.snapshotCache.Set(family, txs)
	return txs, nil
}

func (s *Server) invalidateSnapshot(family string) {
	s.snapshotCache.Delete(family)
}
