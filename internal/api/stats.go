package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Stats tracks per-endpoint request counts for this process. State is
// explicit and owned here, never package-global, so tests can run instances
// side by side. Entries for routes that go quiet are pruned on a schedule to
// keep the map bounded.
type Stats struct {
	mu        sync.Mutex
	startedAt time.Time
	endpoints map[string]*endpointStats
	total     uint64
}

type endpointStats struct {
	Count    uint64    `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

func NewStats() *Stats {
	return &Stats{
		startedAt: time.Now().UTC(),
		endpoints: make(map[string]*endpointStats),
	}
}

// Middleware counts the request against its resolved route pattern. The
// pattern is read after the handler runs, once chi has matched the route.
func (s *Stats) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		s.record(r.Method + " " + pattern)
	})
}

func (s *Stats) record(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.endpoints[endpoint]
	if !ok {
		e = &endpointStats{}
		s.endpoints[endpoint] = e
	}
	e.Count++
	e.LastSeen = time.Now().UTC()
	s.total++
}

// Prune drops endpoints not seen within maxAge and returns how many were
// removed. The totals keep counting; only the per-endpoint breakdown is
// bounded.
func (s *Stats) Prune(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for endpoint, e := range s.endpoints {
		if e.LastSeen.Before(cutoff) {
			delete(s.endpoints, endpoint)
			removed++
		}
	}
	return removed
}

// Run prunes on a fixed schedule until the context is canceled.
func (s *Stats) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Prune(maxAge); removed > 0 {
				slog.Debug("pruned idle endpoint stats", "removed", removed)
			}
		}
	}
}

// Snapshot copies the current counters for serving.
func (s *Stats) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	endpoints := make(map[string]endpointStats, len(s.endpoints))
	for name, e := range s.endpoints {
		endpoints[name] = *e
	}
	return map[string]any{
		"startedAt":     s.startedAt,
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
		"totalRequests": s.total,
		"endpoints":     endpoints,
	}
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Stats == nil {
			respondJSON(w, http.StatusOK, map[string]any{"enabled": false})
			return
		}
		respondJSON(w, http.StatusOK, deps.Stats.Snapshot())
	}
}
