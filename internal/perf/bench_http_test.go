package perf

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/udms-pro/udms/internal/console"
	consolehttp "github.com/udms-pro/udms/internal/console/http"
	"github.com/udms-pro/udms/internal/rbac"
	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

func newKernel(tb testing.TB) *console.Manager {
	tb.Helper()
	entities := store.New()
	seed, err := store.DefaultSeed()
	if err != nil {
		tb.Fatalf("seed: %v", err)
	}
	if err := entities.Replace(seed); err != nil {
		tb.Fatalf("replace: %v", err)
	}
	m, err := console.NewManager(console.Deps{
		Store:  entities,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		tb.Fatalf("manager: %v", err)
	}
	tb.Cleanup(m.Close)
	return m
}

func newAPI(tb testing.TB, m *console.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if token := req.Header.Get(shared.SessionTokenHeader); token != "" {
				req = req.WithContext(shared.ContextWithSessionToken(req.Context(), token))
			}
			next.ServeHTTP(w, req)
		})
	})
	consolehttp.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), m, rbac.Middleware{}).MountRoutes(r)
	return r
}

func TestGateLatencyTargets(t *testing.T) {
	m := newKernel(t)
	s, err := m.Authenticate(t.Context(), "superadmin@university.edu", "SuperSecure123!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	ctx := shared.ContextWithSessionToken(t.Context(), s.Token)

	samples := make([]time.Duration, 0, 500)
	for i := 0; i < 500; i++ {
		start := time.Now()
		if err := m.Authorize(ctx, shared.TabAudit, shared.PermViewAuditLogs); err != nil {
			t.Fatalf("authorize: %v", err)
		}
		samples = append(samples, time.Since(start))
	}
	if p95 := percentile95(samples); p95 > 5*time.Millisecond {
		t.Fatalf("gate latency regression: p95=%s", p95)
	}
}

func BenchmarkAuthorize(b *testing.B) {
	m := newKernel(b)
	s, err := m.Authenticate(b.Context(), "s1001@university.edu", "StudentTemp123!")
	if err != nil {
		b.Fatalf("login: %v", err)
	}
	ctx := shared.ContextWithSessionToken(b.Context(), s.Token)
	b.ReportAllocs()
	for b.Loop() {
		_ = m.Authorize(ctx, shared.TabMaintenance, shared.PermSubmitMaintenance)
	}
}

func BenchmarkSessionEndpoint(b *testing.B) {
	m := newKernel(b)
	s, err := m.Authenticate(b.Context(), "s1001@university.edu", "StudentTemp123!")
	if err != nil {
		b.Fatalf("login: %v", err)
	}
	h := newAPI(b, m)
	b.ReportAllocs()
	for b.Loop() {
		req := httptest.NewRequest(http.MethodGet, "/session", nil)
		req.Header.Set(shared.SessionTokenHeader, s.Token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("status %d", rec.Code)
		}
	}
}

func BenchmarkDeniedLockdownToggle(b *testing.B) {
	m := newKernel(b)
	s, err := m.Authenticate(b.Context(), "s1001@university.edu", "StudentTemp123!")
	if err != nil {
		b.Fatalf("login: %v", err)
	}
	h := newAPI(b, m)
	body, _ := json.Marshal(map[string]string{})
	b.ReportAllocs()
	for b.Loop() {
		req := httptest.NewRequest(http.MethodPost, "/lockdown/toggle", bytes.NewReader(body))
		req.Header.Set(shared.SessionTokenHeader, s.Token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			b.Fatalf("status %d", rec.Code)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
