package audithttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/udms-pro/udms/internal/audit"
	"github.com/udms-pro/udms/internal/shared"
)

type stubGate struct {
	err error
}

func (g stubGate) Authorize(context.Context, shared.Tab, shared.Permission) error {
	return g.err
}

func newAuditRouter(t *testing.T, gate stubGate) (*audit.Logger, http.Handler) {
	t.Helper()
	logger := audit.NewLogger(10)
	logger.Record("auditor", "Login", "Authenticated session for role: ADMIN", audit.SeverityInfo)
	logger.Record("auditor", "Security", "EMERGENCY LOCKDOWN INITIATED", audit.SeverityCritical)
	handler := NewHandler(nil, audit.NewService(logger), gate)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return logger, r
}

func TestTimelineRequiresPermission(t *testing.T) {
	_, r := newAuditRouter(t, stubGate{err: shared.ErrPermissionDenied})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestTimelineLockedOut(t *testing.T) {
	_, r := newAuditRouter(t, stubGate{err: shared.ErrLockedOut})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit", nil))
	if rr.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d", rr.Code)
	}
}

func TestTimelineRendersRows(t *testing.T) {
	_, r := newAuditRouter(t, stubGate{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?severity=Critical", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "EMERGENCY LOCKDOWN INITIATED") {
		t.Fatalf("expected critical entry in response: %s", body)
	}
	if strings.Contains(body, "Authenticated session") {
		t.Fatalf("severity filter ignored: %s", body)
	}
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	_, r := newAuditRouter(t, stubGate{})
	for _, q := range []string{"page=0", "page_size=x", "severity=Loud", "from=yesterday", "from=2024-03-02T00:00:00Z&to=2024-03-01T00:00:00Z"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?"+q, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rr.Code)
		}
	}
}

func TestExportCSV(t *testing.T) {
	_, r := newAuditRouter(t, stubGate{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ctype := rr.Header().Get("Content-Type"); !strings.Contains(ctype, "text/csv") {
		t.Fatalf("unexpected content-type: %s", ctype)
	}
	if !strings.Contains(rr.Body.String(), "auditor") {
		t.Fatalf("expected actor in csv: %s", rr.Body.String())
	}
}

func TestExportRateLimited(t *testing.T) {
	_, r := newAuditRouter(t, stubGate{})
	var last int
	for i := 0; i <= rateLimit; i++ {
		req := httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil)
		req = req.WithContext(shared.ContextWithSessionToken(req.Context(), "tok"))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after %d exports, got %d", rateLimit, last)
	}
}
