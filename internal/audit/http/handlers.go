package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/udms-pro/udms/internal/audit"
	"github.com/udms-pro/udms/internal/platform/httpx"
	"github.com/udms-pro/udms/internal/rbac"
	"github.com/udms-pro/udms/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	ExportTimeline(ctx context.Context, filters audit.TimelineFilters) ([]byte, error)
}

// Handler menangani permintaan audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	gate    rbac.Authorizer
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service TimelineService, gate rbac.Authorizer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, gate: gate}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	csvBytes, err := h.service.ExportTimeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export audit timeline", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-trail.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) authorize(ctx context.Context) error {
	if h.gate == nil {
		return shared.ErrPermissionDenied
	}
	return h.gate.Authorize(ctx, shared.TabAudit, shared.PermViewAuditLogs)
}

func parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	var filters audit.TimelineFilters
	for field, target := range map[string]*time.Time{"from": &filters.From, "to": &filters.To} {
		raw := strings.TrimSpace(q.Get(field))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.TimelineFilters{}, validationError{field: field}
		}
		*target = parsed
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.From.After(filters.To) {
		return audit.TimelineFilters{}, validationError{field: "range"}
	}

	filters.Page = 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page"}
		}
		filters.Page = parsed
	}
	filters.PageSize = defaultPageSize
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page_size"}
		}
		filters.PageSize = min(parsed, maxPageSize)
	}
	switch sev := audit.Severity(strings.TrimSpace(q.Get("severity"))); sev {
	case "", audit.SeverityInfo, audit.SeverityWarning, audit.SeverityCritical:
		filters.Severity = sev
	default:
		return audit.TimelineFilters{}, validationError{field: "severity"}
	}
	filters.Actor = strings.TrimSpace(q.Get("actor"))
	filters.Action = strings.TrimSpace(q.Get("action"))
	return filters, nil
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	if h.logger != nil {
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return "invalid filter: " + v.field
}

func (validationError) Unwrap() error {
	return shared.ErrValidation
}

