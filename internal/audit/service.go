package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/udms-pro/udms/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Source menyediakan entri audit, terbaru lebih dulu.
type Source interface {
	Entries() []Entry
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	source Source
}

// NewService membuat service audit timeline baru.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Timeline mengambil data audit dengan paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	rows, err := s.Export(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	window := shared.NewPagination(page, pageSize, len(rows))
	start, end := window.Window()
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: window.HasNext, Total: len(rows)}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if paging.HasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows[start:end], Paging: paging}, nil
}

// Export mengambil seluruh data timeline tanpa paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	if s.source == nil {
		return nil, fmt.Errorf("audit: source not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	actor := strings.TrimSpace(filters.Actor)
	action := strings.TrimSpace(filters.Action)
	entries := s.source.Entries()
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !filters.From.IsZero() && e.At.Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && e.At.After(filters.To) {
			continue
		}
		if actor != "" && !strings.EqualFold(e.Actor, actor) {
			continue
		}
		if action != "" && !strings.EqualFold(e.Action, action) {
			continue
		}
		if filters.Severity != "" && e.Severity != filters.Severity {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}
