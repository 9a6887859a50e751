package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"time"
)

// ExportService mendefinisikan kontrak untuk ekspor CSV audit timeline.
type ExportService interface {
	ExportTimeline(ctx context.Context, filters TimelineFilters) ([]byte, error)
}

var csvHeader = []string{"id", "timestamp", "actor", "action", "detail", "severity"}

// WriteCSV menulis entri audit ke format CSV.
func WriteCSV(rows []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{row.ID, row.At.Format(time.RFC3339), row.Actor, row.Action, row.Detail, string(row.Severity)}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportTimeline menggabungkan filter dan penulisan CSV.
func (s *Service) ExportTimeline(ctx context.Context, filters TimelineFilters) ([]byte, error) {
	rows, err := s.Export(ctx, filters)
	if err != nil {
		return nil, err
	}
	return WriteCSV(rows)
}
