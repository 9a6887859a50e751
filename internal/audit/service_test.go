package audit

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestLogger(capacity int) *Logger {
	seq := 0
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return NewLogger(capacity,
		WithClock(func() time.Time { return base.Add(time.Duration(seq) * time.Minute) }),
		WithIDGenerator(func() string {
			seq++
			return "LOG-" + strconv.Itoa(seq)
		}),
	)
}

func TestRecordPrependsAndDefaults(t *testing.T) {
	l := newTestLogger(0)
	if l.Capacity() != DefaultCapacity {
		t.Fatalf("expected default capacity, got %d", l.Capacity())
	}
	l.Record("Jane", "Login", "first", "")
	l.Record("", "Tick", "second", SeverityWarning)
	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "Tick" || entries[0].Actor != SystemActor {
		t.Fatalf("unexpected newest entry: %+v", entries[0])
	}
	if entries[1].Severity != SeverityInfo {
		t.Fatalf("expected Info default, got %s", entries[1].Severity)
	}
}

func TestRecordEvictsOldestBeyondCapacity(t *testing.T) {
	l := newTestLogger(DefaultCapacity)
	for i := 1; i <= 101; i++ {
		l.Record("actor", "Action", "detail "+strconv.Itoa(i), SeverityInfo)
		if l.Len() > DefaultCapacity {
			t.Fatalf("buffer exceeded capacity after %d records", i)
		}
	}
	entries := l.Entries()
	if len(entries) != 100 {
		t.Fatalf("expected 100 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Detail == "detail 1" {
			t.Fatalf("first entry should have been evicted")
		}
	}
	if entries[0].Detail != "detail 101" || entries[99].Detail != "detail 2" {
		t.Fatalf("unexpected order: newest=%q oldest=%q", entries[0].Detail, entries[99].Detail)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := newTestLogger(5)
	l.Record("a", "b", "c", SeverityInfo)
	entries := l.Entries()
	entries[0].Detail = "tampered"
	if l.Entries()[0].Detail != "c" {
		t.Fatalf("entries must be immutable from outside")
	}
}

func TestRecordHookSeesEntry(t *testing.T) {
	var seen []Entry
	l := NewLogger(3, WithRecordHook(func(e Entry) { seen = append(seen, e) }))
	l.Record("a", "Security", "x", SeverityCritical)
	if len(seen) != 1 || seen[0].Severity != SeverityCritical {
		t.Fatalf("hook not invoked: %+v", seen)
	}
}

func TestServiceTimelinePaging(t *testing.T) {
	l := newTestLogger(10)
	for i := 0; i < 5; i++ {
		l.Record("user@example.com", "Update", strconv.Itoa(i), SeverityInfo)
	}
	svc := NewService(l)
	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 2 {
		t.Fatalf("expected next page, got %+v", result.Paging)
	}

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 1 || result.Paging.HasNext || result.Paging.PrevPage != 2 {
		t.Fatalf("unexpected last page: %+v", result)
	}

	result, err = svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Paging.PageSize != maxPageSize {
		t.Fatalf("expected page size clamp, got %d", result.Paging.PageSize)
	}
}

func TestServiceExportFilters(t *testing.T) {
	l := newTestLogger(10)
	l.Record("Alice", "Login", "", SeverityInfo)
	l.Record("Bob", "Security", "EMERGENCY LOCKDOWN INITIATED", SeverityCritical)
	l.Record("alice", "Logout", "", SeverityInfo)
	svc := NewService(l)

	rows, err := svc.Export(context.Background(), TimelineFilters{Actor: "ALICE"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	rows, _ = svc.Export(context.Background(), TimelineFilters{Severity: SeverityCritical})
	if len(rows) != 1 || rows[0].Actor != "Bob" {
		t.Fatalf("unexpected severity filter: %+v", rows)
	}
	rows, _ = svc.Export(context.Background(), TimelineFilters{From: time.Date(2024, 3, 1, 0, 2, 0, 0, time.UTC)})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows from time filter, got %d", len(rows))
	}
}

func TestExportTimelineCSV(t *testing.T) {
	l := newTestLogger(10)
	l.Record("Alice", "Login", "Authenticated session for role: ADMIN", SeverityInfo)
	out, err := NewService(l).ExportTimeline(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,timestamp,actor") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Authenticated session for role: ADMIN") {
		t.Fatalf("unexpected row: %s", lines[1])
	}
}
