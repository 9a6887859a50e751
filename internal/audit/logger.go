package audit

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity adalah batas buffer audit bawaan.
const DefaultCapacity = 100

// SystemActor dipakai ketika tidak ada sesi aktif.
const SystemActor = "System"

// Severity menandai tingkat kepentingan entri audit.
type Severity string

// Tingkat severity yang dikenal.
const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

// Entry adalah catatan audit yang tidak dapat diubah setelah dibuat.
type Entry struct {
	ID       string    `json:"id"`
	At       time.Time `json:"timestamp"`
	Actor    string    `json:"user"`
	Action   string    `json:"action"`
	Detail   string    `json:"details"`
	Severity Severity  `json:"severity"`
}

// Logger menyimpan entri audit terbaru di depan dan membuang entri tertua
// ketika kapasitas terlampaui.
type Logger struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	now      func() time.Time
	newID    func() string
	onRecord func(Entry)
}

// Option mengatur Logger.
type Option func(*Logger)

// WithClock mengganti sumber waktu.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator mengganti pembuat ID entri.
func WithIDGenerator(fn func() string) Option {
	return func(l *Logger) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// WithRecordHook dipanggil setelah setiap entri tersimpan, di luar lock.
func WithRecordHook(fn func(Entry)) Option {
	return func(l *Logger) { l.onRecord = fn }
}

// NewLogger membuat logger audit dengan kapasitas tertentu.
func NewLogger(capacity int, opts ...Option) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Logger{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity+1),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record menambahkan entri baru di depan buffer. Severity kosong menjadi Info.
func (l *Logger) Record(actor, action, detail string, severity Severity) Entry {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = SystemActor
	}
	if severity == "" {
		severity = SeverityInfo
	}
	entry := Entry{
		ID:       l.newID(),
		At:       l.now().UTC(),
		Actor:    actor,
		Action:   action,
		Detail:   detail,
		Severity: severity,
	}

	l.mu.Lock()
	l.entries = append(l.entries, Entry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry
	if len(l.entries) > l.capacity {
		clear(l.entries[l.capacity:])
		l.entries = l.entries[:l.capacity]
	}
	l.mu.Unlock()

	if l.onRecord != nil {
		l.onRecord(entry)
	}
	return entry
}

// Entries mengembalikan salinan buffer, terbaru lebih dulu.
func (l *Logger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len mengembalikan jumlah entri tersimpan.
func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Capacity mengembalikan batas buffer.
func (l *Logger) Capacity() int {
	return l.capacity
}
