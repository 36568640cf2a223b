// Package eventlog provides the per-page diagnostic log.
package eventlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

// Log is an append-only, timestamped sequence of diagnostic entries.
// Entries are never reordered or removed.
type Log struct {
	mu      sync.Mutex
	entries []domain.LogEntry
	now     func() time.Time
	onEntry func(domain.LogEntry)
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithSubscriber registers fn to receive every entry after it is appended.
func WithSubscriber(fn func(domain.LogEntry)) Option {
	return func(l *Log) { l.onEntry = fn }
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Info appends an informational entry.
func (l *Log) Info(format string, args ...any) {
	l.append(fmt.Sprintf(format, args...), false)
}

// Error appends an error-tagged entry.
func (l *Log) Error(format string, args ...any) {
	l.append(fmt.Sprintf(format, args...), true)
}

func (l *Log) append(msg string, isError bool) {
	entry := domain.LogEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Message:   msg,
		IsError:   isError,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	fn := l.onEntry
	l.mu.Unlock()

	if fn != nil {
		fn(entry)
	}
}

// Entries returns a copy of the log in insertion order.
func (l *Log) Entries() []domain.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Errors returns the number of error-tagged entries.
func (l *Log) Errors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.IsError {
			n++
		}
	}
	return n
}
