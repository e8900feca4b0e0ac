package logbuf

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is a single log entry captured from slog.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

type subscriber struct {
	min slog.Level
	fn  func(Entry)
}

// Buffer is a thread-safe ring buffer for log entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int
	subs    []subscriber
}

// New creates a new ring buffer that holds up to size entries.
func New(size int) *Buffer {
	if size <= 0 {
		size = 1
	}
	return &Buffer{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Subscribe calls fn for every subsequent entry at or above min. fn runs
// on the logging goroutine after the buffer lock is released and must not
// block.
func (b *Buffer) Subscribe(min slog.Level, fn func(Entry)) {
	b.mu.Lock()
	b.subs = append(b.subs, subscriber{min: min, fn: fn})
	b.mu.Unlock()
}

// Write appends an entry to the ring buffer.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries[b.pos] = e
	b.pos = (b.pos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	subs := b.subs
	b.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	lvl := ParseLevel(e.Level)
	for _, s := range subs {
		if lvl >= s.min {
			s.fn(e)
		}
	}
}

// Query returns entries matching the given filters, oldest first.
// If since is zero, all entries are considered. If limit <= 0, all matching entries are returned.
func (b *Buffer) Query(since time.Time, minLevel slog.Level, limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var result []Entry

	// Walk the ring buffer oldest-first
	start := 0
	if b.count == b.size {
		start = b.pos
	}
	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%b.size]
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if ParseLevel(e.Level) < minLevel {
			continue
		}
		result = append(result, e)
	}

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

// Len returns the number of entries currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// ParseLevel converts a level name ("debug", "INFO", "warn", "warning",
// "error") to slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
