package decision

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLog keeps entries in memory.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
	now     func() time.Time
}

// NewMemoryLog creates an empty in-memory decision log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		entries: []Entry{},
		nextID:  1,
		now:     time.Now,
	}
}

func (l *MemoryLog) Append(_ context.Context, entries ...Entry) error {
	for _, e := range entries {
		if !e.Type.Valid() {
			return fmt.Errorf("invalid decision type %q", e.Type)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range entries {
		e := entries[i]
		e.ID = l.nextID
		l.nextID++
		if e.Timestamp.IsZero() {
			e.Timestamp = l.now()
		}
		entries[i] = e
		l.entries = append(l.entries, e)
	}
	return nil
}

func (l *MemoryLog) Recent(_ context.Context, limit int) ([]Entry, error) {
	return l.filter(limit, func(Entry) bool { return true }), nil
}

func (l *MemoryLog) ByType(_ context.Context, t Type, limit int) ([]Entry, error) {
	return l.filter(limit, func(e Entry) bool { return e.Type == t }), nil
}

func (l *MemoryLog) ByTopic(_ context.Context, topicID int64, limit int) ([]Entry, error) {
	return l.filter(limit, func(e Entry) bool { return e.TopicID != nil && *e.TopicID == topicID }), nil
}

// Len returns the number of stored entries.
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// filter walks newest first. Entries are appended in id order, which is also
// timestamp order.
func (l *MemoryLog) filter(limit int, keep func(Entry) bool) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []Entry{}
	for i := len(l.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(l.entries[i]) {
			out = append(out, l.entries[i])
		}
	}
	return out
}
