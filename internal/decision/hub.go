package decision

import (
	"context"
	"log/slog"
	"sync"
)

// Hub wraps a Logger and fans appended entries out to live subscribers.
// Slow subscribers lose entries rather than blocking the writer.
type Hub struct {
	Logger

	mu     sync.Mutex
	subs   map[int]chan Entry
	nextID int
	buffer int
}

// NewHub wraps inner. buffer is the per-subscriber channel capacity.
func NewHub(inner Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		Logger: inner,
		subs:   make(map[int]chan Entry),
		buffer: buffer,
	}
}

// Append stores entries in the inner logger, then publishes them.
func (h *Hub) Append(ctx context.Context, entries ...Entry) error {
	if err := h.Logger.Append(ctx, entries...); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entries {
		for id, ch := range h.subs {
			select {
			case ch <- e:
			default:
				slog.Warn("decision subscriber lagging, entry dropped", "subscriber", id, "entry_id", e.ID)
			}
		}
	}
	return nil
}

// Subscribe returns a channel of newly appended entries and a cancel func
// that must be called to release it.
func (h *Hub) Subscribe() (<-chan Entry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Entry, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
