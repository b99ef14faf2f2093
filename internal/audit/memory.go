package audit

import (
	"context"
	"sync"
)

// MemorySink keeps events in process. It backs the timeline when no database is configured.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends the event.
func (m *MemorySink) Record(_ context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded, oldest first.
func (m *MemorySink) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Event(nil), m.events...)
}

// Window implements Store.
func (m *MemorySink) Window(_ context.Context, q WindowQuery) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	skipped := 0
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		if !q.Filters.Matches(ev) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, ev)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
