// Package projection builds local views from observed events.
// Handles ordering, deduplication, and bounded retention.
// Does not emit events or interact with the transport directly.
package projection

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/domain/event"
)

// Timeline keeps the most recent messages seen on the event pipeline,
// newest last. It runs as a permanent sink and backs the inspector's
// recent-activity view.
type Timeline struct {
	mu       sync.RWMutex
	capacity int
	messages []domain.Message
	index    map[uuid.UUID]int
}

func NewTimeline(capacity int) *Timeline {
	return &Timeline{
		capacity: capacity,
		index:    make(map[uuid.UUID]int),
	}
}

// Consume implements the EventSink interface. A ReactionUpdated for a
// message still in the window replaces it in place, so the view shows
// the canonical state without reordering.
func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageCreated:
		t.append(evt.Message)
	case event.ReactionUpdated:
		t.replace(evt.Message)
	}
	return nil
}

func (t *Timeline) append(m domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pos, ok := t.index[m.ID]; ok {
		t.messages[pos] = m
		return
	}

	t.messages = append(t.messages, m)
	t.index[m.ID] = len(t.messages) - 1

	if len(t.messages) > t.capacity {
		evicted := t.messages[0]
		delete(t.index, evicted.ID)
		t.messages = t.messages[1:]
		for id, pos := range t.index {
			t.index[id] = pos - 1
		}
	}
}

func (t *Timeline) replace(m domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pos, ok := t.index[m.ID]; ok {
		t.messages[pos] = m
	}
}

// Recent returns a copy of the retained window, oldest first.
func (t *Timeline) Recent() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
