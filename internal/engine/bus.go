// Package engine implements the C6 analysis loop: the periodic driver that
// pulls market state, runs the C1-C5 pipeline, caches results and publishes
// events, grounded on the teacher's order/feed.go subscription bookkeeping.
package engine

import (
	"sort"
	"sync"

	"github.com/raykavin/signalengine/internal/core"
)

// Bus is an in-memory core.EventBus. Subscribers are invoked synchronously
// in registration order, mirroring the teacher's feed.Subscribe pattern
// (no buffering: this engine has a single producer goroutine).
type Bus struct {
	mu    sync.RWMutex
	subs  map[int]func(core.Event)
	nextID int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(core.Event))}
}

// Publish delivers event to every current subscriber.
func (b *Bus) Publish(event core.Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(core.Event), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Subscribe registers handler and returns a function that removes it.
func (b *Bus) Subscribe(handler func(core.Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

var _ core.EventBus = (*Bus)(nil)
