// Package event provides a small in-process publish/subscribe bus.
//
// Every Listen returns a disposer so a subscriber scoped to a view or a
// poll loop can detach when it goes away.
package event

import (
	"sync"
)

// Handler receives an event payload.
type Handler func(payload interface{})

type subscription struct {
	id int
	h  Handler
}

// Bus dispatches named events to their listeners in registration order.
type Bus struct {
	mu       sync.RWMutex
	seq      int
	handlers map[string][]subscription
}

func New() *Bus {
	return &Bus{handlers: map[string][]subscription{}}
}

// Listen registers h for event and returns a func that removes it.
func (b *Bus) Listen(event string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.handlers[event] = append(b.handlers[event], subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.handlers[event]
			for i, s := range subs {
				if s.id == id {
					b.handlers[event] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) snapshot(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[event]))
	for i, s := range b.handlers[event] {
		hs[i] = s.h
	}
	return hs
}

// Fire dispatches synchronously. Handlers may unsubscribe while running.
func (b *Bus) Fire(event string, payload interface{}) {
	for _, h := range b.snapshot(event) {
		h(payload)
	}
}

// FireAsync dispatches each handler on its own goroutine and returns at once.
func (b *Bus) FireAsync(event string, payload interface{}) {
	for _, h := range b.snapshot(event) {
		go h(payload)
	}
}

// Count returns the number of listeners for event.
func (b *Bus) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]subscription{}
}
