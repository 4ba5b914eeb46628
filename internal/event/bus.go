// Package event provides the synchronous publish/subscribe registry that
// carries node-change notifications from the tree to display adapters.
//
// A Bus is a fan-out, not a queue: Publish calls every subscriber on the
// caller's goroutine, in the order the subscriptions were made, and returns
// only after the last one has run. Nothing is batched, debounced or coalesced;
// a consumer that wants coalescing does it itself.
//
// Subscribing or unsubscribing from inside a handler is allowed and takes
// effect from the next Publish.
package event

import "sync"

// Handler receives published values.
type Handler[T any] func(T)

type entry[T any] struct {
	id uint64
	fn Handler[T]
}

// Bus is a broadcast channel with a stable notification order.
type Bus[T any] struct {
	mu      sync.Mutex
	next    uint64
	entries []entry[T]
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscription is returned by Subscribe and removes the handler again.
type Subscription struct {
	unsubscribe func()
	once        sync.Once
}

// Unsubscribe detaches the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.unsubscribe == nil {
		return
	}
	s.once.Do(s.unsubscribe)
}

// Subscribe registers fn after every existing subscriber.
func (b *Bus[T]) Subscribe(fn Handler[T]) *Subscription {
	b.mu.Lock()
	b.next++
	id := b.next
	// copy-on-write: a Publish in progress keeps iterating its own snapshot
	entries := make([]entry[T], len(b.entries), len(b.entries)+1)
	copy(entries, b.entries)
	b.entries = append(entries, entry[T]{id: id, fn: fn})
	b.mu.Unlock()

	return &Subscription{unsubscribe: func() { b.remove(id) }}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := make([]entry[T], 0, len(b.entries))
	for _, e := range b.entries {
		if e.id != id {
			entries = append(entries, e)
		}
	}
	b.entries = entries
}

// Publish delivers v to every subscriber in subscription order.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	entries := b.entries
	b.mu.Unlock()
	for _, e := range entries {
		e.fn(v)
	}
}

// Len reports the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
