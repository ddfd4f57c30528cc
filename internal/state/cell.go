// Package state holds the observable stores a conversation session renders
// from: the transcript, the suggestion set, the loading flags and the
// location pager.
//
// Every store follows the same contract. Subscribe delivers the current value
// immediately and then every change, synchronously, before the mutating call
// returns. Deliveries are serialized per store so observers see changes in
// the order they were made. Observers may read any store but must not mutate
// the store that is notifying them.
package state

import "sync"

// Observer receives a snapshot of a store's value.
type Observer[T any] func(T)

// Observable is the read-only view of a store handed to UIs.
type Observable[T any] interface {
	Current() T
	Subscribe(fn Observer[T]) (unsubscribe func())
}

// Cell is an observable value. The zero value is not usable; use NewCell.
type Cell[T any] struct {
	mu        sync.Mutex
	deliverMu sync.Mutex
	value     T
	copyFn    func(T) T
	observers []subscription[T]
	nextID    uint64
}

type subscription[T any] struct {
	id uint64
	fn Observer[T]
}

// NewCell returns a cell holding initial. copyFn, if non-nil, is applied to
// every value handed out so observers can't alias the stored value.
func NewCell[T any](initial T, copyFn func(T) T) *Cell[T] {
	if copyFn == nil {
		copyFn = func(v T) T { return v }
	}
	return &Cell[T]{
		value:     copyFn(initial),
		copyFn:    copyFn,
	}
}

func (c *Cell[T]) Current() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyFn(c.value)
}

// Set replaces the value and notifies observers.
func (c *Cell[T]) Set(v T) {
	c.Update(func(T) T { return v })
}

// Update applies fn to the current value and notifies observers with the
// result.
func (c *Cell[T]) Update(fn func(T) T) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	c.value = fn(c.value)
	observers := c.snapshotObserversLocked()
	c.mu.Unlock()

	for _, obs := range observers {
		obs(c.Current())
	}
}

func (c *Cell[T]) Subscribe(fn Observer[T]) func() {
	if fn == nil {
		return func() {}
	}
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers = append(c.observers, subscription[T]{id: id, fn: fn})
	c.mu.Unlock()

	fn(c.Current())

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, sub := range c.observers {
				if sub.id == id {
					c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// snapshotObserversLocked returns observers in subscription order.
func (c *Cell[T]) snapshotObserversLocked() []Observer[T] {
	out := make([]Observer[T], len(c.observers))
	for i, sub := range c.observers {
		out[i] = sub.fn
	}
	return out
}
