// Package events provides a typed publish/subscribe registry used for
// collection sync signals and application-level events.
package events

import (
	"context"
	"errors"
	"sync"
)

// Handler receives one published value.
type Handler[T any] func(ctx context.Context, v T) error

// Bus delivers values of type T to subscribers, synchronously and in
// subscription order. The zero value is ready to use.
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id int
	fn Handler[T]
}

// Subscribe registers fn and returns a function that removes it. The
// returned function may be called more than once.
func (b *Bus[T]) Subscribe(fn Handler[T]) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every current subscriber with v and joins their errors.
// A failing subscriber does not stop delivery to the rest. Subscribers may
// subscribe or unsubscribe from within their callback.
func (b *Bus[T]) Publish(ctx context.Context, v T) error {
	b.mu.RLock()
	subs := make([]subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.fn(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Signal is a payload-free notification, such as a collection sync.
type Signal struct {
	bus Bus[struct{}]
}

// Notify registers fn to run on every Emit.
func (s *Signal) Notify(fn func()) (unsubscribe func()) {
	return s.bus.Subscribe(func(context.Context, struct{}) error {
		fn()
		return nil
	})
}

// Emit runs every registered function.
func (s *Signal) Emit() {
	_ = s.bus.Publish(context.Background(), struct{}{})
}
