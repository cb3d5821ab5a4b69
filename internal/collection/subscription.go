// Package collection implements per-user collections with realtime
// full-list snapshots.
package collection

import (
	"context"
	"sync"
)

// Snapshot is the full list of a user's items at one point in time. A
// snapshot with a non-nil Err carries no items.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// Subscription is a cancellable stream of snapshots.
type Subscription[T any] struct {
	c      chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// C returns the snapshot channel. It is closed once the producer stops.
func (s *Subscription[T]) C() <-chan Snapshot[T] {
	return s.c
}

// Cancel stops the producer and waits for it to exit, releasing any upstream
// listener or connection. It is safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when the producer has exited, whether by Cancel, parent
// context cancellation, or the producer giving up.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Stream runs produce on its own goroutine. produce calls emit for every
// snapshot; emit reports false once the subscription has been cancelled, at
// which point produce must return.
func Stream[T any](ctx context.Context, produce func(ctx context.Context, emit func(Snapshot[T]) bool)) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		c:      make(chan Snapshot[T]),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.c)
		defer cancel()

		emit := func(snap Snapshot[T]) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case s.c <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}
		produce(ctx, emit)
	}()

	return s
}
