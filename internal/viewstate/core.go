// Package viewstate holds the client-side list view models: the user's
// current collection as last reported by a source, plus whatever is derived
// from it for display.
package viewstate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/listkeep/internal/collection"
)

// Phase is the lifecycle of the current subscription.
type Phase int

const (
	Unsubscribed Phase = iota
	Subscribing
	Active
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	case Cancelled:
		return "cancelled"
	default:
		return "unsubscribed"
	}
}

// listCore owns the subscription and write plumbing shared by every list.
// Fields below mu are guarded by it; derive is always called with mu held.
type listCore[T any] struct {
	logger    *slog.Logger
	subscribe func(ctx context.Context, userID string) *collection.Subscription[T]
	derive    func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// subMu serializes Observe and ClearOnSignOut so cancel-before-replace
	// holds even when they race.
	subMu sync.Mutex
	sub   *collection.Subscription[T]

	mu          sync.Mutex
	gen         uint64
	userID      string
	phase       Phase
	items       []T
	writeErr    error
	writeCtx    context.Context
	writeCancel context.CancelFunc
	writeGen    uint64
	closed      bool

	changes chan struct{}
}

func newListCore[T any](subscribe func(context.Context, string) *collection.Subscription[T], logger *slog.Logger, derive func()) *listCore[T] {
	ctx, cancel := context.WithCancel(context.Background())
	c := &listCore[T]{
		logger:    logger,
		subscribe: subscribe,
		derive:    derive,
		ctx:       ctx,
		cancel:    cancel,
		changes:   make(chan struct{}, 1),
	}
	c.writeCtx, c.writeCancel = context.WithCancel(ctx)
	return c
}

// Changes signals after every state change. Signals coalesce: a receiver
// that falls behind sees one pending signal and should re-read the state.
func (c *listCore[T]) Changes() <-chan struct{} {
	return c.changes
}

func (c *listCore[T]) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// UserID returns the user currently observed, or "" when signed out.
func (c *listCore[T]) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *listCore[T]) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// WriteError returns the failure of the most recent write, cleared by the
// next successful one.
func (c *listCore[T]) WriteError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeErr
}

// Observe subscribes to userID's collection. Observing the user already
// subscribed to is a no-op while that subscription is live. Switching users
// cancels the previous subscription, and waits for it to stop, before the
// new one is opened.
func (c *listCore[T]) Observe(userID string) {
	if userID == "" {
		c.logger.Warn("observe without a user")
		return
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.sub != nil && c.userID == userID && !isDone(c.sub.Done()) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.stopLocked()

	c.mu.Lock()
	if c.userID != userID {
		c.items = nil
		c.derive()
	}
	c.gen++
	gen := c.gen
	c.userID = userID
	c.phase = Subscribing
	c.mu.Unlock()
	c.notify()

	c.logger.Debug("subscribing", "user_id", userID)
	sub := c.subscribe(c.ctx, userID)
	c.sub = sub

	c.wg.Add(1)
	go c.consume(gen, sub)
}

// ClearOnSignOut cancels the subscription and any pending writes and drops
// every cached item, so the next user never sees the previous user's data.
func (c *listCore[T]) ClearOnSignOut() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.stopLocked()

	c.mu.Lock()
	c.writeCancel()
	c.writeCtx, c.writeCancel = context.WithCancel(c.ctx)
	c.writeGen++
	c.userID = ""
	c.phase = Unsubscribed
	c.items = nil
	c.writeErr = nil
	c.derive()
	c.mu.Unlock()
	c.notify()
}

// Close tears the list down: the subscription and all in-flight writes are
// cancelled, and Close returns once they have all stopped.
func (c *listCore[T]) Close() {
	c.subMu.Lock()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stopLocked()
	c.subMu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// stopLocked cancels the current subscription. The generation is bumped
// first so a snapshot already in flight from it is discarded. subMu must be
// held.
func (c *listCore[T]) stopLocked() {
	c.mu.Lock()
	c.gen++
	if c.sub != nil {
		c.phase = Cancelled
	}
	c.mu.Unlock()

	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
}

func (c *listCore[T]) consume(gen uint64, sub *collection.Subscription[T]) {
	defer c.wg.Done()

	for snap := range sub.C() {
		c.apply(gen, snap)
	}

	c.mu.Lock()
	if c.gen == gen {
		// the source gave up on its own
		c.phase = Unsubscribed
	}
	c.mu.Unlock()
	c.notify()
}

func (c *listCore[T]) apply(gen uint64, snap collection.Snapshot[T]) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if snap.Err != nil {
		c.logger.Warn("snapshot failed, showing empty list", "user_id", c.userID, "error", snap.Err)
		c.items = nil
	} else {
		c.items = snap.Items
	}
	c.phase = Active
	c.derive()
	c.mu.Unlock()
	c.notify()
}

// spawn runs a write in the background, bound to the current session's write
// context. Its outcome is recorded as the list's WriteError unless the
// session ended while it ran.
func (c *listCore[T]) spawn(op, userID string, write func(ctx context.Context) error) {
	if userID == "" {
		c.logger.Warn("write without a user", "op", op)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	ctx, wgen := c.writeCtx, c.writeGen
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		err := write(ctx)
		if err != nil {
			c.logger.Error("write failed", "op", op, "user_id", userID, "error", err)
			err = fmt.Errorf("%s: %w", op, err)
		}

		c.mu.Lock()
		if c.writeGen != wgen || ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.writeErr = err
		c.mu.Unlock()
		c.notify()
	}()
}

func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
