package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/listkeep/internal/events"
	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/store"
	"github.com/dukerupert/listkeep/internal/websocket"
)

const entityTodo = "todo"

// ErrNotFound is returned when a targeted write names a missing item.
var ErrNotFound = store.ErrNotFound

// Todos is the server-side todo collection. Every successful write notifies
// the owning user's subscribers.
type Todos struct {
	store    *store.ItemStore
	hub      *websocket.Hub
	notifier websocket.Notifier
	events   events.Publisher
	logger   *slog.Logger
}

// NewTodos wires a todo collection. notifier is usually the hub itself, or a
// websocket.RedisRelay when several instances share the database.
func NewTodos(s *store.ItemStore, hub *websocket.Hub, notifier websocket.Notifier, pub events.Publisher, logger *slog.Logger) *Todos {
	return &Todos{store: s, hub: hub, notifier: notifier, events: pub, logger: logger}
}

func (t *Todos) changed(ctx context.Context, action, userID, id, field string) {
	t.notifier.Notify(ctx, websocket.NewMessage(entityTodo, action, userID, id))

	e := events.New(entityTodo, action, userID, id)
	e.Field = field
	if err := t.events.Publish(ctx, e); err != nil {
		t.logger.Warn("publish event", "routing_key", e.RoutingKey(), "error", err)
	}
}

func (t *Todos) List(_ context.Context, userID string) ([]model.Item, error) {
	return t.store.ListByUser(userID)
}

func (t *Todos) Get(_ context.Context, userID, id string) (*model.Item, error) {
	return t.store.GetByID(userID, id)
}

// Create adds a todo and returns its assigned id.
func (t *Todos) Create(ctx context.Context, userID, title string, priority model.Priority, category model.Category) (string, error) {
	it, err := t.store.Create(userID, title, priority, category)
	if err != nil {
		return "", err
	}
	t.changed(ctx, "created", userID, it.ID, "")
	return it.ID, nil
}

// UpdateField sets one field of an existing todo.
func (t *Todos) UpdateField(ctx context.Context, userID, id, field string, value any) error {
	if _, err := t.store.UpdateField(userID, id, field, value); err != nil {
		return err
	}
	t.changed(ctx, "updated", userID, id, field)
	return nil
}

// MergeField upserts one field, creating the todo if needed.
func (t *Todos) MergeField(ctx context.Context, userID, id, field string, value any) error {
	if _, err := t.store.MergeField(userID, id, field, value); err != nil {
		return err
	}
	t.changed(ctx, "updated", userID, id, field)
	return nil
}

func (t *Todos) Delete(ctx context.Context, userID, id string) error {
	if err := t.store.Delete(userID, id); err != nil {
		return err
	}
	t.changed(ctx, "deleted", userID, id, "")
	return nil
}

// Statistics computes headline counts over the user's whole collection.
func (t *Todos) Statistics(ctx context.Context, userID string) (model.Statistics, error) {
	items, err := t.List(ctx, userID)
	if err != nil {
		return model.Statistics{}, err
	}
	return model.ComputeStatistics(items), nil
}

// Subscribe streams the user's full todo list now and after every change.
func (t *Todos) Subscribe(ctx context.Context, userID string) *Subscription[model.Item] {
	return watch(ctx, t.hub, userID, entityTodo, func() ([]model.Item, error) {
		return t.store.ListByUser(userID)
	})
}

// watch emits a fresh listing immediately and again whenever the hub
// signals a change to entity for userID. The listener is registered before
// the first listing so no change can slip between them.
func watch[T any](ctx context.Context, hub *websocket.Hub, userID, entity string, list func() ([]T, error)) *Subscription[T] {
	return Stream(ctx, func(ctx context.Context, emit func(Snapshot[T]) bool) {
		l := hub.Listen(userID, entity)
		defer l.Close()

		for {
			items, err := list()
			snap := Snapshot[T]{Items: items}
			if err != nil {
				snap = Snapshot[T]{Err: fmt.Errorf("list %s: %w", userID, err)}
			}
			if !emit(snap) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-l.C():
				if !ok {
					return
				}
			}
		}
	})
}

// IsNotFound reports whether err means the targeted item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
