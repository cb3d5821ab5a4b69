package collection

import (
	"context"
	"log/slog"

	"github.com/dukerupert/listkeep/internal/events"
	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/store"
	"github.com/dukerupert/listkeep/internal/websocket"
)

const entityJournal = "journal"

// Journals is the server-side journal collection.
type Journals struct {
	store    *store.JournalStore
	hub      *websocket.Hub
	notifier websocket.Notifier
	events   events.Publisher
	logger   *slog.Logger
}

func NewJournals(s *store.JournalStore, hub *websocket.Hub, notifier websocket.Notifier, pub events.Publisher, logger *slog.Logger) *Journals {
	return &Journals{store: s, hub: hub, notifier: notifier, events: pub, logger: logger}
}

func (j *Journals) changed(ctx context.Context, action, userID, id string) {
	j.notifier.Notify(ctx, websocket.NewMessage(entityJournal, action, userID, id))
	e := events.New(entityJournal, action, userID, id)
	if err := j.events.Publish(ctx, e); err != nil {
		j.logger.Warn("publish event", "routing_key", e.RoutingKey(), "error", err)
	}
}

func (j *Journals) List(_ context.Context, userID string) ([]model.JournalEntry, error) {
	return j.store.ListByUser(userID)
}

func (j *Journals) Get(_ context.Context, userID, id string) (*model.JournalEntry, error) {
	return j.store.GetByID(userID, id)
}

func (j *Journals) Create(ctx context.Context, userID, title, content, mood string) (string, error) {
	e, err := j.store.Create(userID, title, content, mood)
	if err != nil {
		return "", err
	}
	j.changed(ctx, "created", userID, e.ID)
	return e.ID, nil
}

func (j *Journals) Update(ctx context.Context, userID, id, title, content, mood string) error {
	if _, err := j.store.Update(userID, id, title, content, mood); err != nil {
		return err
	}
	j.changed(ctx, "updated", userID, id)
	return nil
}

func (j *Journals) Delete(ctx context.Context, userID, id string) error {
	if err := j.store.Delete(userID, id); err != nil {
		return err
	}
	j.changed(ctx, "deleted", userID, id)
	return nil
}

// Subscribe streams the user's full journal now and after every change.
func (j *Journals) Subscribe(ctx context.Context, userID string) *Subscription[model.JournalEntry] {
	return watch(ctx, j.hub, userID, entityJournal, func() ([]model.JournalEntry, error) {
		return j.store.ListByUser(userID)
	})
}
