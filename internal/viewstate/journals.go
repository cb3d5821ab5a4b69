package viewstate

import (
	"context"
	"log/slog"

	"github.com/dukerupert/listkeep/internal/collection"
	"github.com/dukerupert/listkeep/internal/model"
)

// JournalSource is a per-user journal collection that pushes full-list
// snapshots.
type JournalSource interface {
	Subscribe(ctx context.Context, userID string) *collection.Subscription[model.JournalEntry]
	Create(ctx context.Context, userID, title, content, mood string) (string, error)
	Update(ctx context.Context, userID, id, title, content, mood string) error
	Delete(ctx context.Context, userID, id string) error
}

type JournalState struct {
	UserID     string
	Phase      Phase
	Entries    []model.JournalEntry
	Visible    []model.JournalEntry
	Query      string
	Mood       string
	WriteError error
}

// JournalList is the journal view model. Entries can be narrowed by a title
// search and by mood; an empty mood shows every mood.
type JournalList struct {
	*listCore[model.JournalEntry]
	src JournalSource

	// guarded by listCore.mu
	query   string
	mood    string
	visible []model.JournalEntry
}

func NewJournalList(src JournalSource, logger *slog.Logger) *JournalList {
	l := &JournalList{src: src}
	l.listCore = newListCore(src.Subscribe, logger.With("component", "journal_list"), l.recompute)
	l.recompute()
	return l
}

func (l *JournalList) recompute() {
	l.visible = model.FilterJournal(l.items, l.query, l.mood)
}

func (l *JournalList) SetSearchQuery(text string) {
	l.mu.Lock()
	if l.query == text {
		l.mu.Unlock()
		return
	}
	l.query = text
	l.recompute()
	l.mu.Unlock()
	l.notify()
}

// SetMood narrows the entries to one mood; "" clears it.
func (l *JournalList) SetMood(mood string) {
	l.mu.Lock()
	if l.mood == mood {
		l.mu.Unlock()
		return
	}
	l.mood = mood
	l.recompute()
	l.mu.Unlock()
	l.notify()
}

func (l *JournalList) State() JournalState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return JournalState{
		UserID:     l.userID,
		Phase:      l.phase,
		Entries:    append([]model.JournalEntry(nil), l.items...),
		Visible:    append([]model.JournalEntry(nil), l.visible...),
		Query:      l.query,
		Mood:       l.mood,
		WriteError: l.writeErr,
	}
}

func (l *JournalList) Entries() []model.JournalEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.JournalEntry(nil), l.items...)
}

func (l *JournalList) VisibleEntries() []model.JournalEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.JournalEntry(nil), l.visible...)
}

func (l *JournalList) Add(userID, title, content, mood string) {
	l.spawn("add", userID, func(ctx context.Context) error {
		_, err := l.src.Create(ctx, userID, title, content, mood)
		return err
	})
}

func (l *JournalList) Update(userID, id, title, content, mood string) {
	l.spawn("update", userID, func(ctx context.Context) error {
		return l.src.Update(ctx, userID, id, title, content, mood)
	})
}

func (l *JournalList) Delete(userID, id string) {
	l.spawn("delete", userID, func(ctx context.Context) error {
		return l.src.Delete(ctx, userID, id)
	})
}
