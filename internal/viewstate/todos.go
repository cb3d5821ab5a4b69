package viewstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/listkeep/internal/collection"
	"github.com/dukerupert/listkeep/internal/model"
)

// TodoSource is a per-user todo collection that pushes full-list snapshots.
type TodoSource interface {
	Subscribe(ctx context.Context, userID string) *collection.Subscription[model.Item]
	Create(ctx context.Context, userID, title string, priority model.Priority, category model.Category) (string, error)
	UpdateField(ctx context.Context, userID, id, field string, value any) error
	MergeField(ctx context.Context, userID, id, field string, value any) error
	Delete(ctx context.Context, userID, id string) error
}

// TodoState is a consistent copy of everything a todo screen renders.
type TodoState struct {
	UserID     string
	Phase      Phase
	Items      []model.Item
	Visible    []model.Item
	Query      string
	Filter     model.Filter
	Stats      model.Statistics
	WriteError error
}

// TodoList is the todo list view model. Items are only ever replaced by a
// snapshot from the source; writes go to the source and show up through the
// next snapshot.
type TodoList struct {
	*listCore[model.Item]
	src TodoSource

	// guarded by listCore.mu
	query   string
	filter  model.Filter
	visible []model.Item
	stats   model.Statistics
}

func NewTodoList(src TodoSource, logger *slog.Logger) *TodoList {
	l := &TodoList{src: src}
	l.listCore = newListCore(src.Subscribe, logger.With("component", "todo_list"), l.recompute)
	l.recompute()
	return l
}

// recompute derives the visible items and statistics. Statistics always
// count the full list so headline numbers do not move while searching.
func (l *TodoList) recompute() {
	l.visible = model.FilterItems(l.items, l.query, l.filter)
	l.stats = model.ComputeStatistics(l.items)
}

func (l *TodoList) SetSearchQuery(text string) {
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

func (l *TodoList) SetFilter(f model.Filter) {
	l.mu.Lock()
	if l.filter == f {
		l.mu.Unlock()
		return
	}
	l.filter = f
	l.recompute()
	l.mu.Unlock()
	l.notify()
}

func (l *TodoList) State() TodoState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return TodoState{
		UserID:     l.userID,
		Phase:      l.phase,
		Items:      append([]model.Item(nil), l.items...),
		Visible:    append([]model.Item(nil), l.visible...),
		Query:      l.query,
		Filter:     l.filter,
		Stats:      l.stats,
		WriteError: l.writeErr,
	}
}

func (l *TodoList) VisibleItems() []model.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Item(nil), l.visible...)
}

func (l *TodoList) Items() []model.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Item(nil), l.items...)
}

func (l *TodoList) Statistics() model.Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *TodoList) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

func (l *TodoList) Filter() model.Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Add asks the source to create a todo. Callers validate title.
func (l *TodoList) Add(userID, title string, priority model.Priority, category model.Category) {
	l.spawn("add", userID, func(ctx context.Context) error {
		_, err := l.src.Create(ctx, userID, title, priority, category)
		return err
	})
}

// Toggle sets completed on a todo. If the targeted update fails, the field
// is written once more as a merge, which also covers documents stored before
// completed existed.
func (l *TodoList) Toggle(userID, id string, completed bool) {
	l.spawn("toggle", userID, func(ctx context.Context) error {
		err := l.src.UpdateField(ctx, userID, id, model.FieldCompleted, completed)
		if err == nil || ctx.Err() != nil {
			return err
		}
		l.logger.Warn("update failed, retrying as merge", "id", id, "error", err)
		if mergeErr := l.src.MergeField(ctx, userID, id, model.FieldCompleted, completed); mergeErr != nil {
			return fmt.Errorf("merge after failed update: %w", errors.Join(err, mergeErr))
		}
		return nil
	})
}

func (l *TodoList) UpdateTitle(userID, id, title string) {
	l.updateField("update title", userID, id, model.FieldTitle, title)
}

func (l *TodoList) UpdatePriority(userID, id string, p model.Priority) {
	l.updateField("update priority", userID, id, model.FieldPriority, string(p))
}

func (l *TodoList) UpdateCategory(userID, id string, c model.Category) {
	l.updateField("update category", userID, id, model.FieldCategory, string(c))
}

func (l *TodoList) updateField(op, userID, id, field string, value any) {
	l.spawn(op, userID, func(ctx context.Context) error {
		return l.src.UpdateField(ctx, userID, id, field, value)
	})
}

func (l *TodoList) Delete(userID, id string) {
	l.spawn("delete", userID, func(ctx context.Context) error {
		return l.src.Delete(ctx, userID, id)
	})
}
