package store

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/listkeep/internal/database"
	"github.com/dukerupert/listkeep/internal/model"
)

func setupItemTestDB(t *testing.T) *ItemStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewItemStore(db)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return s
}

func TestItemCRUD(t *testing.T) {
	s := setupItemTestDB(t)

	it, err := s.Create("u1", "Buy milk", model.PriorityHigh, model.CategoryWork)
	if err != nil {
		t.Fatalf("create todo: %v", err)
	}
	if it.ID == "" {
		t.Fatal("expected id to be assigned")
	}
	if it.Title != "Buy milk" {
		t.Errorf("title = %q, want %q", it.Title, "Buy milk")
	}
	if it.Completed {
		t.Error("expected not completed")
	}
	if it.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want %q", it.Priority, model.PriorityHigh)
	}
	if it.Category != model.CategoryWork {
		t.Errorf("category = %q, want %q", it.Category, model.CategoryWork)
	}
	if it.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	updated, err := s.UpdateField("u1", it.ID, model.FieldCompleted, true)
	if err != nil {
		t.Fatalf("update completed: %v", err)
	}
	if !updated.Completed {
		t.Error("expected completed after update")
	}
	if !updated.CreatedAt.Equal(it.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", it.CreatedAt, updated.CreatedAt)
	}

	updated, err = s.UpdateField("u1", it.ID, model.FieldTitle, "Buy oat milk")
	if err != nil {
		t.Fatalf("update title: %v", err)
	}
	if updated.Title != "Buy oat milk" {
		t.Errorf("title = %q, want %q", updated.Title, "Buy oat milk")
	}

	if err := s.Delete("u1", it.ID); err != nil {
		t.Fatalf("delete todo: %v", err)
	}
	got, err := s.GetByID("u1", it.ID)
	if err != nil {
		t.Fatalf("get deleted todo: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestItemListNewestFirst(t *testing.T) {
	s := setupItemTestDB(t)

	s.Create("u1", "first", model.PriorityMedium, model.CategoryOther)
	s.Create("u1", "second", model.PriorityMedium, model.CategoryOther)
	s.Create("u2", "someone else", model.PriorityMedium, model.CategoryOther)
	s.Create("u1", "third", model.PriorityMedium, model.CategoryOther)

	items, err := s.ListByUser("u1")
	if err != nil {
		t.Fatalf("list todos: %v", err)
	}
	expected := []string{"third", "second", "first"}
	if len(items) != len(expected) {
		t.Fatalf("expected %d todos, got %d", len(expected), len(items))
	}
	for i, e := range expected {
		if items[i].Title != e {
			t.Errorf("items[%d].Title = %q, want %q", i, items[i].Title, e)
		}
	}
}

func TestItemUpdateFieldNotFound(t *testing.T) {
	s := setupItemTestDB(t)

	_, err := s.UpdateField("u1", "missing", model.FieldCompleted, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestItemUpdateFieldOtherUser(t *testing.T) {
	s := setupItemTestDB(t)

	it, _ := s.Create("u1", "mine", model.PriorityMedium, model.CategoryOther)
	_, err := s.UpdateField("u2", it.ID, model.FieldTitle, "stolen")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestItemUpdateFieldRejectsUnknownField(t *testing.T) {
	s := setupItemTestDB(t)

	it, _ := s.Create("u1", "x", model.PriorityMedium, model.CategoryOther)
	_, err := s.UpdateField("u1", it.ID, "user_id", "u2")
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
	if _, err := s.UpdateField("u1", it.ID, model.FieldCompleted, "yes"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
}

func TestItemMergeFieldCreatesMissing(t *testing.T) {
	s := setupItemTestDB(t)

	it, err := s.MergeField("u1", "legacy-1", model.FieldCompleted, true)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if it.ID != "legacy-1" {
		t.Errorf("id = %q, want %q", it.ID, "legacy-1")
	}
	if !it.Completed {
		t.Error("expected completed")
	}
	if it.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want default %q", it.Priority, model.PriorityMedium)
	}
	if it.Category != model.CategoryOther {
		t.Errorf("category = %q, want default %q", it.Category, model.CategoryOther)
	}
}

func TestItemMergeFieldKeepsOtherColumns(t *testing.T) {
	s := setupItemTestDB(t)

	created, _ := s.Create("u1", "keep me", model.PriorityHigh, model.CategoryStudy)
	it, err := s.MergeField("u1", created.ID, model.FieldCompleted, true)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if it.Title != "keep me" || it.Priority != model.PriorityHigh || it.Category != model.CategoryStudy {
		t.Errorf("merge clobbered fields: %+v", it)
	}
	if !it.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", created.CreatedAt, it.CreatedAt)
	}
}

func TestItemMergeFieldOtherUser(t *testing.T) {
	s := setupItemTestDB(t)

	created, _ := s.Create("u1", "mine", model.PriorityMedium, model.CategoryOther)
	if _, err := s.MergeField("u2", created.ID, model.FieldCompleted, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	got, _ := s.GetByID("u1", created.ID)
	if got.Completed {
		t.Error("other user's merge must not modify the todo")
	}
}

func TestItemUnknownStoredTagsDegrade(t *testing.T) {
	s := setupItemTestDB(t)

	it, _ := s.Create("u1", "legacy", model.PriorityMedium, model.CategoryOther)
	if _, err := s.db.Exec(`UPDATE todos SET priority = 'URGENT', category = 'KERJA' WHERE id = ?`, it.ID); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	got, err := s.GetByID("u1", it.ID)
	if err != nil {
		t.Fatalf("get todo: %v", err)
	}
	if got.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want %q", got.Priority, model.PriorityMedium)
	}
	if got.Category != model.CategoryOther {
		t.Errorf("category = %q, want %q", got.Category, model.CategoryOther)
	}
}
