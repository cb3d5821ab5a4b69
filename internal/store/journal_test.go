package store

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/listkeep/internal/database"
	"github.com/dukerupert/listkeep/internal/model"
)

func setupJournalTestDB(t *testing.T) *JournalStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewJournalStore(db)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Hour)
	}
	return s
}

func TestJournalCRUD(t *testing.T) {
	s := setupJournalTestDB(t)

	e, err := s.Create("u1", "Monday", "Long day", "")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if e.Mood != model.DefaultMood {
		t.Errorf("mood = %q, want default %q", e.Mood, model.DefaultMood)
	}

	updated, err := s.Update("u1", e.ID, "Monday!", "Better day", "🎉")
	if err != nil {
		t.Fatalf("update entry: %v", err)
	}
	if updated.Title != "Monday!" || updated.Content != "Better day" || updated.Mood != "🎉" {
		t.Errorf("unexpected entry after update: %+v", updated)
	}

	if _, err := s.Update("u2", e.ID, "x", "y", "z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("update by other user: err = %v, want ErrNotFound", err)
	}

	if err := s.Delete("u1", e.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	got, _ := s.GetByID("u1", e.ID)
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestJournalListNewestFirst(t *testing.T) {
	s := setupJournalTestDB(t)

	s.Create("u1", "older", "", "")
	s.Create("u1", "newer", "", "")
	s.Create("u2", "not mine", "", "")

	entries, err := s.ListByUser("u1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "newer" || entries[1].Title != "older" {
		t.Errorf("order = [%q %q], want [newer older]", entries[0].Title, entries[1].Title)
	}
}
