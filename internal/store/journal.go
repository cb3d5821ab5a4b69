package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/listkeep/internal/model"
	"github.com/google/uuid"
)

type JournalStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewJournalStore(db *sql.DB) *JournalStore {
	return &JournalStore{db: db, now: time.Now}
}

func scanJournal(scanner interface{ Scan(...any) error }) (*model.JournalEntry, error) {
	var e model.JournalEntry
	err := scanner.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.Mood, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const journalCols = `id, user_id, title, content, mood, created_at`

func moodOrDefault(mood string) string {
	if strings.TrimSpace(mood) == "" {
		return model.DefaultMood
	}
	return mood
}

func (s *JournalStore) Create(userID, title, content, mood string) (*model.JournalEntry, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO journal_entries (id, user_id, title, content, mood, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, title, content, moodOrDefault(mood), s.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *JournalStore) GetByID(userID, id string) (*model.JournalEntry, error) {
	row := s.db.QueryRow(`SELECT `+journalCols+` FROM journal_entries WHERE user_id = ? AND id = ?`, userID, id)
	e, err := scanJournal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	return e, nil
}

// ListByUser returns the user's journal entries, newest first.
func (s *JournalStore) ListByUser(userID string) ([]model.JournalEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+journalCols+` FROM journal_entries WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Update rewrites title, content and mood. It returns ErrNotFound when the
// entry does not exist.
func (s *JournalStore) Update(userID, id, title, content, mood string) (*model.JournalEntry, error) {
	result, err := s.db.Exec(
		`UPDATE journal_entries SET title = ?, content = ?, mood = ? WHERE user_id = ? AND id = ?`,
		title, content, moodOrDefault(mood), userID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update journal entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(userID, id)
}

func (s *JournalStore) Delete(userID, id string) error {
	_, err := s.db.Exec(`DELETE FROM journal_entries WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return nil
}
