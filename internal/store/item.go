package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/listkeep/internal/model"
	"github.com/google/uuid"
)

// ErrNotFound is returned by targeted writes when the row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnknownField is returned when a field update names a column that cannot
// be written.
var ErrUnknownField = errors.New("unknown field")

// ErrInvalidValue is returned when a field update carries a value of the
// wrong type.
var ErrInvalidValue = errors.New("invalid value")

type ItemStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db, now: time.Now}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var it model.Item
	var completed int
	var priority, category string

	err := scanner.Scan(&it.ID, &it.UserID, &it.Title, &completed, &priority, &category, &it.CreatedAt)
	if err != nil {
		return nil, err
	}

	it.Completed = completed != 0
	it.Priority = model.ParsePriority(priority)
	it.Category = model.ParseCategory(category)
	return &it, nil
}

const itemCols = `id, user_id, title, completed, priority, category, created_at`

func (s *ItemStore) Create(userID, title string, priority model.Priority, category model.Category) (*model.Item, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO todos (id, user_id, title, completed, priority, category, created_at) VALUES (?, ?, ?, 0, ?, ?, ?)`,
		id, userID, title, string(priority), string(category), s.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *ItemStore) GetByID(userID, id string) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM todos WHERE user_id = ? AND id = ?`, userID, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return it, nil
}

// ListByUser returns the user's todos, newest first.
func (s *ItemStore) ListByUser(userID string) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM todos WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// fieldValue converts a field update into the column value stored for it.
func fieldValue(field string, value any) (any, error) {
	switch field {
	case model.FieldCompleted:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a bool", ErrInvalidValue, field)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case model.FieldTitle:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidValue, field)
		}
		return s, nil
	case model.FieldPriority:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidValue, field)
		}
		return string(model.ParsePriority(s)), nil
	case model.FieldCategory:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidValue, field)
		}
		return string(model.ParseCategory(s)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// UpdateField sets a single field on an existing todo. It returns ErrNotFound
// when the todo does not exist.
func (s *ItemStore) UpdateField(userID, id, field string, value any) (*model.Item, error) {
	v, err := fieldValue(field, value)
	if err != nil {
		return nil, err
	}

	// field is whitelisted by fieldValue above.
	result, err := s.db.Exec(`UPDATE todos SET `+field+` = ? WHERE user_id = ? AND id = ?`, v, userID, id)
	if err != nil {
		return nil, fmt.Errorf("update todo %s: %w", field, err)
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

// MergeField writes a single field, creating the todo with default values for
// every other column when it does not exist yet.
func (s *ItemStore) MergeField(userID, id, field string, value any) (*model.Item, error) {
	v, err := fieldValue(field, value)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO todos (id, user_id, `+field+`, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET `+field+` = excluded.`+field+` WHERE todos.user_id = excluded.user_id`,
		id, userID, v, s.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("merge todo %s: %w", field, err)
	}
	it, err := s.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		// id belongs to another user
		return nil, ErrNotFound
	}
	return it, nil
}

func (s *ItemStore) Delete(userID, id string) error {
	_, err := s.db.Exec(`DELETE FROM todos WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}
