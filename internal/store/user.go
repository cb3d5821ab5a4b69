package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/listkeep/internal/model"
	"github.com/google/uuid"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Provider, &u.Subject, &u.Name, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, provider, subject, name, avatar_url, created_at, updated_at`

// UpsertByProvider returns the user for (provider, subject), creating it on
// first sign-in and refreshing name and avatar on later ones.
func (s *UserStore) UpsertByProvider(provider, subject, name, avatarURL string) (*model.User, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO users (id, provider, subject, name, avatar_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(provider, subject) DO UPDATE SET name = excluded.name, avatar_url = excluded.avatar_url, updated_at = excluded.updated_at`,
		uuid.NewString(), provider, subject, name, avatarURL, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetByProvider(provider, subject)
}

func (s *UserStore) GetByProvider(provider, subject string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE provider = ? AND subject = ?`, provider, subject)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by provider: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
