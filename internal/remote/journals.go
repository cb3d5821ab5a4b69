package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dukerupert/listkeep/internal/collection"
	"github.com/dukerupert/listkeep/internal/model"
)

type Journals struct {
	c *Client
}

func (j *Journals) Subscribe(ctx context.Context, userID string) *collection.Subscription[model.JournalEntry] {
	return subscribe[model.JournalEntry](ctx, j.c, "/ws/journals", "journal", userID)
}

func (j *Journals) List(ctx context.Context) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	if err := j.c.do(ctx, http.MethodGet, "/api/journals", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (j *Journals) Create(ctx context.Context, _, title, content, mood string) (string, error) {
	body := map[string]string{"title": title, "content": content, "mood": mood}
	var out struct {
		ID string `json:"id"`
	}
	if err := j.c.write(ctx, http.MethodPost, "/api/journals", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (j *Journals) Update(ctx context.Context, _, id, title, content, mood string) error {
	body := map[string]string{"title": title, "content": content, "mood": mood}
	return j.c.write(ctx, http.MethodPut, "/api/journals/"+url.PathEscape(id), body, nil)
}

func (j *Journals) Delete(ctx context.Context, _, id string) error {
	return j.c.write(ctx, http.MethodDelete, "/api/journals/"+url.PathEscape(id), nil, nil)
}
