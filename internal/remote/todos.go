package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dukerupert/listkeep/internal/collection"
	"github.com/dukerupert/listkeep/internal/model"
)

// Todos is the signed-in user's todo collection on the server. The server
// scopes every request to the token's user; userID arguments only guard
// the snapshot stream against a token for someone else.
type Todos struct {
	c *Client
}

func (t *Todos) Subscribe(ctx context.Context, userID string) *collection.Subscription[model.Item] {
	return subscribe[model.Item](ctx, t.c, "/ws/todos", "todo", userID)
}

func (t *Todos) List(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := t.c.do(ctx, http.MethodGet, "/api/todos", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (t *Todos) Statistics(ctx context.Context) (model.Statistics, error) {
	var s model.Statistics
	err := t.c.do(ctx, http.MethodGet, "/api/todos/stats", nil, &s)
	return s, err
}

func (t *Todos) Create(ctx context.Context, _ string, title string, priority model.Priority, category model.Category) (string, error) {
	body := map[string]string{
		"title":    title,
		"priority": string(priority),
		"category": string(category),
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := t.c.write(ctx, http.MethodPost, "/api/todos", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (t *Todos) UpdateField(ctx context.Context, _, id, field string, value any) error {
	body := map[string]any{"field": field, "value": value}
	return t.c.write(ctx, http.MethodPatch, "/api/todos/"+url.PathEscape(id), body, nil)
}

func (t *Todos) MergeField(ctx context.Context, _, id, field string, value any) error {
	body := map[string]any{"value": value}
	return t.c.write(ctx, http.MethodPut, "/api/todos/"+url.PathEscape(id)+"/fields/"+url.PathEscape(field), body, nil)
}

func (t *Todos) Delete(ctx context.Context, _, id string) error {
	return t.c.write(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, nil)
}
