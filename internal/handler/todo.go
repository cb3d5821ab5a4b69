package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/listkeep/internal/auth"
	"github.com/dukerupert/listkeep/internal/collection"
	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/store"
)

type TodoHandler struct {
	todos     *collection.Todos
	validator *Validator
	logger    *slog.Logger
}

func NewTodoHandler(todos *collection.Todos, v *Validator, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, validator: v, logger: logger}
}

type createTodoRequest struct {
	Title    string `json:"title" validate:"required,max=500"`
	Priority string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Category string `json:"category" validate:"omitempty,oneof=WORK STUDY HOBBY OTHER"`
}

type updateFieldRequest struct {
	Field string `json:"field" validate:"required,oneof=completed title priority category"`
	Value any    `json:"value"`
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.todos.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list todos", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Priority = strings.ToUpper(strings.TrimSpace(req.Priority))
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	if !h.validator.Check(w, req) {
		return
	}

	id, err := h.todos.Create(r.Context(), auth.UserID(r.Context()), req.Title,
		model.ParsePriority(req.Priority), model.ParseCategory(req.Category))
	if err != nil {
		h.logger.Error("create todo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create todo")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdateField sets one field of an existing todo.
func (h *TodoHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	var req updateFieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.validator.Check(w, req) {
		return
	}
	if !validTitleValue(w, req.Field, req.Value) {
		return
	}

	err := h.todos.UpdateField(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), req.Field, req.Value)
	h.writeResult(w, "update todo", err)
}

// MergeField upserts one field, creating the todo when it does not exist.
func (h *TodoHandler) MergeField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value any `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	field := r.PathValue("field")
	if !validTitleValue(w, field, req.Value) {
		return
	}

	err := h.todos.MergeField(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), field, req.Value)
	h.writeResult(w, "merge todo", err)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.todos.Delete(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	h.writeResult(w, "delete todo", err)
}

func (h *TodoHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.todos.Statistics(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("todo statistics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *TodoHandler) writeResult(w http.ResponseWriter, op string, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "todo not found")
	case errors.Is(err, store.ErrUnknownField), errors.Is(err, store.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

// validTitleValue rejects blank titles, which the store would accept.
func validTitleValue(w http.ResponseWriter, field string, value any) bool {
	if field != model.FieldTitle {
		return true
	}
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return false
	}
	return true
}
