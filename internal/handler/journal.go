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

type JournalHandler struct {
	journals  *collection.Journals
	validator *Validator
	logger    *slog.Logger
}

func NewJournalHandler(journals *collection.Journals, v *Validator, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{journals: journals, validator: v, logger: logger}
}

type journalRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=20000"`
	Mood    string `json:"mood" validate:"max=32"`
}

func (req *journalRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Mood = strings.TrimSpace(req.Mood)
}

func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.journals.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list journal entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list journal entries")
		return
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if !h.validator.Check(w, req) {
		return
	}

	id, err := h.journals.Create(r.Context(), auth.UserID(r.Context()), req.Title, req.Content, req.Mood)
	if err != nil {
		h.logger.Error("create journal entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create journal entry")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if !h.validator.Check(w, req) {
		return
	}

	err := h.journals.Update(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), req.Title, req.Content, req.Mood)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "journal entry not found")
	default:
		h.logger.Error("update journal entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update journal entry")
	}
}

func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.journals.Delete(r.Context(), auth.UserID(r.Context()), r.PathValue("id")); err != nil {
		h.logger.Error("delete journal entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete journal entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
