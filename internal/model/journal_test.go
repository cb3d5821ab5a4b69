package model_test

import (
	"testing"

	"github.com/dukerupert/listkeep/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFilterJournal(t *testing.T) {
	entries := []model.JournalEntry{
		{ID: "1", Title: "Morning run", Mood: "🔥"},
		{ID: "2", Title: "Rainy MORNING", Mood: "😔"},
		{ID: "3", Title: "Late night", Mood: "😴"},
		{ID: "4", Title: "morning tea", Mood: "🔥"},
	}
	idsOf := func(es []model.JournalEntry) []string {
		out := []string{}
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		mood  string
		want  []string
	}{
		{"everything", "", "", []string{"1", "2", "3", "4"}},
		{"blank query", "   ", "", []string{"1", "2", "3", "4"}},
		{"search ignores case", "morning", "", []string{"1", "2", "4"}},
		{"mood only", "", "🔥", []string{"1", "4"}},
		{"search and mood", "MORNING", "🔥", []string{"1", "4"}},
		{"no match", "lunch", "", []string{}},
		{"mood nobody has", "", "⭐", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idsOf(model.FilterJournal(entries, tt.query, tt.mood)))
		})
	}
}

func TestIsMood(t *testing.T) {
	assert.True(t, model.IsMood(model.DefaultMood))
	assert.True(t, model.IsMood("🌿"))
	assert.False(t, model.IsMood(""))
	assert.False(t, model.IsMood("🌞"))
}
