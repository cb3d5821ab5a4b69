package model_test

import (
	"testing"

	"github.com/dukerupert/listkeep/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected model.Priority
	}{
		{"low", "LOW", model.PriorityLow},
		{"medium", "MEDIUM", model.PriorityMedium},
		{"high", "HIGH", model.PriorityHigh},
		{"lower case", "high", model.PriorityHigh},
		{"padded", " low ", model.PriorityLow},
		{"unknown falls back", "URGENT", model.PriorityMedium},
		{"empty falls back", "", model.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, model.ParsePriority(tt.input))
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Category
	}{
		{"WORK", model.CategoryWork},
		{"study", model.CategoryStudy},
		{"Hobby", model.CategoryHobby},
		{"OTHER", model.CategoryOther},
		{"KERJA", model.CategoryOther},
		{"", model.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, model.ParseCategory(tt.input))
		})
	}
}

func TestComputeStatistics(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, model.Statistics{}, model.ComputeStatistics(nil))
	})

	t.Run("half done", func(t *testing.T) {
		items := []model.Item{{ID: "1"}, {ID: "2", Completed: true}}
		s := model.ComputeStatistics(items)
		assert.Equal(t, 2, s.Total)
		assert.Equal(t, 1, s.Completed)
		assert.InDelta(t, 0.5, s.Progress, 1e-9)
	})

	t.Run("all done", func(t *testing.T) {
		items := []model.Item{{Completed: true}, {Completed: true}, {Completed: true}}
		s := model.ComputeStatistics(items)
		assert.Equal(t, 3, s.Completed)
		assert.InDelta(t, 1.0, s.Progress, 1e-9)
	})
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Filter
		wantErr  bool
	}{
		{"", model.AllFilter(), false},
		{"all", model.AllFilter(), false},
		{"active", model.ActiveFilter(), false},
		{"work", model.CategoryFilter(model.CategoryWork), false},
		{"HOBBY", model.CategoryFilter(model.CategoryHobby), false},
		{"done", model.Filter{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := model.ParseFilter(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestFilterItems(t *testing.T) {
	items := []model.Item{
		{ID: "1", Title: "Buy milk", Category: model.CategoryWork},
		{ID: "2", Title: "Read book", Completed: true, Category: model.CategoryHobby},
		{ID: "3", Title: "buy stamps", Category: model.CategoryHobby},
	}

	ids := func(items []model.Item) []string {
		out := []string{}
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids(model.FilterItems(items, "", model.AllFilter())))
	assert.Equal(t, []string{"1", "2", "3"}, ids(model.FilterItems(items, "   ", model.AllFilter())))
	assert.Equal(t, []string{"1", "3"}, ids(model.FilterItems(items, "BUY", model.AllFilter())))
	assert.Equal(t, []string{"1", "3"}, ids(model.FilterItems(items, "", model.ActiveFilter())))
	assert.Equal(t, []string{"2", "3"}, ids(model.FilterItems(items, "", model.CategoryFilter(model.CategoryHobby))))
	assert.Equal(t, []string{"3"}, ids(model.FilterItems(items, "buy", model.CategoryFilter(model.CategoryHobby))))
	assert.Empty(t, model.FilterItems(items, "", model.CategoryFilter(model.CategoryStudy)))
}

func TestFiltersCycle(t *testing.T) {
	fs := model.Filters()
	require.Len(t, fs, 2+len(model.Categories))
	assert.Equal(t, model.AllFilter(), fs[0])
	assert.Equal(t, model.ActiveFilter(), fs[1])
	assert.Equal(t, "work", fs[2].String())
}
