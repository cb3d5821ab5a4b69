package model

import (
	"strings"
	"time"
)

// Priority is stored as its upper-case tag ("LOW", "MEDIUM", "HIGH").
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

var priorityValues = map[string]Priority{
	"LOW":    PriorityLow,
	"MEDIUM": PriorityMedium,
	"HIGH":   PriorityHigh,
}

// ParsePriority maps a stored tag back to a Priority. Unknown or empty tags
// yield PriorityMedium; it never fails.
func ParsePriority(tag string) Priority {
	if p, ok := priorityValues[strings.ToUpper(strings.TrimSpace(tag))]; ok {
		return p
	}
	return PriorityMedium
}

func (p Priority) String() string { return string(p) }

// Category is stored as its upper-case tag.
type Category string

const (
	CategoryWork  Category = "WORK"
	CategoryStudy Category = "STUDY"
	CategoryHobby Category = "HOBBY"
	CategoryOther Category = "OTHER"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryWork, CategoryStudy, CategoryHobby, CategoryOther}

var categoryValues = map[string]Category{
	"WORK":  CategoryWork,
	"STUDY": CategoryStudy,
	"HOBBY": CategoryHobby,
	"OTHER": CategoryOther,
}

// ParseCategory maps a stored tag back to a Category, falling back to
// CategoryOther for anything unrecognized.
func ParseCategory(tag string) Category {
	if c, ok := categoryValues[strings.ToUpper(strings.TrimSpace(tag))]; ok {
		return c
	}
	return CategoryOther
}

func (c Category) String() string { return string(c) }

// Item is a single todo owned by one user. ID is empty until the collection
// has accepted the create.
type Item struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Priority  Priority  `json:"priority"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Field names accepted by targeted item updates.
const (
	FieldCompleted = "completed"
	FieldTitle     = "title"
	FieldPriority  = "priority"
	FieldCategory  = "category"
)

// Statistics are headline counts over a user's full item list.
type Statistics struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Progress  float64 `json:"progress"`
}

// ComputeStatistics counts items and completion progress. Progress is 0 for
// an empty list.
func ComputeStatistics(items []Item) Statistics {
	var s Statistics
	s.Total = len(items)
	for _, it := range items {
		if it.Completed {
			s.Completed++
		}
	}
	if s.Total > 0 {
		s.Progress = float64(s.Completed) / float64(s.Total)
	}
	return s
}
