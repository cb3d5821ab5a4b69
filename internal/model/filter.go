package model

import (
	"fmt"
	"strings"
)

// FilterKind identifies which Filter variant is active.
type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterActive
	FilterByCategory
)

// Filter narrows a list of items. The zero value is the All filter.
// Category is only meaningful when Kind is FilterByCategory.
type Filter struct {
	Kind     FilterKind
	Category Category
}

// AllFilter keeps every item.
func AllFilter() Filter { return Filter{Kind: FilterAll} }

// ActiveFilter keeps items that are not completed.
func ActiveFilter() Filter { return Filter{Kind: FilterActive} }

// CategoryFilter keeps items in category c.
func CategoryFilter(c Category) Filter { return Filter{Kind: FilterByCategory, Category: c} }

// Match reports whether it passes the filter.
func (f Filter) Match(it Item) bool {
	switch f.Kind {
	case FilterActive:
		return !it.Completed
	case FilterByCategory:
		return it.Category == f.Category
	default:
		return true
	}
}

func (f Filter) String() string {
	switch f.Kind {
	case FilterActive:
		return "active"
	case FilterByCategory:
		return strings.ToLower(string(f.Category))
	default:
		return "all"
	}
}

// ParseFilter accepts "all", "active" or a category name.
func ParseFilter(s string) (Filter, error) {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "", "ALL":
		return AllFilter(), nil
	case "ACTIVE":
		return ActiveFilter(), nil
	default:
		if c, ok := categoryValues[v]; ok {
			return CategoryFilter(c), nil
		}
		return Filter{}, fmt.Errorf("unknown filter %q", s)
	}
}

// Filters returns All, Active and one ByCategory filter per category, the
// order a UI cycles through them.
func Filters() []Filter {
	out := []Filter{AllFilter(), ActiveFilter()}
	for _, c := range Categories {
		out = append(out, CategoryFilter(c))
	}
	return out
}

// MatchesQuery reports whether title contains query, ignoring case. A blank
// query matches everything.
func MatchesQuery(title, query string) bool {
	if strings.TrimSpace(query) == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}

// FilterItems keeps the items matching both query and filter, preserving order.
func FilterItems(items []Item, query string, f Filter) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if MatchesQuery(it.Title, query) && f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}
