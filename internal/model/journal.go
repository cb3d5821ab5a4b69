package model

import "time"

// DefaultMood is used when a journal entry is saved without one.
const DefaultMood = "😊"

// Moods are the moods offered when writing or filtering entries. Entries
// may carry any other string; they just cannot be picked by mood.
var Moods = []string{"😊", "🔥", "😔", "😴", "🌿", "⭐"}

// IsMood reports whether m is one of Moods.
func IsMood(m string) bool {
	for _, mood := range Moods {
		if mood == m {
			return true
		}
	}
	return false
}

type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
}

// JournalDateLayout renders entry timestamps as "02 Jan 2006 • 15:04".
const JournalDateLayout = "02 Jan 2006 • 15:04"

// FormatJournalDate formats t for display, returning "" for the zero time.
func FormatJournalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(JournalDateLayout)
}

// FilterJournal keeps the entries whose title matches query and, when mood
// is not empty, whose mood is exactly mood. Order is preserved.
func FilterJournal(entries []JournalEntry, query, mood string) []JournalEntry {
	out := make([]JournalEntry, 0, len(entries))
	for _, e := range entries {
		if !MatchesQuery(e.Title, query) {
			continue
		}
		if mood != "" && e.Mood != mood {
			continue
		}
		out = append(out, e)
	}
	return out
}
