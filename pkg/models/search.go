package models

import "time"

// ── Journal Entries ──────────────────────────────────────────

// EntryDateFormat is the wire format for entry dates.
const EntryDateFormat = "2006-01-02"

// FormattedDateFormat is the human-readable date format used in search
// results and summary prompts ("October 8, 2025").
const FormattedDateFormat = "January 2, 2006"

// JournalEntry is a read-only snapshot of one journal entry. The persistence
// layer owns these; search only ever sees a per-call copy.
type JournalEntry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	EntryDate time.Time `json:"entry_date"`
}

// SearchEntry is the formatted shape of an entry inside a search result.
type SearchEntry struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	EntryDate     string `json:"entry_date"`
	FormattedDate string `json:"formatted_date"`
}

// FormatEntry converts a snapshot entry into its result shape.
func FormatEntry(e JournalEntry) SearchEntry {
	return SearchEntry{
		ID:            e.ID,
		Title:         e.Title,
		Content:       e.Content,
		EntryDate:     e.EntryDate.Format(EntryDateFormat),
		FormattedDate: e.EntryDate.Format(FormattedDateFormat),
	}
}

// ── Search Result Envelope ───────────────────────────────────

// SearchResult is the envelope returned for every search call. It is built
// once and never mutated after return; Count always equals len(Entries).
type SearchResult struct {
	Success bool          `json:"success"`
	Entries []SearchEntry `json:"entries"`
	Summary string        `json:"summary"`
	Count   int           `json:"count"`
	Error   string        `json:"error,omitempty"`
}
