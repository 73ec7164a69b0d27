package search

import (
	"fmt"
	"strings"

	"github.com/gardenlog/gardenlog/pkg/models"
)

// FallbackSearch is the deterministic safety net behind the AI pipeline: a
// case-insensitive substring match of the query against each entry's title
// and content. It is pure, total over any snapshot size including empty,
// and never fails.
func FallbackSearch(query string, entries []models.JournalEntry) models.SearchResult {
	needle := strings.ToLower(query)

	matched := make([]models.SearchEntry, 0)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), needle) ||
			strings.Contains(strings.ToLower(e.Content), needle) {
			matched = append(matched, models.FormatEntry(e))
		}
	}

	return models.SearchResult{
		Success: true,
		Entries: matched,
		Summary: basicSummary(query, len(matched)),
		Count:   len(matched),
	}
}

// basicSummary templates a summary line on the match count, quoting the
// original query verbatim.
func basicSummary(query string, count int) string {
	switch count {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Found 1 entry matching your query: %q", query)
	default:
		return fmt.Sprintf("Found %d entries matching your query: %q", count, query)
	}
}
