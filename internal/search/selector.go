package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gardenlog/gardenlog/internal/openrouter"
	"github.com/gardenlog/gardenlog/pkg/models"
)

// The entry selector asks the model which entries in the snapshot are
// relevant to the query. Unlike the relevance gate it does not fail open:
// any client error propagates so the orchestrator can divert to fallback.

const selectorSystemPrompt = `You are a helpful assistant for a gardening journal application.
The user will provide a search query and their journal entries.
Your job is to identify which entries are relevant to their query.

Return the IDs of ALL relevant entries. Be inclusive rather than exclusive.
If unsure whether an entry is relevant, include it.`

var selectorSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"relevant_entry_ids": map[string]any{
			"type":        "array",
			"description": "IDs of journal entries that are relevant to the query",
			"items": map[string]any{
				"type": "integer",
			},
		},
		"reasoning": map[string]any{
			"type":        "string",
			"description": "Brief explanation of why these entries were selected",
		},
	},
	"required":             []string{"relevant_entry_ids", "reasoning"},
	"additionalProperties": false,
}

// entryContext is the per-entry shape shown to the model.
type entryContext struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// selectEntries asks the model for the relevant entry ids and filters the
// snapshot down to them, preserving snapshot order. Ids the model invents
// that are not in the snapshot are silently ignored.
func (s *Service) selectEntries(ctx context.Context, query string, entries []models.JournalEntry) ([]models.SearchEntry, error) {
	ctx, span := tracer.Start(ctx, "search.select_entries")
	defer span.End()

	entriesContext := make([]entryContext, 0, len(entries))
	for _, e := range entries {
		entriesContext = append(entriesContext, entryContext{
			ID:      e.ID,
			Title:   e.Title,
			Content: e.Content,
			Date:    e.EntryDate.Format(models.EntryDateFormat),
		})
	}
	encoded, err := json.MarshalIndent(entriesContext, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode entries context: %w", err)
	}

	messages := []openrouter.Message{
		{Role: openrouter.RoleSystem, Content: selectorSystemPrompt},
		{Role: openrouter.RoleUser, Content: fmt.Sprintf("Search Query: %q\n\nJournal Entries:\n%s", query, encoded)},
	}

	resp, err := s.chat.ChatStructured(ctx, messages, s.model, "entry_search", selectorSchema, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	relevant := idSet(resp["relevant_entry_ids"])
	selected := make([]models.SearchEntry, 0, len(relevant))
	for _, e := range entries {
		if relevant[e.ID] {
			selected = append(selected, models.FormatEntry(e))
		}
	}
	return selected, nil
}

// idSet coerces the decoded relevant_entry_ids value into a set. JSON
// numbers decode as float64; anything non-numeric is skipped.
func idSet(v any) map[int64]bool {
	ids := make(map[int64]bool)
	raw, _ := v.([]any)
	for _, item := range raw {
		switch n := item.(type) {
		case float64:
			ids[int64(n)] = true
		case int64:
			ids[n] = true
		case int:
			ids[int64(n)] = true
		}
	}
	return ids
}
