package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/gardenlog/gardenlog/pkg/models"
)

// The summary stage turns the selected entries into a natural-language
// answer grounded in their content. Errors propagate to the orchestrator.

const summarySystemPrompt = `You are a helpful assistant for a gardening journal application.
The user has searched their journal and you will provide a natural language summary answering their question based on the relevant entries.

Be concise but informative. Directly answer their question using information from the entries.
Reference specific dates when relevant.
If the entries don't fully answer the question, acknowledge what information is available.`

// summarize generates a grounded answer to the query over the selected
// entries.
func (s *Service) summarize(ctx context.Context, query string, entries []models.SearchEntry) (string, error) {
	ctx, span := tracer.Start(ctx, "search.summarize")
	defer span.End()

	sections := make([]string, 0, len(entries))
	for _, e := range entries {
		sections = append(sections, fmt.Sprintf("Date: %s\nTitle: %s\nContent: %s", e.FormattedDate, e.Title, e.Content))
	}

	userMessage := fmt.Sprintf(
		"Question: %q\n\nRelevant Journal Entries:\n\n%s\n\nPlease provide a helpful summary answering the user's question.",
		query,
		strings.Join(sections, "\n\n---\n\n"),
	)

	summary, err := s.chat.ChatSimple(ctx, userMessage, summarySystemPrompt, s.model)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return summary, nil
}
