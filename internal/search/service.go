// Package search implements AI-assisted search over a journal-entry
// snapshot: a relevance gate, an entry selector and a summary stage run on
// top of the OpenRouter client, with a deterministic keyword fallback
// whenever any AI stage misbehaves.
package search

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/gardenlog/gardenlog/internal/openrouter"
	"github.com/gardenlog/gardenlog/pkg/models"
)

var tracer = otel.Tracer("gardenlog/search")

// ChatCompleter is the slice of the OpenRouter client the pipeline consumes.
// *openrouter.Client satisfies it.
type ChatCompleter interface {
	ChatStructured(ctx context.Context, messages []openrouter.Message, model, schemaName string, schema map[string]any, parameters map[string]any) (map[string]any, error)
	ChatSimple(ctx context.Context, userMessage, systemMessage, model string) (string, error)
}

const (
	// rejectedMessage is the only error a caller ever sees from Search.
	rejectedMessage = "Please ask questions related to your gardening journal."
	// noMatchesSummary is returned when the selector finds nothing.
	noMatchesSummary = "I couldn't find any journal entries matching your query."
)

// Service sequences the search pipeline. Stateless across calls; safe for
// concurrent use.
type Service struct {
	chat  ChatCompleter
	model string

	// validationFailOpen lets queries through when the relevance gate itself
	// errors. The gate is an optional safety layer, not a hard dependency,
	// so a degraded model service must not block legitimate searches.
	validationFailOpen bool
}

// Option configures a Service.
type Option func(*Service)

// WithModel overrides the model used by all three pipeline stages.
func WithModel(model string) Option {
	return func(s *Service) { s.model = model }
}

// NewService builds the search pipeline on top of the given chat client.
func NewService(chat ChatCompleter, opts ...Option) *Service {
	s := &Service{
		chat:               chat,
		model:              openrouter.DefaultModel,
		validationFailOpen: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the pipeline over a snapshot of entries and always returns a
// usable envelope; it never returns an error. AI-stage failures divert to
// the keyword fallback, and only an explicit out-of-domain rejection from
// the relevance gate surfaces as success=false.
func (s *Service) Search(ctx context.Context, query string, entries []models.JournalEntry) models.SearchResult {
	ctx, span := tracer.Start(ctx, "search.pipeline")
	defer span.End()

	logger := log.With().
		Str("search_id", uuid.New().String()).
		Logger()

	if !s.checkRelevance(ctx, logger, query) {
		logger.Info().Str("query", query).Msg("Query rejected as out of domain")
		return models.SearchResult{
			Success: false,
			Entries: []models.SearchEntry{},
			Summary: "",
			Count:   0,
			Error:   rejectedMessage,
		}
	}

	selected, err := s.selectEntries(ctx, query, entries)
	if err != nil {
		logger.Error().Str("query", query).Err(err).Msg("AI search failed, falling back to basic search")
		return FallbackSearch(query, entries)
	}

	if len(selected) == 0 {
		return models.SearchResult{
			Success: true,
			Entries: []models.SearchEntry{},
			Summary: noMatchesSummary,
			Count:   0,
		}
	}

	summary, err := s.summarize(ctx, query, selected)
	if err != nil {
		logger.Error().Str("query", query).Err(err).Msg("Summary generation failed, falling back to basic search")
		return FallbackSearch(query, entries)
	}

	return models.SearchResult{
		Success: true,
		Entries: selected,
		Summary: summary,
		Count:   len(selected),
	}
}
