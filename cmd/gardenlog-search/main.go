// gardenlog-search runs one AI-assisted search over a journal snapshot.
//
// It stands in for the web layer that owns entry retrieval: entries are
// loaded from a JSON file, the query comes from the command line, and the
// result envelope is printed as JSON on stdout.
//
// Usage:
//
//	OPENROUTER_API_KEY=... gardenlog-search -entries entries.json -query "when did I water the tomatoes?"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gardenlog/gardenlog/internal/config"
	"github.com/gardenlog/gardenlog/internal/openrouter"
	"github.com/gardenlog/gardenlog/internal/search"
	"github.com/gardenlog/gardenlog/internal/telemetry"
	"github.com/gardenlog/gardenlog/pkg/models"
)

func main() {
	entriesPath := flag.String("entries", "", "path to a JSON file holding the journal entry snapshot")
	query := flag.String("query", "", "search query")
	flag.Parse()

	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *entriesPath == "" || *query == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	ctx := context.Background()
	defer shutdown(ctx)

	client, err := openrouter.NewClient(openrouter.Config{
		APIKey:             cfg.OpenRouter.APIKey,
		BaseURL:            cfg.OpenRouter.BaseURL,
		DefaultModel:       cfg.OpenRouter.DefaultModel,
		DefaultTemperature: cfg.OpenRouter.DefaultTemperature,
		Timeout:            cfg.OpenRouter.Timeout,
		MaxRetries:         cfg.OpenRouter.MaxRetries,
		AppURL:             cfg.OpenRouter.AppURL,
		AppName:            cfg.OpenRouter.AppName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build OpenRouter client")
	}

	entries, err := loadEntries(*entriesPath)
	if err != nil {
		log.Fatal().Str("path", *entriesPath).Err(err).Msg("Failed to load entries snapshot")
	}

	log.Info().
		Int("entries", len(entries)).
		Str("model", cfg.Search.Model).
		Msg("🌱 Running journal search")

	svc := search.NewService(client, search.WithModel(cfg.Search.Model))
	result := svc.Search(ctx, *query, entries)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
}

// loadEntries reads the snapshot file. Dates use the "2006-01-02" wire
// format rather than RFC 3339, so decode through a shim type.
func loadEntries(path string) ([]models.JournalEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wire []struct {
		ID        int64  `json:"id"`
		Title     string `json:"title"`
		Content   string `json:"content"`
		EntryDate string `json:"entry_date"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}

	entries := make([]models.JournalEntry, 0, len(wire))
	for _, w := range wire {
		date, err := time.Parse(models.EntryDateFormat, w.EntryDate)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.JournalEntry{
			ID:        w.ID,
			Title:     w.Title,
			Content:   w.Content,
			EntryDate: date,
		})
	}
	return entries, nil
}
