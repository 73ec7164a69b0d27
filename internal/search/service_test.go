package search_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gardenlog/gardenlog/internal/openrouter"
	"github.com/gardenlog/gardenlog/internal/search"
	"github.com/gardenlog/gardenlog/pkg/models"
)

// stubChat scripts the pipeline's model calls. Structured calls dispatch on
// schema name ("query_validation" for the gate, "entry_search" for the
// selector); simple calls are the summary stage.
type stubChat struct {
	gateResp     map[string]any
	gateErr      error
	selectorResp map[string]any
	selectorErr  error
	summary      string
	summaryErr   error

	gateCalls     int32
	selectorCalls int32
	summaryCalls  int32

	gateMessages     []openrouter.Message
	selectorMessages []openrouter.Message
	summaryUser      string
	summarySystem    string
}

func (s *stubChat) ChatStructured(ctx context.Context, messages []openrouter.Message, model, schemaName string, schema map[string]any, parameters map[string]any) (map[string]any, error) {
	switch schemaName {
	case "query_validation":
		atomic.AddInt32(&s.gateCalls, 1)
		s.gateMessages = messages
		return s.gateResp, s.gateErr
	case "entry_search":
		atomic.AddInt32(&s.selectorCalls, 1)
		s.selectorMessages = messages
		return s.selectorResp, s.selectorErr
	default:
		return nil, errors.New("unexpected schema name: " + schemaName)
	}
}

func (s *stubChat) ChatSimple(ctx context.Context, userMessage, systemMessage, model string) (string, error) {
	atomic.AddInt32(&s.summaryCalls, 1)
	s.summaryUser = userMessage
	s.summarySystem = systemMessage
	return s.summary, s.summaryErr
}

func allowGate() map[string]any {
	return map[string]any{"is_valid": true, "reason": "gardening query"}
}

// ids mimics a decoded JSON array of entry ids.
func ids(values ...int64) map[string]any {
	raw := make([]any, 0, len(values))
	for _, v := range values {
		raw = append(raw, float64(v))
	}
	return map[string]any{"relevant_entry_ids": raw, "reasoning": "looked relevant"}
}

func snapshot() []models.JournalEntry {
	return []models.JournalEntry{
		mkEntry(1, "Tomatoes", "planted seedlings", "2025-05-01"),
		mkEntry(2, "Roses", "pruned the bushes", "2025-05-10"),
		mkEntry(3, "Tomatoes again", "first ripe tomato", "2025-07-20"),
	}
}

// ─── Rejection ───────────────────────────────────────────────

func TestSearch_RejectedQuery(t *testing.T) {
	stub := &stubChat{
		gateResp: map[string]any{"is_valid": false, "reason": "not about gardening"},
	}
	svc := search.NewService(stub)

	result := svc.Search(context.Background(), "what is the capital of France?", snapshot())

	if result.Success {
		t.Error("Search() Success = true, want false for rejected query")
	}
	if result.Count != 0 || len(result.Entries) != 0 {
		t.Errorf("rejected result carries entries: count=%d entries=%v", result.Count, result.Entries)
	}
	if result.Error != "Please ask questions related to your gardening journal." {
		t.Errorf("Error = %q, want the rejection message", result.Error)
	}
	if n := atomic.LoadInt32(&stub.selectorCalls); n != 0 {
		t.Errorf("selector was called %d times after rejection, want 0", n)
	}
	if n := atomic.LoadInt32(&stub.summaryCalls); n != 0 {
		t.Errorf("summarizer was called %d times after rejection, want 0", n)
	}
}

// ─── Fail-Open Gate ──────────────────────────────────────────

func TestSearch_GateFailureFailsOpen(t *testing.T) {
	stub := &stubChat{
		gateErr:      &openrouter.Error{Kind: openrouter.KindNetwork, Message: "network error: refused"},
		selectorResp: ids(1),
		summary:      "You planted tomato seedlings on May 1, 2025.",
	}
	svc := search.NewService(stub)

	result := svc.Search(context.Background(), "when did I plant tomatoes?", snapshot())

	if n := atomic.LoadInt32(&stub.selectorCalls); n != 1 {
		t.Fatalf("selector was called %d times, want 1 (gate errors must fail open)", n)
	}
	if !result.Success {
		t.Errorf("Search() Success = false, want true; error = %q", result.Error)
	}
	if result.Count != 1 {
		t.Errorf("Count = %d, want 1", result.Count)
	}
}

// ─── Selection ───────────────────────────────────────────────

func TestSearch_SelectsAndSummarizes(t *testing.T) {
	stub := &stubChat{
		gateResp:     allowGate(),
		selectorResp: ids(3, 1, 99), // 99 is not in the snapshot
		summary:      "Tomatoes were planted May 1 and first ripened July 20.",
	}
	svc := search.NewService(stub, search.WithModel("openai/gpt-4o-mini"))

	result := svc.Search(context.Background(), "tell me about my tomatoes", snapshot())

	if !result.Success {
		t.Fatalf("Search() Success = false; error = %q", result.Error)
	}
	if result.Count != 2 {
		t.Fatalf("Count = %d, want 2 (unknown id 99 silently ignored)", result.Count)
	}
	// Snapshot order is preserved regardless of the order the model returned.
	if result.Entries[0].ID != 1 || result.Entries[1].ID != 3 {
		t.Errorf("entry ids = %d, %d; want 1, 3", result.Entries[0].ID, result.Entries[1].ID)
	}
	if result.Entries[0].FormattedDate != "May 1, 2025" {
		t.Errorf("FormattedDate = %q, want %q", result.Entries[0].FormattedDate, "May 1, 2025")
	}
	if result.Summary != stub.summary {
		t.Errorf("Summary = %q, want the generated summary", result.Summary)
	}
	if result.Error != "" {
		t.Errorf("Error = %q, want empty on success", result.Error)
	}
}

func TestSearch_NoMatches(t *testing.T) {
	stub := &stubChat{
		gateResp:     allowGate(),
		selectorResp: ids(), // model found nothing relevant
	}
	svc := search.NewService(stub)

	result := svc.Search(context.Background(), "did I ever grow orchids?", snapshot())

	if !result.Success {
		t.Error("Search() Success = false, want true for an empty selection")
	}
	if result.Count != 0 || len(result.Entries) != 0 {
		t.Errorf("Count = %d, Entries = %v; want empty", result.Count, result.Entries)
	}
	if !strings.Contains(result.Summary, "couldn't find") {
		t.Errorf("Summary = %q, want the no-matches message", result.Summary)
	}
	if n := atomic.LoadInt32(&stub.summaryCalls); n != 0 {
		t.Errorf("summarizer was called %d times with nothing selected, want 0", n)
	}
}

// ─── Fallback Diversion ──────────────────────────────────────

func TestSearch_SelectorErrorFallsBack(t *testing.T) {
	stub := &stubChat{
		gateResp:    allowGate(),
		selectorErr: &openrouter.Error{Kind: openrouter.KindAPI, StatusCode: 500, Message: "API error: boom"},
	}
	svc := search.NewService(stub)

	query := "tomato"
	entries := snapshot()
	result := svc.Search(context.Background(), query, entries)

	want := search.FallbackSearch(query, entries)
	if !reflect.DeepEqual(result, want) {
		t.Errorf("Search() under selector failure = %+v, want exactly the fallback result %+v", result, want)
	}
	if !result.Success {
		t.Error("fallback result Success = false, want true (AI errors are never surfaced)")
	}
	if result.Error != "" {
		t.Errorf("fallback result Error = %q, want empty", result.Error)
	}
}

func TestSearch_SummarizerErrorFallsBack(t *testing.T) {
	stub := &stubChat{
		gateResp:     allowGate(),
		selectorResp: ids(1, 3),
		summaryErr:   &openrouter.Error{Kind: openrouter.KindRateLimit, StatusCode: 429, Message: "rate limit exceeded"},
	}
	svc := search.NewService(stub)

	query := "tomato"
	entries := snapshot()
	result := svc.Search(context.Background(), query, entries)

	want := search.FallbackSearch(query, entries)
	if !reflect.DeepEqual(result, want) {
		t.Errorf("Search() under summarizer failure = %+v, want the fallback result %+v", result, want)
	}
}

func TestSearch_FallbackSearchesFullSnapshot(t *testing.T) {
	// The fallback must scan the original snapshot, not the AI-selected
	// subset: the selector picked only entry 2, but the keyword matches
	// entries 1 and 3.
	stub := &stubChat{
		gateResp:     allowGate(),
		selectorResp: ids(2),
		summaryErr:   errors.New("model unavailable"),
	}
	svc := search.NewService(stub)

	result := svc.Search(context.Background(), "tomato", snapshot())

	if result.Count != 2 {
		t.Fatalf("Count = %d, want 2 (fallback runs over the full snapshot)", result.Count)
	}
	if result.Entries[0].ID != 1 || result.Entries[1].ID != 3 {
		t.Errorf("entry ids = %d, %d; want 1, 3", result.Entries[0].ID, result.Entries[1].ID)
	}
}

// ─── Envelope Invariant ──────────────────────────────────────

func TestSearch_CountAlwaysMatchesEntries(t *testing.T) {
	cases := []struct {
		name string
		stub *stubChat
	}{
		{"rejected", &stubChat{gateResp: map[string]any{"is_valid": false}}},
		{"no matches", &stubChat{gateResp: allowGate(), selectorResp: ids()}},
		{"success", &stubChat{gateResp: allowGate(), selectorResp: ids(1, 2, 3), summary: "s"}},
		{"fallback", &stubChat{gateResp: allowGate(), selectorErr: errors.New("down")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := search.NewService(tc.stub).Search(context.Background(), "tomato", snapshot())
			if result.Count != len(result.Entries) {
				t.Errorf("Count = %d but len(Entries) = %d", result.Count, len(result.Entries))
			}
		})
	}
}
