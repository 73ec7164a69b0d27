package search_test

import (
	"context"
	"strings"
	"testing"

	"github.com/gardenlog/gardenlog/internal/openrouter"
	"github.com/gardenlog/gardenlog/internal/search"
)

// These tests pin down what each stage actually shows the model.

func TestGatePrompt(t *testing.T) {
	stub := &stubChat{
		gateResp:     allowGate(),
		selectorResp: ids(),
	}
	search.NewService(stub).Search(context.Background(), "when did I fertilize?", snapshot())

	if len(stub.gateMessages) != 2 {
		t.Fatalf("gate sent %d messages, want 2", len(stub.gateMessages))
	}
	system := stub.gateMessages[0]
	if system.Role != openrouter.RoleSystem {
		t.Errorf("first gate message role = %q, want system", system.Role)
	}
	if !strings.Contains(system.Content, "security guard") {
		t.Errorf("gate system prompt missing its framing: %q", system.Content)
	}
	user := stub.gateMessages[1]
	if user.Role != openrouter.RoleUser {
		t.Errorf("second gate message role = %q, want user", user.Role)
	}
	if !strings.Contains(user.Content, "when did I fertilize?") {
		t.Errorf("gate user message missing the query: %q", user.Content)
	}
}

func TestSelectorPromptCarriesSnapshot(t *testing.T) {
	stub := &stubChat{
		gateResp:     allowGate(),
		selectorResp: ids(),
	}
	search.NewService(stub).Search(context.Background(), "tomato", snapshot())

	if len(stub.selectorMessages) != 2 {
		t.Fatalf("selector sent %d messages, want 2", len(stub.selectorMessages))
	}
	if !strings.Contains(stub.selectorMessages[0].Content, "inclusive") {
		t.Errorf("selector system prompt missing the inclusive instruction: %q", stub.selectorMessages[0].Content)
	}

	user := stub.selectorMessages[1].Content
	for _, want := range []string{`"tomato"`, "Tomatoes", "planted seedlings", "2025-05-01", `"id": 1`} {
		if !strings.Contains(user, want) {
			t.Errorf("selector user message missing %q:\n%s", want, user)
		}
	}
}

func TestSummaryPromptCarriesSelectedEntries(t *testing.T) {
	stub := &stubChat{
		gateResp:     allowGate(),
		selectorResp: ids(1, 3),
		summary:      "done",
	}
	search.NewService(stub).Search(context.Background(), "tomato", snapshot())

	if !strings.Contains(stub.summarySystem, "natural language summary") {
		t.Errorf("summary system prompt missing its framing: %q", stub.summarySystem)
	}
	for _, want := range []string{`"tomato"`, "May 1, 2025", "July 20, 2025", "first ripe tomato"} {
		if !strings.Contains(stub.summaryUser, want) {
			t.Errorf("summary user message missing %q:\n%s", want, stub.summaryUser)
		}
	}
	// The unselected rose entry must not leak into the summary context.
	if strings.Contains(stub.summaryUser, "pruned the bushes") {
		t.Errorf("summary user message contains an unselected entry:\n%s", stub.summaryUser)
	}
}
