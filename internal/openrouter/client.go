// Package openrouter is a resilient client for the OpenRouter
// chat-completion API.
//
// It validates requests before any network I/O, retries transient failures
// with exponential backoff, enforces strict JSON-schema response contracts
// on request, and maps every failure into a closed error taxonomy
// (see errors.go).
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("gardenlog/openrouter")

// ── Request & Response Types ─────────────────────────────────

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleDeveloper Role = "developer"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation. Order is significant and preserved
// end-to-end.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the model to constrain its reply to a JSON schema.
type ResponseFormat struct {
	Type       string     `json:"type"`
	JSONSchema JSONSchema `json:"json_schema"`
}

// JSONSchema is the strict schema envelope inside a ResponseFormat.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ChatResult is the parsed reply to one chat call. Immutable once built.
// Structured is populated only when the call requested a ResponseFormat and
// the content decoded successfully.
type ChatResult struct {
	ID           string
	Model        string
	Content      string
	Structured   map[string]any
	Usage        Usage
	FinishReason string
	Raw          json.RawMessage
}

// ── Configuration ────────────────────────────────────────────

const (
	DefaultBaseURL      = "https://openrouter.ai/api/v1"
	DefaultModel        = "openai/gpt-4o-mini"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	defaultBaseInterval = time.Second
)

// Config is the construction-time configuration of a Client. It is copied at
// NewClient and never mutated afterwards, so a single client is safe to share
// across concurrent calls.
type Config struct {
	// APIKey authenticates every request. Required.
	APIKey string
	// BaseURL of the API. Defaults to the public OpenRouter endpoint.
	BaseURL string
	// DefaultModel used when a call does not name one.
	DefaultModel string
	// DefaultTemperature is merged into requests that do not set their own.
	// Zero means the API default.
	DefaultTemperature float64
	// Timeout applies per network attempt, not per call.
	Timeout time.Duration
	// MaxRetries is the total number of attempts (not extra retries).
	MaxRetries int
	// RetryBaseInterval is the first backoff wait; each subsequent wait
	// doubles. Defaults to one second.
	RetryBaseInterval time.Duration
	// AppURL and AppName populate the HTTP-Referer and X-Title headers
	// OpenRouter uses for app attribution.
	AppURL  string
	AppName string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DefaultModel == "" {
		c.DefaultModel = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBaseInterval <= 0 {
		c.RetryBaseInterval = defaultBaseInterval
	}
	return c
}

// ── Client ───────────────────────────────────────────────────

// Client talks to the OpenRouter chat-completion API. Create one with
// NewClient and reuse it; all configuration is immutable after construction.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client from cfg, applying defaults for everything but
// the API key, which is required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, validationErr("API key is required")
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Chat sends a conversation to the API and returns the parsed result.
// The request is validated before any network I/O; a non-nil responseFormat
// makes the reply's content be decoded as JSON into ChatResult.Structured.
func (c *Client) Chat(ctx context.Context, messages []Message, model string, responseFormat *ResponseFormat, parameters map[string]any) (*ChatResult, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}
	if err := validateResponseFormat(responseFormat); err != nil {
		return nil, err
	}
	if err := validateParameters(parameters); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, validationErr("model cannot be empty")
	}

	payload := c.buildPayload(messages, model, responseFormat, parameters)

	ctx, span := tracer.Start(ctx, "openrouter.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("openrouter.model", model),
		attribute.Int("openrouter.message_count", len(messages)),
		attribute.Bool("openrouter.structured", responseFormat != nil),
	)

	log.Debug().
		Str("model", model).
		Int("message_count", len(messages)).
		Bool("has_response_format", responseFormat != nil).
		Msg("OpenRouter request")

	raw, err := c.sendWithRetry(ctx, "/chat/completions", payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, err := parseResult(raw, responseFormat != nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	log.Debug().
		Str("id", result.ID).
		Str("model", result.Model).
		Str("finish_reason", result.FinishReason).
		Int64("total_tokens", result.Usage.TotalTokens).
		Msg("OpenRouter response")

	return result, nil
}

// ChatSimple sends a one- or two-message conversation and returns only the
// text content. Pass systemMessage == "" to omit the system turn and
// model == "" to use the configured default.
func (c *Client) ChatSimple(ctx context.Context, userMessage, systemMessage, model string) (string, error) {
	var messages []Message
	if systemMessage != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemMessage})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userMessage})

	if model == "" {
		model = c.cfg.DefaultModel
	}

	result, err := c.Chat(ctx, messages, model, nil, nil)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// ChatStructured sends a conversation with a strict JSON-schema response
// contract and returns the decoded object. The schema must describe an
// object with a non-empty properties map.
func (c *Client) ChatStructured(ctx context.Context, messages []Message, model, schemaName string, schema map[string]any, parameters map[string]any) (map[string]any, error) {
	rf := &ResponseFormat{
		Type: "json_schema",
		JSONSchema: JSONSchema{
			Name:   schemaName,
			Strict: true,
			Schema: schema,
		},
	}

	result, err := c.Chat(ctx, messages, model, rf, parameters)
	if err != nil {
		return nil, err
	}
	if result.Structured == nil {
		return nil, &Error{Kind: KindAPI, Message: "expected structured response but got string"}
	}
	return result.Structured, nil
}

// buildPayload assembles the request body: model + messages + optional
// response_format, with tuning parameters merged in at the top level.
func (c *Client) buildPayload(messages []Message, model string, responseFormat *ResponseFormat, parameters map[string]any) map[string]any {
	payload := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if responseFormat != nil {
		payload["response_format"] = responseFormat
	}
	if c.cfg.DefaultTemperature > 0 {
		payload["temperature"] = c.cfg.DefaultTemperature
	}
	for k, v := range parameters {
		payload[k] = v
	}
	return payload
}

// ── Transport & Retry ────────────────────────────────────────

// sendWithRetry issues the request up to MaxRetries times, waiting
// 2^(attempt-1) × RetryBaseInterval between retryable failures. Terminal
// kinds (auth, rate-limit, invalid-request, model-not-supported) abort the
// loop on first occurrence.
func (c *Client) sendWithRetry(ctx context.Context, endpoint string, payload map[string]any) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		raw, err := c.send(ctx, endpoint, payload)
		if err == nil {
			return raw, nil
		}
		if e, ok := AsError(err); ok && !e.Retryable() {
			return nil, backoff.Permanent(err)
		}
		if attempt < c.cfg.MaxRetries {
			log.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Err(err).
				Msg("Retrying OpenRouter request")
		}
		return nil, err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.RetryBaseInterval
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxInterval = time.Hour
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.cfg.MaxRetries-1)), ctx)
	return backoff.RetryWithData(operation, policy)
}

// send performs one HTTP attempt and classifies any failure.
func (c *Client) send(ctx context.Context, endpoint string, payload map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, validationErr("encode payload: %v", err)
	}

	url := c.cfg.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, validationErr("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.AppURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.AppURL)
	}
	if c.cfg.AppName != "" {
		req.Header.Set("X-Title", c.cfg.AppName)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkErr(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	return nil, classifyStatus(resp.StatusCode, raw)
}

// classifyStatus maps a non-2xx response onto the error taxonomy.
func classifyStatus(status int, body []byte) *Error {
	var wire struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := "Unknown error"
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		message = wire.Error.Message
	}

	switch status {
	case http.StatusUnauthorized:
		return &Error{Kind: KindAuthentication, StatusCode: status, Message: "authentication failed: " + message}
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, StatusCode: status, Message: "rate limit exceeded: " + message}
	case http.StatusBadRequest:
		if strings.Contains(message, "does not support") {
			return &Error{Kind: KindModelNotSupported, StatusCode: status, Message: message}
		}
		return &Error{Kind: KindInvalidRequest, StatusCode: status, Message: message}
	default:
		return apiErr(status, "API error: "+message)
	}
}

// ── Response Parsing ─────────────────────────────────────────

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// parseResult decodes the raw 2xx body into a ChatResult. Missing fields
// default to zero values rather than failing; only a structured content that
// does not decode is an error.
func parseResult(raw []byte, expectJSON bool) (*ChatResult, error) {
	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &Error{Kind: KindAPI, Message: "failed to parse response body: " + err.Error(), Err: err}
	}

	result := &ChatResult{
		ID:    wire.ID,
		Model: wire.Model,
		Usage: wire.Usage,
		Raw:   json.RawMessage(raw),
	}
	if len(wire.Choices) > 0 {
		result.Content = wire.Choices[0].Message.Content
		result.FinishReason = wire.Choices[0].FinishReason
	}

	if expectJSON {
		var structured map[string]any
		if err := json.Unmarshal([]byte(result.Content), &structured); err != nil {
			return nil, &Error{Kind: KindAPI, Message: "failed to parse JSON response: " + err.Error(), Err: err}
		}
		result.Structured = structured
	}

	return result, nil
}
