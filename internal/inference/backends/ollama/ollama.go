// Package ollama implements the local backend. It tries an ordered list of
// base addresses and moves to the next one on any non-cancellation failure.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/carelingo/carelingo/internal/inference/backends/restutil"
	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/internal/inference/registry"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	loopbackBaseURL    = "http://127.0.0.1:11434"
	defaultModel       = "mistral"
	defaultTemperature = 0.1
	defaultMaxTokens   = 1024
)

func init() {
	registry.Local.Register("ollama", func(config map[string]string) (engine.ChatBackend, error) {
		return New(config)
	})
}

// Client is an Ollama /api/chat client bound to candidate addresses.
type Client struct {
	candidates  []string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

var _ engine.ChatBackend = (*Client)(nil)

// New builds a client from a config map. Recognised keys: base_url,
// fallback_urls (comma separated), model, temperature, max_tokens.
func New(config map[string]string) (*Client, error) {
	c := &Client{
		model:       defaultModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		httpClient:  restutil.DefaultClient,
	}
	if m := strings.TrimSpace(config["model"]); m != "" {
		c.model = m
	}

	primary := strings.TrimSpace(config["base_url"])
	if primary == "" {
		primary = defaultBaseURL
	}
	fallbacks := loopbackBaseURL
	if raw, ok := config["fallback_urls"]; ok {
		fallbacks = raw
	}
	c.candidates = candidateList(primary, strings.Split(fallbacks, ","))

	if raw := strings.TrimSpace(config["temperature"]); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("ollama: invalid temperature %q: %w", raw, err)
		}
		c.temperature = t
	}
	if raw := strings.TrimSpace(config["max_tokens"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("ollama: invalid max_tokens %q", raw)
		}
		c.maxTokens = n
	}
	return c, nil
}

func candidateList(primary string, fallbacks []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range append([]string{primary}, fallbacks...) {
		u := strings.TrimRight(strings.TrimSpace(raw), "/")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// WithHTTPClient replaces the HTTP client; used by tests.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.httpClient = client
	}
	return c
}

func (c *Client) Name() string {
	return "ollama"
}

// Candidates returns the addresses in the order they are tried.
func (c *Client) Candidates() []string {
	out := make([]string, len(c.candidates))
	copy(out, c.candidates)
	return out
}

// Chat tries each candidate in order. Cancellation and deadline errors are
// returned immediately; any other failure advances to the next address.
func (c *Client) Chat(ctx context.Context, req engine.ChatRequest) (string, error) {
	stream := false
	body := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: engine.RoleSystem, Content: req.System},
			{Role: engine.RoleUser, Content: req.User},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	}
	if req.Structured {
		body.Format = "json"
	}

	var lastErr error
	for _, baseURL := range c.candidates {
		var resp chatResponse
		err := restutil.DoJSON(ctx, c.httpClient, "ollama", http.MethodPost, baseURL+"/api/chat", nil, body, &resp)
		if err == nil {
			return strings.TrimSpace(resp.Message.Content), nil
		}
		if engine.IsCancellation(err) || ctx.Err() != nil {
			return "", err
		}
		slog.WarnContext(ctx, "ollama: candidate failed",
			slog.String("base_url", baseURL),
			slog.String("error", err.Error()),
		)
		lastErr = err
	}

	if lastErr == nil {
		return "", engine.ErrLocalUnavailable
	}
	return "", fmt.Errorf("%w: %v", engine.ErrLocalUnavailable, lastErr)
}
