// Package inference chooses between the hosted and local chat backends for
// each request and bounds every call with a deadline.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/internal/inference/registry"
)

// DefaultDeadline bounds each inference call.
const DefaultDeadline = 60 * time.Second

// Route names which backend serves a request.
type Route string

const (
	RouteHosted Route = "hosted"
	RouteLocal  Route = "local"
)

// Config is built once at process start and never mutated.
type Config struct {
	HostedBackend      string
	HostedAPIKey       string
	HostedBaseURL      string
	HostedModel        string
	TranscriptionModel string

	LocalBackend      string
	LocalBaseURL      string
	LocalFallbackURLs []string
	LocalModel        string
	LocalMaxTokens    int

	// Temperature is sent to both backends when set, including 0. Nil keeps
	// each backend's default.
	Temperature *float64
	Deadline    time.Duration
}

// InferRequest is one chat call.
type InferRequest struct {
	System      string
	User        string
	Structured  bool
	PreferLocal bool
	// Deadline overrides Config.Deadline when positive.
	Deadline time.Duration
}

// Resolver routes chat and transcription calls.
type Resolver struct {
	hosted      engine.ChatBackend
	local       engine.ChatBackend
	transcriber engine.Transcriber
	deadline    time.Duration
}

// New creates backends through the registries. The hosted backend and the
// transcriber exist only when an API key is configured.
func New(cfg Config) (*Resolver, error) {
	r := &Resolver{deadline: cfg.Deadline}
	if r.deadline <= 0 {
		r.deadline = DefaultDeadline
	}

	hostedName := orDefault(cfg.HostedBackend, "groq")
	if strings.TrimSpace(cfg.HostedAPIKey) != "" {
		hostedConfig := map[string]string{
			"api_key":     cfg.HostedAPIKey,
			"base_url":    cfg.HostedBaseURL,
			"model":       cfg.HostedModel,
			"audio_model": cfg.TranscriptionModel,
			"temperature": formatFloat(cfg.Temperature),
		}
		hosted, err := registry.Hosted.Create(hostedName, hostedConfig)
		if err != nil {
			return nil, fmt.Errorf("create hosted backend %q: %w", hostedName, err)
		}
		r.hosted = hosted

		if registry.Speech.Has(hostedName) {
			transcriber, err := registry.Speech.Create(hostedName, hostedConfig)
			if err != nil {
				return nil, fmt.Errorf("create transcriber %q: %w", hostedName, err)
			}
			r.transcriber = transcriber
		}
	}

	localName := orDefault(cfg.LocalBackend, "ollama")
	localConfig := map[string]string{
		"base_url":    cfg.LocalBaseURL,
		"model":       cfg.LocalModel,
		"temperature": formatFloat(cfg.Temperature),
	}
	if cfg.LocalFallbackURLs != nil {
		localConfig["fallback_urls"] = strings.Join(cfg.LocalFallbackURLs, ",")
	}
	if cfg.LocalMaxTokens > 0 {
		localConfig["max_tokens"] = strconv.Itoa(cfg.LocalMaxTokens)
	}
	local, err := registry.Local.Create(localName, localConfig)
	if err != nil {
		return nil, fmt.Errorf("create local backend %q: %w", localName, err)
	}
	r.local = local

	return r, nil
}

// NewWithBackends assembles a resolver from pre-built backends (for testing).
// hosted and transcriber may be nil.
func NewWithBackends(hosted, local engine.ChatBackend, transcriber engine.Transcriber, deadline time.Duration) *Resolver {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Resolver{hosted: hosted, local: local, transcriber: transcriber, deadline: deadline}
}

// Route reports which backend a request would use. Selection happens before
// the call; there is no failover between hosted and local.
func (r *Resolver) Route(preferLocal bool) Route {
	if !preferLocal && r.hosted != nil {
		return RouteHosted
	}
	return RouteLocal
}

// HasHosted reports whether a hosted credential was configured.
func (r *Resolver) HasHosted() bool {
	return r.hosted != nil
}

// Infer performs one chat call on the selected backend, bounded by the
// deadline. Expiry surfaces as engine.ErrTimeout.
func (r *Resolver) Infer(ctx context.Context, req InferRequest) (string, error) {
	deadline := r.deadline
	if req.Deadline > 0 {
		deadline = req.Deadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	route := r.Route(req.PreferLocal)
	backend := r.local
	if route == RouteHosted {
		backend = r.hosted
	}
	if backend == nil {
		return "", fmt.Errorf("no %s backend configured", route)
	}

	start := time.Now()
	text, err := backend.Chat(ctx, engine.ChatRequest{
		System:     req.System,
		User:       req.User,
		Structured: req.Structured,
	})
	attrs := []any{
		slog.String("route", string(route)),
		slog.String("backend", backend.Name()),
		slog.Bool("structured", req.Structured),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		err = timeoutAware(ctx, err)
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.WarnContext(ctx, "inference: call failed", attrs...)
		return "", err
	}
	slog.DebugContext(ctx, "inference: call ok", attrs...)
	return text, nil
}

// Transcribe sends audio to the hosted speech-to-text backend under the same
// deadline. There is no local transcription path.
func (r *Resolver) Transcribe(ctx context.Context, audio engine.Audio) (string, error) {
	if r.transcriber == nil {
		return "", engine.ErrNoTranscriber
	}
	ctx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	text, err := r.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return "", timeoutAware(ctx, err)
	}
	return text, nil
}

// timeoutAware tags errors caused by our own deadline so callers can tell a
// timeout from an explicit cancellation.
func timeoutAware(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, engine.ErrTimeout) {
		return fmt.Errorf("%w: %w", engine.ErrTimeout, err)
	}
	return err
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
