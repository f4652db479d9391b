// Package translate runs the two-pass translation pipeline: an optional
// correction pass in the input language, then a structured translation pass
// whose output is repaired or degraded into a fixed result shape.
package translate

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pitabwire/util"
	"github.com/rs/xid"

	"github.com/carelingo/carelingo/internal/inference"
	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/internal/language"
	"github.com/carelingo/carelingo/internal/llmtext"
	"github.com/carelingo/carelingo/pkg/events"
)

const (
	// DefaultConfidence is used when the model does not supply one.
	DefaultConfidence = 0.95
	// DegradedConfidence marks a result built from unparseable output.
	DegradedConfidence = 0.5

	DegradedCorrected    = "Translation processing error (Raw Output)"
	MissingCorrectedText = "Medical context unavailable"
)

// Result is returned exactly once per successful request.
type Result struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Translated string  `json:"translated"`
	Confidence float64 `json:"confidence"`
	// Degraded is set when the model output could not be parsed.
	Degraded bool `json:"-"`
}

// Inferrer performs chat and transcription calls. *inference.Resolver
// satisfies it.
type Inferrer interface {
	Infer(ctx context.Context, req inference.InferRequest) (string, error)
	Transcribe(ctx context.Context, audio engine.Audio) (string, error)
}

// Emitter receives pipeline outcome events. *events.Publisher satisfies it.
type Emitter interface {
	Emit(ctx context.Context, eventType events.EventType, sessionID string, data any) error
}

type router interface {
	Route(preferLocal bool) inference.Route
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	inferrer Inferrer
	catalog  *language.Catalog
	prompts  *Prompts
	emitter  Emitter
	maxChars int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithCatalog(c *language.Catalog) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.catalog = c
		}
	}
}

func WithPrompts(p *Prompts) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.prompts = p
		}
	}
}

func WithEmitter(e Emitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

func WithMaxInputChars(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxChars = n
		}
	}
}

// New creates an orchestrator backed by inferrer.
func New(inferrer Inferrer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inferrer: inferrer,
		catalog:  language.Default(),
		prompts:  DefaultPrompts(),
		maxChars: DefaultMaxInputChars,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Catalog returns the language catalog used for display names.
func (o *Orchestrator) Catalog() *language.Catalog {
	return o.catalog
}

// Translate runs the pipeline on a text request. Every failure is returned
// as *Error; malformed model output is not a failure.
func (o *Orchestrator) Translate(ctx context.Context, req Request) (Result, error) {
	requestID := xid.New().String()
	start := time.Now()

	req, err := req.Validate(o.maxChars)
	if err != nil {
		return Result{}, o.fail(ctx, requestID, start, err)
	}

	result, err := o.run(ctx, requestID, req)
	if err != nil {
		return Result{}, o.fail(ctx, requestID, start, err)
	}
	o.succeed(ctx, requestID, start, req, result)
	return result, nil
}

// TranslateAudio transcribes the audio with the hosted speech-to-text
// backend and translates the transcript. Transcription failure fails the
// whole request.
func (o *Orchestrator) TranslateAudio(ctx context.Context, req AudioRequest) (Result, error) {
	requestID := xid.New().String()
	start := time.Now()

	if err := req.Validate(); err != nil {
		return Result{}, o.fail(ctx, requestID, start, err)
	}

	slog.InfoContext(ctx, "translate: transcribing audio",
		slog.String("request_id", requestID),
		slog.Int("bytes", len(req.Audio.Data)),
	)
	text, err := o.inferrer.Transcribe(ctx, req.Audio)
	if err != nil {
		return Result{}, o.fail(ctx, requestID, start, err)
	}

	textReq, err := req.textRequest(text).Validate(o.maxChars)
	if err != nil {
		return Result{}, o.fail(ctx, requestID, start, err)
	}

	result, err := o.run(ctx, requestID, textReq)
	if err != nil {
		return Result{}, o.fail(ctx, requestID, start, err)
	}
	o.succeed(ctx, requestID, start, textReq, result)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, requestID string, req Request) (Result, error) {
	data := PromptData{
		InputLanguage:  o.catalog.DisplayName(req.InputLanguage),
		TargetLanguage: o.catalog.DisplayName(req.TargetLanguage),
		Simplify:       req.Simplify,
		Dialect:        req.Dialect,
	}

	slog.InfoContext(ctx, "translate: request",
		slog.String("request_id", requestID),
		slog.String("text_prefix", logPrefix(req.Text)),
		slog.String("from", data.InputLanguage),
		slog.String("to", data.TargetLanguage),
		slog.Bool("offline", req.UseOffline),
	)

	source := req.Text
	if req.MedicalCorrection {
		system, err := o.prompts.Correction(data)
		if err != nil {
			return Result{}, err
		}
		raw, err := o.inferrer.Infer(ctx, inference.InferRequest{
			System:      system,
			User:        correctionUserPrompt(req.Text),
			PreferLocal: req.UseOffline,
		})
		if err != nil {
			return Result{}, err
		}
		source = llmtext.Clean(raw)
	}

	system, err := o.prompts.Translation(data)
	if err != nil {
		return Result{}, err
	}
	user, err := translationUserPrompt(source, data.InputLanguage, data.TargetLanguage)
	if err != nil {
		return Result{}, err
	}
	raw, err := o.inferrer.Infer(ctx, inference.InferRequest{
		System:      system,
		User:        user,
		Structured:  true,
		PreferLocal: req.UseOffline,
	})
	if err != nil {
		return Result{}, err
	}

	return buildResult(ctx, requestID, req.Text, raw), nil
}

// buildResult turns translation-pass output into a Result, degrading when
// no usable object can be recovered.
func buildResult(ctx context.Context, requestID, original, raw string) Result {
	obj := llmtext.ParseObject(raw)
	translated, ok := llmtext.String(obj, "translated")
	if !ok {
		slog.WarnContext(ctx, "translate: structured output unusable, degrading",
			slog.String("request_id", requestID),
			slog.String("raw_prefix", logPrefix(raw)),
		)
		return Result{
			Original:   original,
			Corrected:  DegradedCorrected,
			Translated: llmtext.Clean(strings.NewReplacer("{", "", "}", "").Replace(raw)),
			Confidence: DegradedConfidence,
			Degraded:   true,
		}
	}

	corrected, ok := llmtext.String(obj, "corrected")
	if !ok {
		corrected = MissingCorrectedText
	}
	return Result{
		Original:   original,
		Corrected:  corrected,
		Translated: llmtext.Clean(translated),
		Confidence: confidence(obj),
	}
}

func confidence(obj map[string]any) float64 {
	c, ok := llmtext.Number(obj, "confidence")
	if !ok || math.IsNaN(c) || c == 0 {
		return DefaultConfidence
	}
	return math.Max(0, math.Min(1, c))
}

func (o *Orchestrator) succeed(ctx context.Context, requestID string, start time.Time, req Request, result Result) {
	duration := time.Since(start)
	slog.InfoContext(ctx, "translate: done",
		slog.String("request_id", requestID),
		slog.Bool("degraded", result.Degraded),
		slog.Float64("confidence", result.Confidence),
		slog.Duration("duration", duration),
	)

	eventType := events.TranslationCompleted
	if result.Degraded {
		eventType = events.TranslationDegraded
	}
	route := string(inference.RouteLocal)
	if r, ok := o.inferrer.(router); ok {
		route = string(r.Route(req.UseOffline))
	}
	o.emit(ctx, eventType, requestID, events.TranslationData{
		InputLanguage:  req.InputLanguage,
		TargetLanguage: req.TargetLanguage,
		Route:          route,
		Corrected:      req.MedicalCorrection,
		Confidence:     result.Confidence,
		InputChars:     len([]rune(req.Text)),
		DurationMs:     duration.Milliseconds(),
	})
}

func (o *Orchestrator) fail(ctx context.Context, requestID string, start time.Time, err error) error {
	te := classify(err)
	attrs := []any{
		slog.String("request_id", requestID),
		slog.String("kind", te.Kind.String()),
		slog.Bool("offline", te.Offline()),
	}
	if te.Err != nil {
		attrs = append(attrs, slog.String("error", te.Err.Error()))
	}
	if te.Kind == KindInput || te.Kind == KindCanceled {
		slog.InfoContext(ctx, "translate: rejected", attrs...)
	} else {
		slog.ErrorContext(ctx, "translate: failed", attrs...)
	}

	o.emit(ctx, events.TranslationFailed, requestID, events.TranslationFailedData{
		Kind:       te.Kind.String(),
		Message:    te.Message,
		Offline:    te.Offline(),
		DurationMs: time.Since(start).Milliseconds(),
	})
	return te
}

func (o *Orchestrator) emit(ctx context.Context, eventType events.EventType, requestID string, data any) {
	if o.emitter == nil {
		return
	}
	// A cancelled request still reports its outcome.
	if err := o.emitter.Emit(context.WithoutCancel(ctx), eventType, requestID, data); err != nil {
		util.Log(ctx).WithError(err).Error("translate: emit event")
	}
}
