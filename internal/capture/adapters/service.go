package adapters

import (
	"context"
	"errors"
	"sync"

	"connectrpc.com/connect"

	"github.com/carelingo/carelingo/internal/capture"
	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/internal/translate/handler"
)

// ServiceSettings are the per-session translation options.
type ServiceSettings struct {
	TargetLanguage string
	InputLanguage  string
	UseOffline     bool
	Simplify       bool
	Dialect        string
}

// ServiceTranslator implements capture.Translator over the Connect client.
type ServiceTranslator struct {
	client *handler.Client

	mu       sync.RWMutex
	settings ServiceSettings
}

var _ capture.Translator = (*ServiceTranslator)(nil)

func NewServiceTranslator(client *handler.Client, settings ServiceSettings) *ServiceTranslator {
	return &ServiceTranslator{client: client, settings: settings}
}

func (t *ServiceTranslator) Settings() ServiceSettings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings
}

func (t *ServiceTranslator) Update(fn func(*ServiceSettings)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.settings)
}

func (t *ServiceTranslator) TranslateText(ctx context.Context, text string) (capture.Result, error) {
	s := t.Settings()
	correction := true
	res, err := t.client.Translate(ctx, &handler.TranslateRequest{
		Text:              text,
		TargetLanguage:    s.TargetLanguage,
		InputLanguage:     s.InputLanguage,
		UseOffline:        s.UseOffline,
		MedicalCorrection: &correction,
		Simplify:          s.Simplify,
		Dialect:           s.Dialect,
	})
	if err != nil {
		return capture.Result{}, serviceError(err)
	}
	return toResult(res), nil
}

func (t *ServiceTranslator) TranslateAudio(ctx context.Context, audio engine.Audio) (capture.Result, error) {
	s := t.Settings()
	res, err := t.client.TranslateAudio(ctx, &handler.TranslateAudioRequest{
		Audio:          audio.Data,
		Filename:       audio.Filename,
		MimeType:       audio.MimeType,
		TargetLanguage: s.TargetLanguage,
		InputLanguage:  s.InputLanguage,
		UseOffline:     s.UseOffline,
	})
	if err != nil {
		return capture.Result{}, serviceError(err)
	}
	return toResult(res), nil
}

func toResult(r *handler.TranslationResult) capture.Result {
	return capture.Result{
		Original:   r.Original,
		Corrected:  r.Corrected,
		Translated: r.Translated,
		Confidence: r.Confidence,
	}
}

// serviceError keeps cancellation recognisable and otherwise reduces the
// error to the user-facing message.
func serviceError(err error) error {
	if connect.CodeOf(err) == connect.CodeCanceled || errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return errors.New(handler.ErrorMessage(err))
}
