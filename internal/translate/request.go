package translate

import (
	"strings"
	"unicode/utf8"

	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/internal/language"
)

const (
	// DefaultMaxInputChars is the clamp applied to trimmed input text.
	DefaultMaxInputChars = 5000
	// DefaultDialect is used when a request does not name one.
	DefaultDialect = "standard"
	// DefaultAudioTarget is the target language for audio requests that omit it.
	DefaultAudioTarget = "es"
)

// Request is a normalised text translation request.
type Request struct {
	Text              string
	TargetLanguage    string
	InputLanguage     string
	UseOffline        bool
	MedicalCorrection bool
	Simplify          bool
	Dialect           string
}

// NewRequest returns a request with the defaults applied: automatic input
// language, medical correction on, standard dialect.
func NewRequest(text, targetLanguage string) Request {
	return Request{
		Text:              text,
		TargetLanguage:    targetLanguage,
		InputLanguage:     language.Auto,
		MedicalCorrection: true,
		Dialect:           DefaultDialect,
	}
}

// Validate trims and clamps the text to maxChars characters and fills in
// defaults. Whitespace-only text is an input error.
func (r Request) Validate(maxChars int) (Request, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return Request{}, &Error{Kind: KindInput, Message: MsgEmptyText}
	}
	r.Text = clampRunes(text, maxChars)

	r.TargetLanguage = strings.TrimSpace(r.TargetLanguage)
	if r.TargetLanguage == "" {
		r.TargetLanguage = DefaultAudioTarget
	}
	r.InputLanguage = strings.TrimSpace(r.InputLanguage)
	if r.InputLanguage == "" {
		r.InputLanguage = language.Auto
	}
	r.Dialect = strings.TrimSpace(r.Dialect)
	if r.Dialect == "" {
		r.Dialect = DefaultDialect
	}
	return r, nil
}

// AudioRequest carries a recorded utterance. Text options follow the audio
// defaults: correction on, no simplification, standard dialect.
type AudioRequest struct {
	Audio          engine.Audio
	TargetLanguage string
	InputLanguage  string
	UseOffline     bool
}

// Validate rejects an empty payload.
func (r AudioRequest) Validate() error {
	if len(r.Audio.Data) == 0 {
		return &Error{Kind: KindInput, Message: MsgNoAudio}
	}
	return nil
}

// textRequest builds the text request that follows transcription.
func (r AudioRequest) textRequest(text string) Request {
	target := r.TargetLanguage
	if strings.TrimSpace(target) == "" {
		target = DefaultAudioTarget
	}
	req := NewRequest(text, target)
	if r.InputLanguage != "" {
		req.InputLanguage = r.InputLanguage
	}
	req.UseOffline = r.UseOffline
	return req
}

func clampRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// logPrefix returns at most the first 30 characters of patient text.
func logPrefix(s string) string {
	return clampRunes(s, 30)
}
