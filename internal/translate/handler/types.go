package handler

import (
	"github.com/carelingo/carelingo/internal/translate"
)

const (
	ServiceName = "carelingo.translate.v1.TranslationService"

	TranslateProcedure      = "/" + ServiceName + "/Translate"
	TranslateAudioProcedure = "/" + ServiceName + "/TranslateAudio"
	ListLanguagesProcedure  = "/" + ServiceName + "/ListLanguages"

	// RESTPath accepts a JSON body or a multipart form with an audio file.
	RESTPath = "/api/translate"
	// LanguagesPath lists the catalog.
	LanguagesPath = "/api/languages"
)

// TranslateRequest is the text-mode wire request. MedicalCorrection defaults
// to true when absent.
type TranslateRequest struct {
	Text              string `json:"text"`
	TargetLanguage    string `json:"targetLanguage"`
	InputLanguage     string `json:"inputLanguage,omitempty"`
	UseOffline        bool   `json:"useOffline,omitempty"`
	MedicalCorrection *bool  `json:"medicalCorrection,omitempty"`
	Simplify          bool   `json:"simplify,omitempty"`
	Dialect           string `json:"dialect,omitempty"`
}

func (r *TranslateRequest) toCore() translate.Request {
	req := translate.NewRequest(r.Text, r.TargetLanguage)
	if r.InputLanguage != "" {
		req.InputLanguage = r.InputLanguage
	}
	req.UseOffline = r.UseOffline
	if r.MedicalCorrection != nil {
		req.MedicalCorrection = *r.MedicalCorrection
	}
	req.Simplify = r.Simplify
	if r.Dialect != "" {
		req.Dialect = r.Dialect
	}
	return req
}

// TranslateAudioRequest carries a recorded utterance; Audio is base64 in JSON.
type TranslateAudioRequest struct {
	Audio          []byte `json:"audio"`
	Filename       string `json:"filename,omitempty"`
	MimeType       string `json:"mimeType,omitempty"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
	InputLanguage  string `json:"inputLanguage,omitempty"`
	UseOffline     bool   `json:"useOffline,omitempty"`
}

// TranslationResult is the response for both modes.
type TranslationResult struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Translated string  `json:"translated"`
	Confidence float64 `json:"confidence"`
}

func fromCore(r translate.Result) *TranslationResult {
	return &TranslationResult{
		Original:   r.Original,
		Corrected:  r.Corrected,
		Translated: r.Translated,
		Confidence: r.Confidence,
	}
}

type ListLanguagesRequest struct{}

type Language struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	SpeechLocale string `json:"speechLocale"`
}

type ListLanguagesResponse struct {
	Languages []Language `json:"languages"`
}

// ErrorResponse is the REST error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
