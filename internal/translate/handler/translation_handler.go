// Package handler exposes the translation pipeline over Connect RPC and a
// plain REST endpoint.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/internal/language"
	"github.com/carelingo/carelingo/internal/translate"
)

// DefaultMaxUpload bounds request bodies, audio included.
const DefaultMaxUpload = 25 << 20

// Translator is the pipeline behind the handler. *translate.Orchestrator
// satisfies it.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) (translate.Result, error)
	TranslateAudio(ctx context.Context, req translate.AudioRequest) (translate.Result, error)
	Catalog() *language.Catalog
}

// TranslationHandler serves TranslationService and the REST adapter.
type TranslationHandler struct {
	translator Translator
	maxUpload  int64
}

// NewTranslationHandler creates a handler. maxUpload <= 0 uses
// DefaultMaxUpload.
func NewTranslationHandler(t Translator, maxUpload int64) *TranslationHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &TranslationHandler{translator: t, maxUpload: maxUpload}
}

// Mount registers the Connect procedures and REST routes on mux.
func (h *TranslationHandler) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append(opts, connect.WithReadMaxBytes(int(h.maxUpload)))
	mux.Handle(TranslateProcedure, connect.NewUnaryHandler(TranslateProcedure, h.Translate, opts...))
	mux.Handle(TranslateAudioProcedure, connect.NewUnaryHandler(TranslateAudioProcedure, h.TranslateAudio, opts...))
	mux.Handle(ListLanguagesProcedure, connect.NewUnaryHandler(ListLanguagesProcedure, h.ListLanguages, opts...))
	mux.HandleFunc("POST "+RESTPath, h.ServeTranslate)
	mux.HandleFunc("GET "+LanguagesPath, h.ServeLanguages)
}

func (h *TranslationHandler) Translate(ctx context.Context, req *connect.Request[TranslateRequest]) (*connect.Response[TranslationResult], error) {
	res, err := h.translator.Translate(ctx, req.Msg.toCore())
	if err != nil {
		return nil, ConnectError(err)
	}
	return connect.NewResponse(fromCore(res)), nil
}

func (h *TranslationHandler) TranslateAudio(ctx context.Context, req *connect.Request[TranslateAudioRequest]) (*connect.Response[TranslationResult], error) {
	res, err := h.translator.TranslateAudio(ctx, translate.AudioRequest{
		Audio: engine.Audio{
			Data:     req.Msg.Audio,
			Filename: req.Msg.Filename,
			MimeType: req.Msg.MimeType,
		},
		TargetLanguage: req.Msg.TargetLanguage,
		InputLanguage:  req.Msg.InputLanguage,
		UseOffline:     req.Msg.UseOffline,
	})
	if err != nil {
		return nil, ConnectError(err)
	}
	return connect.NewResponse(fromCore(res)), nil
}

func (h *TranslationHandler) ListLanguages(_ context.Context, _ *connect.Request[ListLanguagesRequest]) (*connect.Response[ListLanguagesResponse], error) {
	return connect.NewResponse(h.languages()), nil
}

func (h *TranslationHandler) languages() *ListLanguagesResponse {
	all := h.translator.Catalog().All()
	out := &ListLanguagesResponse{Languages: make([]Language, 0, len(all))}
	for _, d := range all {
		out.Languages = append(out.Languages, Language{Code: d.Code, Name: d.DisplayName, SpeechLocale: d.SpeechLocale})
	}
	return out
}

// ConnectError maps a pipeline failure onto a Connect code. The message is
// the user-facing one; the cause stays in server logs.
func ConnectError(err error) error {
	var te *translate.Error
	if !errors.As(err, &te) {
		return connect.NewError(connect.CodeInternal, errors.New(translate.MsgGeneric))
	}
	code := connect.CodeInternal
	switch {
	case te.Kind == translate.KindInput:
		code = connect.CodeInvalidArgument
	case te.Kind == translate.KindTimeout:
		code = connect.CodeDeadlineExceeded
	case te.Kind == translate.KindCanceled:
		code = connect.CodeCanceled
	case te.Offline():
		code = connect.CodeUnavailable
	}
	return connect.NewError(code, errors.New(te.Message))
}

// ServeTranslate is the REST boundary adapter. A multipart form is an audio
// request (field "file"); anything else is decoded as a JSON text request.
func (h *TranslationHandler) ServeTranslate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		res translate.Result
		err error
	)
	if mediaType == "multipart/form-data" {
		var audioReq translate.AudioRequest
		audioReq, err = h.parseMultipart(r)
		if err == nil {
			res, err = h.translator.TranslateAudio(r.Context(), audioReq)
		}
	} else {
		var body TranslateRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			slog.InfoContext(r.Context(), "translate: bad request body", slog.String("error", decodeErr.Error()))
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}
		res, err = h.translator.Translate(r.Context(), body.toCore())
	}

	if err != nil {
		status := http.StatusInternalServerError
		if translate.IsInput(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, ErrorResponse{Error: userMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, fromCore(res))
}

func (h *TranslationHandler) parseMultipart(r *http.Request) (translate.AudioRequest, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return translate.AudioRequest{}, &translate.Error{Kind: translate.KindInput, Message: translate.MsgNoAudio, Err: err}
	}
	req := translate.AudioRequest{
		TargetLanguage: r.FormValue("targetLanguage"),
		InputLanguage:  r.FormValue("inputLanguage"),
		UseOffline:     r.FormValue("useOffline") == "true",
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return translate.AudioRequest{}, &translate.Error{Kind: translate.KindInput, Message: translate.MsgNoAudio, Err: err}
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return translate.AudioRequest{}, &translate.Error{Kind: translate.KindInput, Message: translate.MsgNoAudio, Err: err}
	}
	req.Audio = engine.Audio{
		Data:     data,
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
	}
	return req, nil
}

func (h *TranslationHandler) ServeLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.languages())
}

func userMessage(err error) string {
	var te *translate.Error
	if errors.As(err, &te) && strings.TrimSpace(te.Message) != "" {
		return te.Message
	}
	return translate.MsgGeneric
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
