package groq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/internal/inference/registry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend, err := registry.Hosted.Create("groq", map[string]string{
		"api_key":  "test-key",
		"base_url": server.URL + "/",
	})
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	return backend.(*Client)
}

func TestChatStructuredRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != defaultGroqModel {
			t.Errorf("model = %q", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}
		if req.Temperature == nil || *req.Temperature != 0.1 {
			t.Errorf("temperature = %v", req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "hola" {
			t.Errorf("messages = %+v", req.Messages)
		}

		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"translated\":\"hi\"}"}}]}`)
	})

	out, err := client.Chat(context.Background(), engine.ChatRequest{System: "sys", User: "hola", Structured: true})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != `{"translated":"hi"}` {
		t.Errorf("out = %q", out)
	}
}

func TestChatTextModeAndEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "text" {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})

	out, err := client.Chat(context.Background(), engine.ChatRequest{System: "s", User: "u"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty text, got %q", out)
	}
}

func TestChatServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := client.Chat(context.Background(), engine.ChatRequest{System: "s", User: "u"})
	var statusErr *engine.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 StatusError, got %v", err)
	}
}

func TestTranscribeMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != defaultGroqAudioModel {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("response_format"); got != "json" {
			t.Errorf("response_format = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "RIFF" || header.Filename != "audio.webm" {
			t.Errorf("file = %q (%s)", data, header.Filename)
		}
		_, _ = io.WriteString(w, `{"text":"me duele la cabeza"}`)
	})

	text, err := client.Transcribe(context.Background(), engine.Audio{Data: []byte("RIFF")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "me duele la cabeza" {
		t.Errorf("text = %q", text)
	}
}

func TestFactoryValidation(t *testing.T) {
	if _, err := registry.Hosted.Create("groq", map[string]string{}); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := registry.Hosted.Create("openai", map[string]string{"api_key": "k", "temperature": "warm"}); err == nil {
		t.Error("expected error for invalid temperature")
	}

	backend, err := registry.Hosted.Create("openai", map[string]string{"api_key": "k", "model": "gpt-x"})
	if err != nil {
		t.Fatalf("create openai: %v", err)
	}
	c := backend.(*Client)
	if c.baseURL != defaultOpenAIBaseURL || c.model != "gpt-x" || c.Name() != "openai" {
		t.Errorf("unexpected client: %+v", c)
	}
}
