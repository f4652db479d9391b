// Package groq implements the hosted backend against any OpenAI-compatible
// chat-completions API. It registers as "groq" and "openai".
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/carelingo/carelingo/internal/inference/backends/restutil"
	"github.com/carelingo/carelingo/internal/inference/engine"
	"github.com/carelingo/carelingo/internal/inference/registry"
)

const (
	defaultGroqBaseURL    = "https://api.groq.com/openai/v1"
	defaultGroqModel      = "llama-3.3-70b-versatile"
	defaultGroqAudioModel = "distil-whisper-large-v3-en"

	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIAudioModel = "whisper-1"

	defaultTemperature = 0.1
)

type flavor struct {
	name       string
	baseURL    string
	model      string
	audioModel string
}

var flavors = []flavor{
	{name: "groq", baseURL: defaultGroqBaseURL, model: defaultGroqModel, audioModel: defaultGroqAudioModel},
	{name: "openai", baseURL: defaultOpenAIBaseURL, model: defaultOpenAIModel, audioModel: defaultOpenAIAudioModel},
}

func init() {
	for _, f := range flavors {
		f := f
		registry.Hosted.Register(f.name, func(config map[string]string) (engine.ChatBackend, error) {
			return newClient(f, config)
		})
		registry.Speech.Register(f.name, func(config map[string]string) (engine.Transcriber, error) {
			return newClient(f, config)
		})
	}
}

// Client talks to an OpenAI-compatible API with a bearer credential.
type Client struct {
	name        string
	apiKey      string
	baseURL     string
	model       string
	audioModel  string
	temperature float64
	httpClient  *http.Client
}

var (
	_ engine.ChatBackend = (*Client)(nil)
	_ engine.Transcriber = (*Client)(nil)
)

func newClient(f flavor, config map[string]string) (*Client, error) {
	apiKey := strings.TrimSpace(config["api_key"])
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key required (set api_key in config)", f.name)
	}

	c := &Client{
		name:        f.name,
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(orDefault(config["base_url"], f.baseURL), "/"),
		model:       orDefault(config["model"], f.model),
		audioModel:  orDefault(config["audio_model"], f.audioModel),
		temperature: defaultTemperature,
		httpClient:  restutil.DefaultClient,
	}
	if raw := strings.TrimSpace(config["temperature"]); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid temperature %q: %w", f.name, raw, err)
		}
		c.temperature = t
	}
	return c, nil
}

// WithHTTPClient replaces the HTTP client; used by tests.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.httpClient = client
	}
	return c
}

func (c *Client) Name() string {
	return c.name
}

// Chat sends one chat completion. Structured requests set
// response_format to json_object.
func (c *Client) Chat(ctx context.Context, req engine.ChatRequest) (string, error) {
	format := responseFormat{Type: "text"}
	if req.Structured {
		format.Type = "json_object"
	}

	temperature := c.temperature
	body := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: engine.RoleSystem, Content: req.System},
			{Role: engine.RoleUser, Content: req.User},
		},
		Temperature:    &temperature,
		ResponseFormat: &format,
	}

	var resp chatCompletionResponse
	if err := restutil.DoJSON(ctx, c.httpClient, c.name, http.MethodPost, c.baseURL+"/chat/completions", c.authHeaders(), body, &resp); err != nil {
		return "", fmt.Errorf("%s chat: %w", c.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe uploads a recorded utterance to the transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, audio engine.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("%s transcription: empty audio payload", c.name)
	}
	filename := audio.Filename
	if filename == "" {
		filename = "audio.webm"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("%s transcription: create form file: %w", c.name, err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("%s transcription: write form file: %w", c.name, err)
	}
	_ = writer.WriteField("model", c.audioModel)
	_ = writer.WriteField("response_format", "json")
	_ = writer.WriteField("temperature", "0")
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%s transcription: close form: %w", c.name, err)
	}

	headers := c.authHeaders()
	headers["Content-Type"] = writer.FormDataContentType()

	respBody, err := restutil.DoRaw(ctx, c.httpClient, c.name, http.MethodPost, c.baseURL+"/audio/transcriptions", headers, &body)
	if err != nil {
		return "", fmt.Errorf("%s transcription: %w", c.name, err)
	}
	defer respBody.Close()

	var resp transcriptionResponse
	if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
		return "", fmt.Errorf("%s transcription decode: %w", c.name, err)
	}
	return resp.Text, nil
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
