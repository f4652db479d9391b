package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pitabwire/frame/config"

	"github.com/carelingo/carelingo/internal/inference"
)

// TranslatorConfig holds configuration for the translation service.
type TranslatorConfig struct {
	config.ConfigurationDefault

	// Hosted backend
	GroqAPIKey     string `envDefault:""                           env:"GROQ_API_KEY"`
	HostedBackend  string `envDefault:"groq"                       env:"HOSTED_BACKEND"`
	HostedBaseURL  string `envDefault:""                           env:"HOSTED_BASE_URL"`
	GroqModel      string `envDefault:"llama-3.3-70b-versatile"    env:"GROQ_MODEL"`
	GroqAudioModel string `envDefault:"distil-whisper-large-v3-en" env:"GROQ_AUDIO_MODEL"`

	// Local backend
	LocalBackend      string `envDefault:"ollama"                  env:"LOCAL_BACKEND"`
	OllamaBaseURL     string `envDefault:"http://localhost:11434"  env:"OLLAMA_BASE_URL"`
	OllamaFallbackURL string `envDefault:"http://127.0.0.1:11434"  env:"OLLAMA_FALLBACK_URL"`
	OllamaModel       string `envDefault:"mistral"                 env:"OLLAMA_MODEL"`
	LocalMaxTokens    int    `envDefault:"1024"                    env:"LOCAL_MAX_TOKENS"`

	// Pipeline
	LLMTemperature   float64 `envDefault:"0.1"      env:"LLM_TEMPERATURE"`
	RequestTimeoutMs int     `envDefault:"60000"    env:"REQUEST_TIMEOUT_MS"`
	MaxInputChars    int     `envDefault:"5000"     env:"MAX_INPUT_CHARS"`
	MaxUploadBytes   int64   `envDefault:"26214400" env:"MAX_UPLOAD_BYTES"`
	PromptsFile      string  `envDefault:""         env:"PROMPTS_FILE"`
	LanguagesFile    string  `envDefault:""         env:"LANGUAGES_FILE"`
}

// Inference builds the resolver configuration. OLLAMA_FALLBACK_URL may list
// several comma-separated addresses.
func (c *TranslatorConfig) Inference() inference.Config {
	temperature := c.LLMTemperature
	return inference.Config{
		HostedBackend:      c.HostedBackend,
		HostedAPIKey:       c.GroqAPIKey,
		HostedBaseURL:      c.HostedBaseURL,
		HostedModel:        c.GroqModel,
		TranscriptionModel: c.GroqAudioModel,
		LocalBackend:       c.LocalBackend,
		LocalBaseURL:       c.OllamaBaseURL,
		LocalFallbackURLs:  splitList(c.OllamaFallbackURL),
		LocalModel:         c.OllamaModel,
		LocalMaxTokens:     c.LocalMaxTokens,
		Temperature:        &temperature,
		Deadline:           time.Duration(c.RequestTimeoutMs) * time.Millisecond,
	}
}

// InterpreterConfig holds the terminal client's environment defaults. Flags
// override every field.
type InterpreterConfig struct {
	ServiceURL       string `envDefault:"http://localhost:8080" env:"CARELINGO_URL"`
	TargetLanguage   string `envDefault:"es"                    env:"TARGET_LANGUAGE"`
	InputLanguage    string `envDefault:"en"                    env:"INPUT_LANGUAGE"`
	UseOffline       bool   `envDefault:"false"                 env:"USE_OFFLINE"`
	Simplify         bool   `envDefault:"false"                 env:"SIMPLIFY"`
	Dialect          string `envDefault:"standard"              env:"DIALECT"`
	SilenceTimeoutMs int    `envDefault:"4000"                  env:"SILENCE_TIMEOUT_MS"`
	FFmpegCommand    string `envDefault:"ffmpeg"                env:"FFMPEG_COMMAND"`
	FFmpegFormat     string `envDefault:"pulse"                 env:"FFMPEG_INPUT_FORMAT"`
	FFmpegDevice     string `envDefault:"default"               env:"FFMPEG_INPUT_DEVICE"`
}

// LoadInterpreter reads InterpreterConfig from the environment.
func LoadInterpreter() (InterpreterConfig, error) {
	return env.ParseAs[InterpreterConfig]()
}

// SilenceTimeout converts the configured milliseconds.
func (c InterpreterConfig) SilenceTimeout() time.Duration {
	return time.Duration(c.SilenceTimeoutMs) * time.Millisecond
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
