package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func TestTranslatorDefaults(t *testing.T) {
	cfg, err := env.ParseAs[TranslatorConfig]()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	inf := cfg.Inference()
	if inf.HostedBackend != "groq" || inf.LocalBackend != "ollama" {
		t.Errorf("backends = %q / %q", inf.HostedBackend, inf.LocalBackend)
	}
	if inf.HostedModel != "llama-3.3-70b-versatile" || inf.LocalModel != "mistral" {
		t.Errorf("models = %q / %q", inf.HostedModel, inf.LocalModel)
	}
	if inf.Deadline != 60*time.Second {
		t.Errorf("deadline = %v", inf.Deadline)
	}
	if inf.Temperature == nil || *inf.Temperature != 0.1 || inf.LocalMaxTokens != 1024 {
		t.Errorf("temperature/max tokens = %v/%d", inf.Temperature, inf.LocalMaxTokens)
	}
	if len(inf.LocalFallbackURLs) != 1 || inf.LocalFallbackURLs[0] != "http://127.0.0.1:11434" {
		t.Errorf("fallbacks = %v", inf.LocalFallbackURLs)
	}
	if cfg.MaxInputChars != 5000 {
		t.Errorf("max input chars = %d", cfg.MaxInputChars)
	}
}

func TestTranslatorOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("REQUEST_TIMEOUT_MS", "1500")
	t.Setenv("OLLAMA_FALLBACK_URL", "http://a:1, ,http://b:2")
	t.Setenv("LLM_TEMPERATURE", "0")

	cfg, err := env.ParseAs[TranslatorConfig]()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	inf := cfg.Inference()
	if inf.HostedAPIKey != "gsk_test" {
		t.Errorf("api key = %q", inf.HostedAPIKey)
	}
	if inf.Deadline != 1500*time.Millisecond {
		t.Errorf("deadline = %v", inf.Deadline)
	}
	if len(inf.LocalFallbackURLs) != 2 || inf.LocalFallbackURLs[1] != "http://b:2" {
		t.Errorf("fallbacks = %v", inf.LocalFallbackURLs)
	}
	if inf.Temperature == nil || *inf.Temperature != 0 {
		t.Errorf("explicit zero temperature must be kept, got %v", inf.Temperature)
	}
}

func TestInterpreterConfig(t *testing.T) {
	t.Setenv("TARGET_LANGUAGE", "fr")
	t.Setenv("SILENCE_TIMEOUT_MS", "2500")

	cfg, err := LoadInterpreter()
	if err != nil {
		t.Fatalf("LoadInterpreter: %v", err)
	}
	if cfg.TargetLanguage != "fr" || cfg.InputLanguage != "en" {
		t.Errorf("languages = %q/%q", cfg.TargetLanguage, cfg.InputLanguage)
	}
	if cfg.SilenceTimeout() != 2500*time.Millisecond {
		t.Errorf("silence = %v", cfg.SilenceTimeout())
	}
	if cfg.ServiceURL != "http://localhost:8080" {
		t.Errorf("url = %q", cfg.ServiceURL)
	}
}
