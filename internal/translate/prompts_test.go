package translate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultPromptsStyle(t *testing.T) {
	p := DefaultPrompts()

	simple, err := p.Translation(PromptData{InputLanguage: "Spanish", TargetLanguage: "English", Simplify: true, Dialect: "Mexican"})
	if err != nil {
		t.Fatalf("Translation: %v", err)
	}
	if !strings.Contains(simple, "layperson") || !strings.Contains(simple, "Dialect: Mexican") {
		t.Errorf("simplified prompt = %q", simple)
	}
	if !strings.Contains(simple, `"corrected" MUST ALWAYS BE ENGLISH`) {
		t.Error("corrected must be pinned to English")
	}

	correction, err := p.Correction(PromptData{InputLanguage: "Korean"})
	if err != nil {
		t.Fatalf("Correction: %v", err)
	}
	if !strings.Contains(correction, "Keep the output in Korean") {
		t.Errorf("correction prompt = %q", correction)
	}
}

func TestUserPrompts(t *testing.T) {
	got, err := translationUserPrompt(`"<b>" & co`, "auto-detected", "Spanish")
	if err != nil {
		t.Fatal(err)
	}
	want := `{"text":"\"<b>\" & co","sourceLanguage":"auto-detected","targetLanguage":"Spanish"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if correctionUserPrompt("hola") != `Raw Input: "hola"` {
		t.Error("unexpected correction user prompt")
	}
}

func TestLoadPromptsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "correction: \"Fix {{.InputLanguage}} only.\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	got, _ := p.Correction(PromptData{InputLanguage: "French"})
	if got != "Fix French only." {
		t.Errorf("correction = %q", got)
	}
	translation, _ := p.Translation(PromptData{InputLanguage: "French", TargetLanguage: "English"})
	if !strings.Contains(translation, "medical interpreter") {
		t.Error("missing translation override should keep the built-in template")
	}

	if err := os.WriteFile(path, []byte("correction: \"{{.Nope\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err == nil {
		t.Error("expected template parse error")
	}
	got, _ = p.Correction(PromptData{InputLanguage: "French"})
	if got != "Fix French only." {
		t.Errorf("failed reload must keep previous templates, got %q", got)
	}

	if _, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPromptsWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("correction: \"v1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPrompts(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if err := os.WriteFile(path, []byte("correction: \"v2\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
		if got, _ := p.Correction(PromptData{}); got == "v2" {
			return
		}
	}
	t.Fatal("prompt override was not reloaded")
}
