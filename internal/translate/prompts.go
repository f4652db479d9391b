package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const maxPromptOutput = 16 * 1024

const defaultCorrectionPrompt = `You are an expert audio transcriber.
Fix phonetic errors, typos and grammar in the input language ({{.InputLanguage}}).

Rules:
1. Do NOT translate. Keep the output in {{.InputLanguage}}.
2. Fix homophones (words that sound alike but are wrong in context).
3. Output ONLY the fixed text. No introduction.`

const defaultTranslationPrompt = `You are an expert medical interpreter fluent in {{.InputLanguage}}, English and {{.TargetLanguage}}.

TASK:
Translate the input text ({{.InputLanguage}}) into two forms.

OUTPUT JSON FORMAT:
{
  "original": "the input text",
  "corrected": "ENGLISH CLINICAL RESTATEMENT",
  "translated": "{{.TargetLanguage}} TRANSLATION",
  "confidence": 0.95
}

RULES:
1. "corrected" MUST ALWAYS BE ENGLISH. It is the clinical summary for the doctor.
   Example: Korean input "머리가 아파요" gives "corrected": "Patient reports headache".
2. "translated" MUST ALWAYS BE {{.TargetLanguage}}.
   Translate directly from {{.InputLanguage}} to {{.TargetLanguage}} and keep the nuance of the input.

{{if .Simplify}}Style: simple, everyday language for a layperson. Dialect: {{.Dialect}}.{{else}}Style: formal clinical terminology with precise definitions.{{end}}`

// PromptData is the data available to prompt templates.
type PromptData struct {
	InputLanguage  string
	TargetLanguage string
	Simplify       bool
	Dialect        string
}

// promptFile is the YAML override format. Empty fields keep the built-in
// template.
type promptFile struct {
	Correction  string `yaml:"correction"`
	Translation string `yaml:"translation"`
}

type promptSet struct {
	correction  *template.Template
	translation *template.Template
}

// Prompts renders the system prompts for the correction and translation
// passes. When loaded from a file it can be hot-reloaded with Watch.
type Prompts struct {
	path string

	mu  sync.RWMutex
	set promptSet
}

var (
	defaultOnce sync.Once
	defaultSet  promptSet
)

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	defaultOnce.Do(func() {
		set, err := buildSet(promptFile{})
		if err != nil {
			panic(fmt.Sprintf("translate: built-in prompts: %v", err))
		}
		defaultSet = set
	})
	return &Prompts{set: defaultSet}
}

// LoadPrompts reads the override file at path. An empty path returns the
// built-in templates.
func LoadPrompts(path string) (*Prompts, error) {
	if path == "" {
		return DefaultPrompts(), nil
	}
	p := &Prompts{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the override file. On error the current templates stay.
func (p *Prompts) Reload() error {
	if p.path == "" {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read prompts %q: %w", p.path, err)
	}
	var f promptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse prompts %q: %w", p.path, err)
	}
	set, err := buildSet(f)
	if err != nil {
		return fmt.Errorf("prompts %q: %w", p.path, err)
	}

	p.mu.Lock()
	p.set = set
	p.mu.Unlock()
	return nil
}

func buildSet(f promptFile) (promptSet, error) {
	correction, err := parsePrompt("correction", orDefault(f.Correction, defaultCorrectionPrompt))
	if err != nil {
		return promptSet{}, err
	}
	translation, err := parsePrompt("translation", orDefault(f.Translation, defaultTranslationPrompt))
	if err != nil {
		return promptSet{}, err
	}
	return promptSet{correction: correction, translation: translation}, nil
}

func parsePrompt(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return tmpl, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// Correction renders the correction-pass system prompt.
func (p *Prompts) Correction(data PromptData) (string, error) {
	p.mu.RLock()
	tmpl := p.set.correction
	p.mu.RUnlock()
	return render(tmpl, data)
}

// Translation renders the translation-pass system prompt.
func (p *Prompts) Translation(data PromptData) (string, error) {
	p.mu.RLock()
	tmpl := p.set.translation
	p.mu.RUnlock()
	return render(tmpl, data)
}

// limitWriter caps output from template.Execute.
type limitWriter struct {
	w       io.Writer
	n       int64
	written int64
}

func (lw *limitWriter) Write(b []byte) (int, error) {
	if lw.written+int64(len(b)) > lw.n {
		return 0, fmt.Errorf("prompt output exceeds %d bytes", lw.n)
	}
	n, err := lw.w.Write(b)
	lw.written += int64(n)
	return n, err
}

func render(tmpl *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&limitWriter{w: &buf, n: maxPromptOutput}, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// Watch reloads the override file whenever it is written or replaced. It
// blocks until ctx is done. Without an override file it returns at once.
func (p *Prompts) Watch(ctx context.Context) error {
	if p.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}
	target := filepath.Clean(p.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := p.Reload(); err != nil {
					slog.WarnContext(ctx, "prompts: reload failed", slog.String("error", err.Error()))
					continue
				}
				slog.InfoContext(ctx, "prompts: reloaded", slog.String("path", p.path))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// correctionUserPrompt quotes the raw input for the correction pass.
func correctionUserPrompt(text string) string {
	return `Raw Input: "` + text + `"`
}

type translationInput struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

// translationUserPrompt encodes the source text and language names as JSON.
func translationUserPrompt(text, source, target string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(translationInput{Text: text, SourceLanguage: source, TargetLanguage: target}); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
