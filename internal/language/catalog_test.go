package language

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogLookup(t *testing.T) {
	c := Default()

	tests := []struct {
		code   string
		name   string
		locale string
	}{
		{code: "es", name: "Spanish", locale: "es-ES"},
		{code: "zh", name: "Mandarin Chinese", locale: "zh-CN"},
		{code: "fil", name: "Filipino", locale: "fil-PH"},
		{code: "pt-BR", name: "Portuguese", locale: "pt-PT"},
		{code: "KO", name: "Korean", locale: "ko-KR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := c.DisplayName(tt.code); got != tt.name {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.code, got, tt.name)
			}
			if got := c.SpeechLocale(tt.code); got != tt.locale {
				t.Errorf("SpeechLocale(%q) = %q, want %q", tt.code, got, tt.locale)
			}
		})
	}
}

func TestUnknownCodePassesThrough(t *testing.T) {
	c := Default()

	if got := c.DisplayName("xx-YY"); got != "xx-YY" {
		t.Errorf("DisplayName = %q, want raw code", got)
	}
	if got := c.SpeechLocale("xx"); got != DefaultSpeechLocale {
		t.Errorf("SpeechLocale = %q, want %q", got, DefaultSpeechLocale)
	}
	if got := c.DisplayName(Auto); got != "auto-detected" {
		t.Errorf("DisplayName(auto) = %q", got)
	}
}

func TestAllIsSortedCopy(t *testing.T) {
	c := Default()
	all := c.All()
	if len(all) != 20 {
		t.Fatalf("expected 20 languages, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Code >= all[i].Code {
			t.Fatalf("languages not sorted at %d: %q >= %q", i, all[i-1].Code, all[i].Code)
		}
	}

	all[0].DisplayName = "mutated"
	if c.All()[0].DisplayName == "mutated" {
		t.Error("All must return a copy")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: "languages: []"},
		{name: "missing code", data: "languages:\n  - name: Foo\n"},
		{name: "duplicate", data: "languages:\n  - code: en\n  - code: EN\n"},
		{name: "bad yaml", data: "languages: [:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langs.yaml")
	data := "languages:\n  - code: eo\n    name: Esperanto\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.DisplayName("eo"); got != "Esperanto" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := c.SpeechLocale("eo"); got != DefaultSpeechLocale {
		t.Errorf("SpeechLocale = %q", got)
	}

	if c, err := Load(""); err != nil || c != Default() {
		t.Errorf("Load(\"\") should return default catalog, got %v, %v", c, err)
	}
}
