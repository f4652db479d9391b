package language

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Auto is the input language code meaning "detect from the audio or text".
const Auto = "auto"

// DefaultSpeechLocale is used when a code has no known speech locale.
const DefaultSpeechLocale = "en-US"

//go:embed languages.yaml
var embeddedCatalog []byte

// Descriptor is the display metadata for one language.
type Descriptor struct {
	Code         string `yaml:"code"   json:"code"`
	DisplayName  string `yaml:"name"   json:"displayName"`
	SpeechLocale string `yaml:"locale" json:"speechLocale"`
}

type catalogFile struct {
	Languages []Descriptor `yaml:"languages"`
}

// Catalog maps language codes to descriptors. It is never mutated after
// construction and is safe for concurrent use.
type Catalog struct {
	byCode map[string]Descriptor
	sorted []Descriptor
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built from the embedded language table.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedCatalog)
		if err != nil {
			panic(fmt.Sprintf("language: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads a catalog from a YAML file. An empty path returns Default().
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language catalog %q: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML data.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if len(f.Languages) == 0 {
		return nil, fmt.Errorf("catalog has no languages")
	}

	c := &Catalog{byCode: make(map[string]Descriptor, len(f.Languages))}
	for i, d := range f.Languages {
		d.Code = strings.ToLower(strings.TrimSpace(d.Code))
		if d.Code == "" {
			return nil, fmt.Errorf("language %d: code is required", i)
		}
		if _, dup := c.byCode[d.Code]; dup {
			return nil, fmt.Errorf("language %q: duplicate code", d.Code)
		}
		if d.DisplayName == "" {
			d.DisplayName = d.Code
		}
		if d.SpeechLocale == "" {
			d.SpeechLocale = DefaultSpeechLocale
		}
		c.byCode[d.Code] = d
		c.sorted = append(c.sorted, d)
	}
	sort.Slice(c.sorted, func(i, j int) bool { return c.sorted[i].Code < c.sorted[j].Code })
	return c, nil
}

// Lookup resolves a code, falling back from a regional form ("pt-BR") to
// its base language ("pt").
func (c *Catalog) Lookup(code string) (Descriptor, bool) {
	key := strings.ToLower(strings.TrimSpace(code))
	if d, ok := c.byCode[key]; ok {
		return d, true
	}
	if base, _, found := strings.Cut(key, "-"); found {
		if d, ok := c.byCode[base]; ok {
			return d, true
		}
	}
	return Descriptor{}, false
}

// DisplayName returns the human name for code. Unknown codes pass through
// unchanged.
func (c *Catalog) DisplayName(code string) string {
	if strings.EqualFold(strings.TrimSpace(code), Auto) {
		return "auto-detected"
	}
	if d, ok := c.Lookup(code); ok {
		return d.DisplayName
	}
	return code
}

// SpeechLocale returns the recognizer/synthesizer locale for code.
func (c *Catalog) SpeechLocale(code string) string {
	if d, ok := c.Lookup(code); ok {
		return d.SpeechLocale
	}
	return DefaultSpeechLocale
}

// All returns every descriptor ordered by code.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.sorted))
	copy(out, c.sorted)
	return out
}
