// Package llmtext cleans up free-text model output and recovers JSON objects
// embedded in it.
package llmtext

import (
	"regexp"
	"strings"
)

var (
	fenceMarker    = regexp.MustCompile("```[A-Za-z0-9_+-]*")
	bracketLabel   = regexp.MustCompile(`^\[[^\]\n]*\]:?`)
	preambleLabel  = regexp.MustCompile(`(?i)^(here is|here's|this is|output|correction|corrected text|translation|translated text|answer|result):`)
	wrappingQuotes = [][2]string{{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"«", "»"}}
)

// Clean strips formatting artifacts that chat models add around an answer:
// code fences anywhere, then a leading "[label]" prefix, a leading
// preamble such as "Translation:", and one pair of wrapping quotes. Passes
// repeat until the text stops changing, so Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	if text == "" {
		return ""
	}
	out := strings.TrimSpace(text)
	for {
		next := cleanPass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func cleanPass(text string) string {
	text = fenceMarker.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = strings.TrimSpace(bracketLabel.ReplaceAllString(text, ""))
	text = strings.TrimSpace(preambleLabel.ReplaceAllString(text, ""))
	return strings.TrimSpace(unquote(text))
}

func unquote(text string) string {
	for _, q := range wrappingQuotes {
		if len(text) >= len(q[0])+len(q[1]) && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			return text[len(q[0]) : len(text)-len(q[1])]
		}
	}
	return text
}

// StripFences removes code fence markers but leaves everything else intact.
func StripFences(text string) string {
	return fenceMarker.ReplaceAllString(text, "")
}
