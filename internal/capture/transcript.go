package capture

import (
	"strings"
)

// transcript accumulates recognition results. Final segments win over the
// latest interim hypothesis.
type transcript struct {
	finals     []string
	lastSpoken string
}

func (t *transcript) add(segments []Segment) {
	var finals, interim []string
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Final {
			finals = append(finals, text)
		} else {
			interim = append(interim, text)
		}
	}
	t.finals = append(t.finals, finals...)

	switch {
	case len(finals) > 0:
		t.lastSpoken = strings.Join(finals, " ")
	case len(interim) > 0:
		t.lastSpoken = strings.Join(interim, " ")
	}
}

// current is what the user sees: committed finals plus the pending interim.
func (t *transcript) current() string {
	joined := strings.Join(t.finals, " ")
	if t.lastSpoken == "" || strings.HasSuffix(joined, t.lastSpoken) {
		return joined
	}
	return strings.TrimSpace(joined + " " + t.lastSpoken)
}

// final is the text to submit: the joined finals, or the last hypothesis
// when the recognizer never committed one.
func (t *transcript) final() string {
	if joined := strings.TrimSpace(strings.Join(t.finals, " ")); joined != "" {
		return joined
	}
	return t.lastSpoken
}

func (t *transcript) reset() {
	t.finals = nil
	t.lastSpoken = ""
}
