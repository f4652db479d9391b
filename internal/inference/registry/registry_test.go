package registry

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistryCreate(t *testing.T) {
	r := New[string]()
	r.Register("b", func(config map[string]string) (string, error) { return "b:" + config["model"], nil })
	r.Register("a", func(map[string]string) (string, error) { return "", errors.New("boom") })

	got, err := r.Create("b", map[string]string{"model": "m"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got != "b:m" {
		t.Errorf("got %q", got)
	}

	if _, err := r.Create("a", nil); err == nil || err.Error() != "boom" {
		t.Errorf("expected factory error, got %v", err)
	}

	_, err = r.Create("missing", nil)
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "registered: a, b") {
		t.Errorf("error should list registered names: %v", err)
	}

	if _, err := r.Create(" B ", map[string]string{"model": "x"}); err != nil {
		t.Errorf("names should be case-insensitive: %v", err)
	}

	if !r.Has("a") || r.Has("missing") {
		t.Error("Has returned wrong answer")
	}

	names := r.List()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("List = %v, want sorted [a b]", names)
	}
}
