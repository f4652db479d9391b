package llmtext

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain", in: "Me duele la cabeza.", want: "Me duele la cabeza."},
		{name: "json fence", in: "```json\nhola\n```", want: "hola"},
		{name: "bare fence", in: "```\nhola\n```", want: "hola"},
		{name: "speaker tag", in: "[Patient]: I have a headache", want: "I have a headache"},
		{name: "speaker tag without colon", in: "[Doctor] Take this", want: "Take this"},
		{name: "preamble", in: "Translation: Tengo fiebre", want: "Tengo fiebre"},
		{name: "preamble case insensitive", in: "HERE IS: text", want: "text"},
		{name: "double quotes", in: `"Tengo fiebre"`, want: "Tengo fiebre"},
		{name: "single quotes", in: `'Tengo fiebre'`, want: "Tengo fiebre"},
		{name: "smart quotes", in: "“Tengo fiebre”", want: "Tengo fiebre"},
		{name: "unmatched quote kept", in: `"Tengo fiebre'`, want: `"Tengo fiebre'`},
		{name: "combined", in: "```\n[Bot]: Translation: \"Hola\"\n```", want: "Hola"},
		{name: "interior untouched", in: `He said "stop" [twice]: ok`, want: `He said "stop" [twice]: ok`},
		{name: "interior preamble untouched", in: "The Output: field is empty", want: "The Output: field is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"[A]: [B]: hi",
		`"'nested'"`,
		"Answer: Output: Translation: x",
		"```python\nprint('x')\n```",
		`"`,
		"''",
		"[unterminated: label",
		"```json{\"translated\":\"x\"}```",
		"“”",
		"Here's: \"[x]\"",
	}

	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestParseObject(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		translated string
		wantNil    bool
	}{
		{name: "direct", in: `{"translated":"x"}`, translated: "x"},
		{name: "fenced", in: "```json\n{\"translated\":\"x\"}\n```", translated: "x"},
		{name: "prose wrapped", in: `Sure! Here it is: {"translated":"x","corrected":"y","confidence":0.8} Hope that helps.`, translated: "x"},
		{name: "nested braces", in: `note {"translated":"a {b}","meta":{"k":1}} end`, translated: "a {b}"},
		{name: "array is not an object", in: `["translated"]`, wantNil: true},
		{name: "no braces", in: "I cannot help with that.", wantNil: true},
		{name: "broken json", in: `{"translated": "x",`, wantNil: true},
		{name: "reversed braces", in: `} nope {`, wantNil: true},
		{name: "empty", in: "", wantNil: true},
		{name: "null literal", in: "null", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseObject(tt.in)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected object, got nil")
			}
			if v, _ := String(got, "translated"); v != tt.translated {
				t.Errorf("translated = %q, want %q", v, tt.translated)
			}
		})
	}
}

func TestParseObjectRecoversEmbeddedFields(t *testing.T) {
	obj := ParseObject(`The patient said: {"translated":"x","corrected":"y","confidence":0.8} -- end of output`)
	if obj == nil {
		t.Fatal("expected object")
	}
	if v, ok := String(obj, "translated"); !ok || v != "x" {
		t.Errorf("translated = %q, %v", v, ok)
	}
	if v, ok := String(obj, "corrected"); !ok || v != "y" {
		t.Errorf("corrected = %q, %v", v, ok)
	}
	if v, ok := Number(obj, "confidence"); !ok || v != 0.8 {
		t.Errorf("confidence = %v, %v", v, ok)
	}
}

func TestAccessors(t *testing.T) {
	obj := map[string]any{
		"blank":   "  ",
		"num":     "0.7",
		"bad":     "high",
		"obj":     map[string]any{},
		"integer": float64(1),
	}

	if _, ok := String(obj, "blank"); ok {
		t.Error("blank string should be reported missing")
	}
	if _, ok := String(obj, "obj"); ok {
		t.Error("non-string should be reported missing")
	}
	if v, ok := Number(obj, "num"); !ok || v != 0.7 {
		t.Errorf("numeric string = %v, %v", v, ok)
	}
	if _, ok := Number(obj, "bad"); ok {
		t.Error("non-numeric string should fail")
	}
	if v, ok := Number(obj, "integer"); !ok || v != 1 {
		t.Errorf("integer = %v, %v", v, ok)
	}
	if _, ok := Number(obj, "missing"); ok {
		t.Error("missing key should fail")
	}
}
