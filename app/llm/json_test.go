package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain object", input: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around", input: "Here you go:\n{\"a\":{\"b\":2}}\nThanks", want: `{"a":{"b":2}}`},
		{name: "array", input: `[{"a":1},{"a":2}]`, want: `[{"a":1},{"a":2}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if _, err := ExtractJSON("I cannot help with that."); !errors.Is(err, ErrNoJSON) {
		t.Errorf("Expected ErrNoJSON, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Observations []struct {
			Type string `json:"type"`
		} `json:"observations"`
	}
	if err := DecodeJSON("```\n{\"observations\":[{\"type\":\"complaint\"}]}\n```", &out); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if len(out.Observations) != 1 || out.Observations[0].Type != "complaint" {
		t.Errorf("Unexpected result: %+v", out)
	}
}
