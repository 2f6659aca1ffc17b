package ai

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type stubCompleter struct {
	calls int
}

func (s *stubCompleter) Complete(context.Context, []Message) (string, error) {
	s.calls++
	return "ok", nil
}

func (s *stubCompleter) Provider() string { return "stub" }
func (s *stubCompleter) Model() string    { return "stub-model" }

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: ` {"score": 80} `, want: `{"score": 80}`},
		{name: "json fence", input: "```json\n{\"score\": 80}\n```", want: `{"score": 80}`},
		{name: "bare fence", input: "```\n[1,2]\n```", want: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecodeObject(t *testing.T) {
	t.Parallel()

	if _, err := DecodeObject(`["not", "object"]`); err == nil {
		t.Fatal("expected error for array")
	}
	if _, err := DecodeObject(`null`); err == nil {
		t.Fatal("expected error for null")
	}
	data, err := DecodeObject("```json\n{\"score\": \"72\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if CoerceFloat(data["score"]) != 72 {
		t.Fatalf("unexpected score: %v", data["score"])
	}
}

func TestCoerceFloat(t *testing.T) {
	t.Parallel()

	if CoerceFloat(65.5) != 65.5 {
		t.Fatal("expected float passthrough")
	}
	if CoerceFloat(" 80% ") != 80 {
		t.Fatal("expected percent string to parse")
	}
	if !math.IsNaN(CoerceFloat("high")) {
		t.Fatal("expected NaN for non-numeric string")
	}
	if !math.IsNaN(CoerceFloat(nil)) {
		t.Fatal("expected NaN for missing value")
	}
}

func TestStringSlice(t *testing.T) {
	t.Parallel()

	got, ok := StringSlice([]any{" Go ", "", 3.0})
	if !ok || len(got) != 2 || got[0] != "Go" || got[1] != "3" {
		t.Fatalf("unexpected slice: %v, %v", got, ok)
	}
	if _, ok := StringSlice("Go"); ok {
		t.Fatal("expected non-array to be rejected")
	}
}

func TestBracketSlice(t *testing.T) {
	t.Parallel()

	got := BracketSlice(`Here you go: ["a", "b"] hope it helps`)
	if got != `["a", "b"]` {
		t.Fatalf("unexpected slice: %q", got)
	}
	if BracketSlice("no list") != "" {
		t.Fatal("expected empty result without brackets")
	}
}

func TestValidateMessages(t *testing.T) {
	t.Parallel()

	if err := ValidateMessages(nil); !errors.Is(err, ErrInvalidMessages) {
		t.Fatalf("expected ErrInvalidMessages, got %v", err)
	}
	if err := ValidateMessages([]Message{{Role: "tool", Content: "x"}}); !errors.Is(err, ErrInvalidMessages) {
		t.Fatalf("expected unknown role to be rejected, got %v", err)
	}
	if err := ValidateMessages([]Message{System("schema"), User("resume")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLimited(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	if NewLimited(stub, 0, 1) != Completer(stub) {
		t.Fatal("expected disabled limiter to return the completer unchanged")
	}

	limited := NewLimited(stub, 1, 1)
	if _, err := limited.Complete(context.Background(), []Message{User("hi")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := limited.Complete(ctx, []Message{User("hi")}); err == nil {
		t.Fatal("expected second call to fail waiting for the limiter")
	}

	if stub.calls != 1 {
		t.Fatalf("expected 1 call to reach the completer, got %d", stub.calls)
	}

	provider, model := Describe(limited)
	if provider != "stub" || model != "stub-model" {
		t.Fatalf("unexpected description: %s/%s", provider, model)
	}
}
