package resume

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kaziconnect/kaziconnect/internal/ai"
)

type stubCompleter struct {
	response string
	err      error
	calls    int
	last     []ai.Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []ai.Message) (string, error) {
	s.calls++
	s.last = messages
	return s.response, s.err
}

const validResponse = "```json\n" + `{
  "strengths": ["Strong <b>Go</b> background", "<i></i>"],
  "weaknesses": ["Little frontend work"],
  "suggestedImprovements": ["Quantify impact"],
  "keySkills": ["Go", "PostgreSQL", "Docker"]
}` + "\n```"

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace", text: " \n\t "},
		{name: "too long", text: strings.Repeat("a", MaxLength+1)},
		{name: "only script", text: "<script>alert(1)</script>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubCompleter{response: validResponse}
			analyzer := NewAnalyzer(stub, nil, "development", false)

			_, err := analyzer.Analyze(context.Background(), tt.text)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if stub.calls != 0 {
				t.Fatalf("expected no completer calls, got %d", stub.calls)
			}
		})
	}
}

func TestAnalyzeAcceptsMaxLength(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{response: validResponse}
	analyzer := NewAnalyzer(stub, nil, "development", false)

	// Multi-byte runes must be counted as single characters.
	text := strings.Repeat("é", MaxLength)
	if _, err := analyzer.Analyze(context.Background(), text); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected one completer call, got %d", stub.calls)
	}
}

func TestAnalyzeSanitizesInputAndOutput(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{response: validResponse}
	analyzer := NewAnalyzer(stub, nil, "development", false)

	text := "Jane Doe\n\tGo developer\x00\x07<script>steal()</script> with 5 years"
	analysis, err := analyzer.Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	if len(stub.last) != 2 || stub.last[0].Role != ai.RoleSystem || stub.last[1].Role != ai.RoleUser {
		t.Fatalf("expected system and user messages, got %+v", stub.last)
	}
	sent := stub.last[1].Content
	if strings.Contains(sent, "steal()") || strings.Contains(sent, "<script") {
		t.Fatalf("script must be removed before sending: %q", sent)
	}
	if strings.ContainsAny(sent, "\x00\x07") {
		t.Fatalf("control characters must be removed: %q", sent)
	}
	if !strings.Contains(sent, "Jane Doe\n\tGo developer") {
		t.Fatalf("newlines and tabs must survive: %q", sent)
	}
	if !strings.Contains(stub.last[0].Content, "PII") {
		t.Fatal("system prompt must forbid personal data")
	}

	if len(analysis.Strengths) != 1 || analysis.Strengths[0] != "Strong Go background" {
		t.Fatalf("expected stripped strengths, got %v", analysis.Strengths)
	}
	if len(analysis.KeySkills) != 3 {
		t.Fatalf("unexpected key skills: %v", analysis.KeySkills)
	}
}

func TestAnalyzeStripsRawTextElements(t *testing.T) {
	t.Parallel()

	for _, el := range []string{"textarea", "title", "style", "noscript", "xmp", "iframe", "plaintext"} {
		t.Run(el, func(t *testing.T) {
			t.Parallel()

			wrap := func(inner string) string { return "<" + el + ">" + inner + "</" + el + ">" }
			response := `{
  "strengths": ["` + wrap("<script>alert(1)</script>") + `Mentoring"],
  "weaknesses": ["` + wrap("<b>x</b>") + `Testing"],
  "suggestedImprovements": ["Quantify impact"],
  "keySkills": ["` + wrap("<img src=x onerror=alert(1)>") + `Go"]
}`
			stub := &stubCompleter{response: response}
			analyzer := NewAnalyzer(stub, nil, "development", false)

			analysis, err := analyzer.Analyze(context.Background(), "Resume "+wrap("<script>steal()</script>")+" Go developer")
			if err != nil {
				t.Fatalf("Analyze error: %v", err)
			}

			sent := stub.last[1].Content
			if strings.Contains(sent, "steal()") || strings.Contains(sent, "<script") {
				t.Fatalf("script must be removed before sending: %q", sent)
			}

			all := slices.Concat(analysis.Strengths, analysis.Weaknesses, analysis.SuggestedImprovements, analysis.KeySkills)
			for _, v := range all {
				if strings.ContainsAny(v, "<>") {
					t.Fatalf("markup returned to the caller: %q", v)
				}
			}
			if !slices.Equal(analysis.Strengths, []string{"Mentoring"}) || !slices.Equal(analysis.KeySkills, []string{"Go"}) {
				t.Fatalf("unexpected analysis: %+v", analysis)
			}
		})
	}
}

func TestAnalyzeUpstreamFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		err      error
		want     error
	}{
		{name: "not json", response: "secret-body-text", want: ErrInvalidUpstreamResponse},
		{name: "array", response: `["a"]`, want: ErrInvalidUpstreamResponse},
		{name: "missing field", response: `{"strengths":[],"weaknesses":[],"suggestedImprovements":[]}`, want: ErrInvalidUpstreamResponse},
		{name: "wrong type", response: `{"strengths":"x","weaknesses":[],"suggestedImprovements":[],"keySkills":[]}`, want: ErrInvalidUpstreamResponse},
		{name: "transport", err: ai.ErrEmptyResponse, want: ai.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubCompleter{response: tt.response, err: tt.err}
			analyzer := NewAnalyzer(stub, nil, "development", false)

			_, err := analyzer.Analyze(context.Background(), "Experienced accountant")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if strings.Contains(err.Error(), "secret-body-text") {
				t.Fatalf("error must not include the raw response: %v", err)
			}
		})
	}
}

func TestAnalyzeNotConfigured(t *testing.T) {
	t.Parallel()

	analyzer := NewAnalyzer(nil, nil, "development", false)
	if _, err := analyzer.Analyze(context.Background(), "resume"); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAnalyzeDiagnosticsGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		environment string
		debug       bool
		wantLogs    bool
	}{
		{name: "debug in development", environment: "development", debug: true, wantLogs: true},
		{name: "debug in production", environment: "production", debug: true, wantLogs: false},
		{name: "no debug", environment: "development", debug: false, wantLogs: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			stub := &stubCompleter{response: validResponse}
			analyzer := NewAnalyzer(stub, zap.New(core), tt.environment, tt.debug)

			if _, err := analyzer.Analyze(context.Background(), "token=abc123 Go developer"); err != nil {
				t.Fatalf("Analyze error: %v", err)
			}

			if got := logs.Len() > 0; got != tt.wantLogs {
				t.Fatalf("expected logs=%v, got %d entries", tt.wantLogs, logs.Len())
			}
			for _, entry := range logs.All() {
				for _, field := range entry.Context {
					if strings.Contains(field.String, "abc123") {
						t.Fatalf("credential leaked into log field %s", field.Key)
					}
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	out, ok := Normalize(map[string]any{
		"strengths": []any{"<p>Clear</p>"},
		"keySkills": "Go",
	})
	if !ok {
		t.Fatal("expected analysis shaped object")
	}
	if len(out.Strengths) != 1 || out.Strengths[0] != "Clear" {
		t.Fatalf("unexpected strengths: %v", out.Strengths)
	}
	if len(out.KeySkills) != 1 || out.KeySkills[0] != "Go" {
		t.Fatalf("expected scalar to become a one element array, got %v", out.KeySkills)
	}
	if out.Weaknesses == nil || len(out.Weaknesses) != 0 {
		t.Fatalf("expected empty non-nil weaknesses, got %#v", out.Weaknesses)
	}

	if _, ok := Normalize(map[string]any{"content": "hello"}); ok {
		t.Fatal("unrelated object must not be treated as an analysis")
	}
}

func TestMergeSkills(t *testing.T) {
	t.Parallel()

	existing := []string{"Go", "Docker"}
	merged := MergeSkills(existing, []string{"go", " Kubernetes ", "", "DOCKER", "SQL"})
	want := []string{"Go", "Docker", "Kubernetes", "SQL"}
	if strings.Join(merged, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, merged)
	}

	again := MergeSkills(merged, []string{"Go"})
	if strings.Join(again, ",") != strings.Join(merged, ",") {
		t.Fatalf("adding an existing skill must be idempotent, got %v", again)
	}
}

func TestStrengthsToBio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		bio       string
		strengths []string
		want      string
	}{
		{name: "empty bio", bio: "", strengths: []string{"Leadership", " "}, want: "Leadership"},
		{name: "existing bio", bio: "Engineer in Nairobi", strengths: []string{"Mentoring", "Testing"}, want: "Engineer in Nairobi\nMentoring\nTesting"},
		{name: "no strengths", bio: "Engineer", strengths: nil, want: "Engineer"},
	}

	for _, tt := range tests {
		if got := StrengthsToBio(tt.bio, tt.strengths); got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
