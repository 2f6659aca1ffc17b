// Package resume sends résumé text to an AI provider for structured feedback.
package resume

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/ai"
	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/sanitize"
)

// MaxLength is the largest accepted résumé, counted in characters.
const MaxLength = 50000

// UserMessage is the only failure text shown to end users.
const UserMessage = "Failed to analyze resume. Please try again later."

const defaultMaxLogLength = 200

var (
	ErrInvalidInput            = errors.New("invalid resume text")
	ErrInvalidUpstreamResponse = errors.New("invalid response from ai service")
)

//go:embed system.md
var systemPrompt string

type Analysis struct {
	Strengths             []string `json:"strengths"`
	Weaknesses            []string `json:"weaknesses"`
	SuggestedImprovements []string `json:"suggestedImprovements"`
	KeySkills             []string `json:"keySkills"`
}

var analysisKeys = []string{"strengths", "weaknesses", "suggestedImprovements", "keySkills"}

// slot returns the field stored under analysisKeys[i].
func (a *Analysis) slot(i int) *[]string {
	switch i {
	case 0:
		return &a.Strengths
	case 1:
		return &a.Weaknesses
	case 2:
		return &a.SuggestedImprovements
	default:
		return &a.KeySkills
	}
}

type Analyzer struct {
	completer   ai.Completer
	logger      *zap.Logger
	diagnostics bool
	maxLogLen   int
}

// NewAnalyzer builds an analyzer. Prompt and response previews are logged
// only when debug is set outside production.
func NewAnalyzer(completer ai.Completer, log *zap.Logger, environment string, debug bool) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{
		completer:   completer,
		logger:      log,
		diagnostics: logger.DiagnosticsEnabled(environment, debug),
		maxLogLen:   defaultMaxLogLength,
	}
}

// SetMaxLogLength bounds the previews logged in diagnostics mode.
func (a *Analyzer) SetMaxLogLength(n int) {
	if n > 0 {
		a.maxLogLen = n
	}
}

func (a *Analyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(text); n > MaxLength {
		return nil, fmt.Errorf("%w: %d characters, maximum is %d", ErrInvalidInput, n, MaxLength)
	}

	cleaned := sanitize.Input(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty after sanitizing", ErrInvalidInput)
	}
	if a.completer == nil {
		return nil, ai.ErrNotConfigured
	}

	messages := []ai.Message{
		ai.System(strings.TrimSpace(systemPrompt)),
		ai.User("Analyze this resume and provide feedback in the exact JSON format specified:\n\n" + cleaned),
	}

	log := a.logger
	if provider, model := ai.Describe(a.completer); provider != "" {
		log = logger.WithCommonFields(log, provider, model)
	}

	if a.diagnostics {
		log.Debug("sending resume analysis request",
			zap.Int("resume_length", utf8.RuneCountInString(cleaned)),
			zap.String("resume_preview", logger.Preview(cleaned, a.maxLogLen)),
		)
	}

	raw, err := a.completer.Complete(ctx, messages)
	if err != nil {
		if a.diagnostics {
			log.Debug("resume analysis request failed", zap.String("error", logger.Redact(err.Error())))
		}
		return nil, fmt.Errorf("resume analysis: %w", err)
	}

	if a.diagnostics {
		log.Debug("resume analysis response",
			zap.Int("response_length", utf8.RuneCountInString(raw)),
			zap.String("response_preview", logger.Preview(raw, a.maxLogLen)),
		)
	}

	analysis, err := Parse(raw)
	if err != nil {
		if a.diagnostics {
			log.Debug("resume analysis response rejected", zap.Error(err))
		}
		return nil, err
	}
	return analysis, nil
}

// Parse reads the provider answer. The returned error never contains the raw
// text.
func Parse(raw string) (*Analysis, error) {
	data, err := ai.DecodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: not a json object", ErrInvalidUpstreamResponse)
	}

	var out Analysis
	for i, key := range analysisKeys {
		values, ok := ai.StringSlice(data[key])
		if !ok {
			return nil, fmt.Errorf("%w: %s is not an array", ErrInvalidUpstreamResponse, key)
		}
		*out.slot(i) = sanitize.StripAll(values)
	}
	return &out, nil
}

// Normalize converts a decoded object that looks like an analysis into one
// with all four arrays present. ok is false when none of the fields exist.
func Normalize(data map[string]any) (out Analysis, ok bool) {
	for i, key := range analysisKeys {
		v, present := data[key]
		if present {
			ok = true
		}
		values, isSlice := ai.StringSlice(v)
		if !isSlice {
			values = nil
			if s := ai.CoerceString(v); s != "" {
				values = []string{s}
			}
		}
		*out.slot(i) = sanitize.StripAll(values)
	}
	return out, ok
}
