// Package interview generates practice interview questions for a job role.
package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/ai"
	"github.com/kaziconnect/kaziconnect/internal/sanitize"
)

const (
	MaxRoleLength = 200
	QuestionCount = 10
	UserMessage   = "Failed to generate interview questions. Please try again later."
)

var (
	ErrInvalidInput   = errors.New("invalid job role")
	ErrNoQuestions    = errors.New("no valid questions were generated")
	ErrInvalidPayload = errors.New("interview questions response is not an array")
)

const systemPrompt = `You are an expert technical interviewer. Generate relevant interview questions based on the job role.
Focus on both technical and behavioral questions that are commonly asked in interviews.
Return exactly 10 questions as a JSON array of strings.
Make the questions specific to the role and include a mix of technical skills assessment, problem-solving abilities, role-specific scenarios, behavioral questions and experience-based questions.
Never include personal identifiable information or sensitive data in the questions.`

type Generator struct {
	completer ai.Completer
	logger    *zap.Logger
}

func NewGenerator(completer ai.Completer, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{completer: completer, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, jobRole string) ([]string, error) {
	if strings.TrimSpace(jobRole) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(jobRole); n > MaxRoleLength {
		return nil, fmt.Errorf("%w: %d characters, maximum is %d", ErrInvalidInput, n, MaxRoleLength)
	}

	role := sanitize.Text(jobRole)
	if role == "" {
		return nil, fmt.Errorf("%w: empty after sanitizing", ErrInvalidInput)
	}
	if g.completer == nil {
		return nil, ai.ErrNotConfigured
	}

	raw, err := g.completer.Complete(ctx, []ai.Message{
		ai.System(systemPrompt),
		ai.User(fmt.Sprintf("Generate %d interview questions for a %s position. Return them as a JSON array of strings.", QuestionCount, role)),
	})
	if err != nil {
		return nil, fmt.Errorf("interview questions: %w", err)
	}

	questions, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("interview questions generated", zap.Int("count", len(questions)))
	return questions, nil
}

// Parse accepts a JSON array, optionally fenced or wrapped in prose, and
// returns the non-empty questions with markup removed.
func Parse(raw string) ([]string, error) {
	var items []any
	cleaned := ai.ExtractJSON(raw)
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		slice := ai.BracketSlice(cleaned)
		if slice == "" {
			return nil, ErrInvalidPayload
		}
		if err := json.Unmarshal([]byte(slice), &items); err != nil {
			return nil, ErrInvalidPayload
		}
	}

	questions := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if q := sanitize.StripTags(s); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}
