// Package matching ranks job listings against a user's profile.
package matching

import (
	"cmp"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kaziconnect/kaziconnect/internal/ai"
	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/sanitize"
)

const (
	// KeywordMatchScore is given when any skill token appears in the job text.
	KeywordMatchScore = 0.75
	// DefaultScore is given when nothing matched or the AI call failed.
	DefaultScore = 0.5

	FailureExplanation   = "Could not analyze match. Basic recommendation."
	NoMatchExplanation   = "No matching skills found."
	AIMatchedExplanation = "Matched by AI analysis."

	DefaultConcurrency = 4
	MaxConcurrency     = 8
	DefaultAITimeout   = 30 * time.Second
)

var (
	ErrInvalidMatch = errors.New("invalid ai match response")
	ErrMissingScore = errors.New("ai match response has no numeric score")
)

//go:embed prompt.md
var systemPrompt string

type Strategy string

const (
	StrategyAI      Strategy = "ai"
	StrategyKeyword Strategy = "keyword"
	// StrategyFallback marks a failed AI call that degraded to DefaultScore.
	StrategyFallback Strategy = "fallback"
)

// Strategies lists every strategy in report order.
var Strategies = []Strategy{StrategyAI, StrategyKeyword, StrategyFallback}

type Result struct {
	Job           jobs.Listing `json:"job"`
	Score         float64      `json:"score"`
	Explanation   string       `json:"explanation"`
	Strategy      Strategy     `json:"strategy"`
	MatchedSkills []string     `json:"matched_skills,omitempty"`
	MissingSkills []string     `json:"missing_skills,omitempty"`
}

type Config struct {
	Concurrency int
	AITimeout   time.Duration
}

type Scorer struct {
	completer   ai.Completer
	logger      *zap.Logger
	concurrency int
	timeout     time.Duration
}

// EffectiveConcurrency returns the number of provider calls a scorer keeps in
// flight for the configured value n.
func EffectiveConcurrency(n int) int {
	if n <= 0 {
		return DefaultConcurrency
	}
	return min(n, MaxConcurrency)
}

// NewScorer builds a scorer. Without a completer every listing is keyword
// matched.
func NewScorer(completer ai.Completer, cfg Config, log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = DefaultAITimeout
	}

	provider, model := ai.Describe(completer)
	return &Scorer{
		completer:   completer,
		logger:      logger.WithCommonFields(log, provider, model),
		concurrency: EffectiveConcurrency(cfg.Concurrency),
		timeout:     cfg.AITimeout,
	}
}

// Score returns one result per listing ordered by descending score. Listings
// with equal scores keep their input order. Failures never escape: a failed
// AI call yields DefaultScore.
func (s *Scorer) Score(ctx context.Context, profile model.Profile, listings []jobs.Listing) []Result {
	results := make([]Result, len(listings))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, l := range listings {
		if !s.useAI(profile, l) {
			results[i] = KeywordMatch(profile.Skills, l)
			continue
		}
		g.Go(func() error {
			results[i] = s.scoreWithAI(ctx, profile.ResumeText, l)
			return nil
		})
	}
	_ = g.Wait()

	Sort(results)
	return results
}

// Sort orders results by descending score, keeping the order of ties.
func Sort(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
}

func (s *Scorer) useAI(profile model.Profile, l jobs.Listing) bool {
	return s.completer != nil && l.HasStableCompanyReference() && profile.HasResume()
}

func (s *Scorer) scoreWithAI(ctx context.Context, resumeText string, l jobs.Listing) Result {
	d := l.Details()
	log := logger.WithFields(s.logger, logger.JobFields(d.ID, string(l.Source()))...)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.completer.Complete(callCtx, matchMessages(resumeText, l))
	if err == nil {
		var r Result
		r, err = ParseMatch(raw)
		if err == nil {
			r.Job = l
			log.Debug("ai match scored", zap.Float64("score", r.Score))
			return r
		}
	}

	log.Warn("ai match failed, using default score", zap.Error(err))
	return Result{
		Job:         l,
		Score:       DefaultScore,
		Explanation: FailureExplanation,
		Strategy:    StrategyFallback,
	}
}

func matchMessages(resumeText string, l jobs.Listing) []ai.Message {
	d := l.Details()
	var requirements string
	if local, ok := l.(jobs.Local); ok {
		requirements = strings.Join(local.Requirements, ", ")
	}

	return []ai.Message{
		ai.System(systemPrompt),
		ai.User(fmt.Sprintf("Compare this resume with the job requirements:\n\nResume:\n%s\n\nJob Title: %s\nDescription: %s\nRequirements: %s",
			sanitize.Input(resumeText), d.Title, d.Description, requirements)),
	}
}

// ParseMatch reads the AI answer. The score is divided by 100 and clamped to
// [0,1]; a missing or non-numeric score is an error.
func ParseMatch(raw string) (Result, error) {
	obj, err := ai.DecodeObject(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidMatch, err)
	}

	score := ai.CoerceFloat(obj["score"])
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Result{}, ErrMissingScore
	}

	matched, _ := ai.StringSlice(obj["matchedSkills"])
	missing, _ := ai.StringSlice(obj["missingSkills"])
	explanation := sanitize.StripTags(ai.CoerceString(obj["recommendation"]))
	if explanation == "" {
		explanation = AIMatchedExplanation
	}

	return Result{
		Score:         math.Min(math.Max(score/100, 0), 1),
		Explanation:   explanation,
		Strategy:      StrategyAI,
		MatchedSkills: sanitize.StripAll(matched),
		MissingSkills: sanitize.StripAll(missing),
	}, nil
}

// KeywordMatch tests each whitespace separated token of each skill against
// the lower-cased title and description. The first hit wins.
func KeywordMatch(skills []string, l jobs.Listing) Result {
	text := jobs.Text(l)
	for _, skill := range skills {
		for _, token := range strings.Fields(strings.ToLower(skill)) {
			if strings.Contains(text, token) {
				return Result{
					Job:           l,
					Score:         KeywordMatchScore,
					Explanation:   "Matched by skill keyword: " + token,
					Strategy:      StrategyKeyword,
					MatchedSkills: []string{strings.TrimSpace(skill)},
				}
			}
		}
	}
	return Result{Job: l, Score: DefaultScore, Explanation: NoMatchExplanation, Strategy: StrategyKeyword}
}
