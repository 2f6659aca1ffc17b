package server

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/adzuna"
	"github.com/kaziconnect/kaziconnect/internal/ai"
	"github.com/kaziconnect/kaziconnect/internal/interview"
	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/resume"
	"github.com/kaziconnect/kaziconnect/internal/sanitize"
)

var errJobSearchNotConfigured = errors.New("job search provider is not configured")

type analyzeResumeRequest struct {
	ResumeText      string `json:"resumeText"`
	AddSkills       bool   `json:"addSkills"`
	AppendStrengths bool   `json:"appendStrengths"`
}

type analyzeResumeResponse struct {
	Analysis *resume.Analysis `json:"analysis"`
	Profile  *model.Profile   `json:"profile,omitempty"`
}

type interviewRequest struct {
	JobRole string `json:"jobRole"`
}

type completionRequest struct {
	Messages []ai.Message `json:"messages"`
}

func (s *Server) match(c fiber.Ctx) error {
	if s.svc.Matcher == nil {
		return upstream(MessageBadGateway, errors.New("matcher is not configured"))
	}
	results, err := s.svc.Matcher.Run(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, results)
}

// analyzeResume runs the analysis and optionally applies the extracted key
// skills and strengths to the caller's profile.
func (s *Server) analyzeResume(c fiber.Ctx) error {
	var req analyzeResumeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if s.svc.Analyzer == nil {
		return upstream(resume.UserMessage, ai.ErrNotConfigured)
	}

	analysis, err := s.svc.Analyzer.Analyze(c.Context(), req.ResumeText)
	if err != nil {
		if errors.Is(err, resume.ErrInvalidInput) {
			return err
		}
		return upstream(resume.UserMessage, err)
	}

	resp := analyzeResumeResponse{Analysis: analysis}
	uid := userID(c)
	if req.AddSkills && len(analysis.KeySkills) > 0 {
		if resp.Profile, err = s.svc.Profile.AddSkills(c.Context(), uid, analysis.KeySkills); err != nil {
			return err
		}
	}
	if req.AppendStrengths && len(analysis.Strengths) > 0 {
		if resp.Profile, err = s.svc.Profile.AppendStrengths(c.Context(), uid, analysis.Strengths); err != nil {
			return err
		}
	}
	return ok(c, resp)
}

func (s *Server) interviewQuestions(c fiber.Ctx) error {
	var req interviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if s.svc.Interview == nil {
		return upstream(interview.UserMessage, ai.ErrNotConfigured)
	}

	questions, err := s.svc.Interview.Generate(c.Context(), req.JobRole)
	if err != nil {
		if errors.Is(err, interview.ErrInvalidInput) {
			return err
		}
		return upstream(interview.UserMessage, err)
	}
	return ok(c, fiber.Map{"questions": questions})
}

func (s *Server) aiStatus(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "configured": s.svc.Completer != nil})
}

// aiAnalyze forwards a conversation to the completion provider and answers
// with the decoded content rather than the envelope.
func (s *Server) aiAnalyze(c fiber.Ctx) error {
	var req completionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := ai.ValidateMessages(req.Messages); err != nil {
		return err
	}
	if s.svc.Completer == nil {
		return upstream(MessageBadGateway, ai.ErrNotConfigured)
	}

	messages := make([]ai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ai.Message{Role: m.Role, Content: sanitize.Input(m.Content)})
	}
	if err := ai.ValidateMessages(messages); err != nil {
		return err
	}

	raw, err := s.svc.Completer.Complete(c.Context(), messages)
	if err != nil {
		provider, modelName := ai.Describe(s.svc.Completer)
		s.logger.Warn("ai completion failed", append(logger.CommonFields(provider, modelName), zap.Error(err))...)
		return upstream(MessageBadGateway, err)
	}
	return c.JSON(completionPayload(raw))
}

// completionPayload decodes JSON content. Objects shaped like a résumé
// analysis are normalized, arrays become string lists and anything else is
// returned as {content: raw}.
func completionPayload(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &v); err != nil {
		return fiber.Map{"content": raw}
	}

	switch val := v.(type) {
	case map[string]any:
		if analysis, found := resume.Normalize(val); found {
			return analysis
		}
		return val
	case []any:
		items, _ := ai.StringSlice(val)
		return sanitize.StripAll(items)
	default:
		return fiber.Map{"content": raw}
	}
}

// fetchAdzuna proxies a search with the server's credentials and relays the
// upstream status and body unchanged.
func (s *Server) fetchAdzuna(c fiber.Ctx) error {
	var req adzuna.SearchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if s.svc.JobSearch == nil {
		return upstream(adzuna.UserMessage, errJobSearchNotConfigured)
	}

	resp, err := s.svc.JobSearch.Search(c.Context(), req)
	if err != nil {
		return upstream(adzuna.UserMessage, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.Status).Send(resp.Body)
}
