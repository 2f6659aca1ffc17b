// Package server exposes the job board over HTTP.
package server

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/adzuna"
	"github.com/kaziconnect/kaziconnect/internal/ai"
	"github.com/kaziconnect/kaziconnect/internal/auth"
	"github.com/kaziconnect/kaziconnect/internal/catalog"
	"github.com/kaziconnect/kaziconnect/internal/matching"
	"github.com/kaziconnect/kaziconnect/internal/profile"
	"github.com/kaziconnect/kaziconnect/internal/resume"
)

const productionEnvironment = "production"

type Matcher interface {
	Run(ctx context.Context, userID string) ([]matching.Result, error)
}

type ResumeAnalyzer interface {
	Analyze(ctx context.Context, text string) (*resume.Analysis, error)
}

type QuestionGenerator interface {
	Generate(ctx context.Context, jobRole string) ([]string, error)
}

type Config struct {
	Environment string
	CORSOrigins []string
	BodyLimit   int
}

// Services are the domain services behind the routes. Completer and
// JobSearch may be nil when the provider is not configured.
type Services struct {
	Auth      *auth.Service
	Catalog   *catalog.Service
	Profile   *profile.Service
	Matcher   Matcher
	Analyzer  ResumeAnalyzer
	Interview QuestionGenerator
	Completer ai.Completer
	JobSearch adzuna.Searcher
}

type Server struct {
	app    *fiber.App
	cfg    Config
	svc    Services
	logger *zap.Logger
}

func New(cfg Config, svc Services, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 1 << 20
	}

	s := &Server{
		app:    fiber.New(fiber.Config{AppName: "kaziconnect", BodyLimit: cfg.BodyLimit}),
		cfg:    cfg,
		svc:    svc,
		logger: log,
	}

	s.app.Use(s.accessLog())
	s.app.Use(s.errorMiddleware())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg.CORSOrigins),
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", headerRequestID},
	}))
	s.routes()

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) production() bool {
	return strings.EqualFold(strings.TrimSpace(s.cfg.Environment), productionEnvironment)
}

func (s *Server) routes() {
	requireAuth := s.requireAuth()

	api := s.app.Group("/api")
	api.Get("/health", s.health)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", s.register)
	authGroup.Post("/login", s.login)
	authGroup.Post("/refresh", s.refresh)
	authGroup.Post("/logout", requireAuth, s.logout)
	authGroup.Get("/me", requireAuth, s.me)

	api.Get("/jobs", s.listJobs)
	api.Post("/jobs", requireAuth, s.createJob)
	api.Get("/jobs/:id", s.getJob)
	api.Put("/jobs/:id", requireAuth, s.updateJob)

	api.Get("/companies", s.listCompanies)
	api.Post("/companies", requireAuth, s.createCompany)
	api.Get("/companies/:id", s.getCompany)
	api.Put("/companies/:id", requireAuth, s.updateCompany)

	api.Get("/resources", s.listResources)
	api.Post("/resources", requireAuth, s.createResource)
	api.Get("/resources/:id", s.getResource)
	api.Put("/resources/:id", requireAuth, s.updateResource)

	api.Get("/profile", requireAuth, s.getProfile)
	api.Put("/profile", requireAuth, s.updateProfile)
	api.Post("/profile/skills", requireAuth, s.addSkills)
	api.Delete("/profile/skills/:skill", requireAuth, s.removeSkill)
	api.Post("/profile/bio/strengths", requireAuth, s.appendStrengths)

	api.Get("/applications", requireAuth, s.listApplications)
	api.Post("/applications", requireAuth, s.apply)
	api.Get("/saved-jobs", requireAuth, s.listSavedJobs)
	api.Post("/saved-jobs", requireAuth, s.saveJob)

	api.Get("/match", requireAuth, s.match)
	api.Post("/ai/analyze-resume", requireAuth, s.analyzeResume)
	api.Post("/ai/interview-questions", requireAuth, s.interviewQuestions)

	functions := s.app.Group("/functions/v1")
	functions.Get("/ai-analyze", s.aiStatus)
	functions.Post("/ai-analyze", requireAuth, s.aiAnalyze)
	functions.Post("/fetch-adzuna", requireAuth, s.fetchAdzuna)
}

func (s *Server) health(c fiber.Ctx) error {
	return ok(c, fiber.Map{"status": "ok"})
}

func corsOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
