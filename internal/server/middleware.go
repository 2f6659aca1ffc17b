package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/auth"
	"github.com/kaziconnect/kaziconnect/internal/logger"
)

const (
	headerRequestID = "X-Request-ID"
	localsClaims    = "claims"
)

func (s *Server) accessLog() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		rid := c.Get(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(headerRequestID, rid)

		err := c.Next()

		s.logger.Info("http access",
			zap.String(logger.FieldRequestID, rid),
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get("User-Agent")),
		)
		return err
	}
}

// requireAuth accepts only non-revoked access tokens.
func (s *Server) requireAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerToken(c.Get("Authorization"))
		if !ok {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		claims, err := s.svc.Auth.Authenticate(c.Context(), token)
		if err != nil {
			return err
		}

		c.Locals(localsClaims, claims)
		return c.Next()
	}
}

func claimsFrom(c fiber.Ctx) auth.Claims {
	return fiber.Locals[auth.Claims](c, localsClaims)
}

func userID(c fiber.Ctx) string {
	return claimsFrom(c).UserID
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
