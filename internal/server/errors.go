package server

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/adzuna"
	"github.com/kaziconnect/kaziconnect/internal/ai"
	"github.com/kaziconnect/kaziconnect/internal/auth"
	"github.com/kaziconnect/kaziconnect/internal/catalog"
	"github.com/kaziconnect/kaziconnect/internal/interview"
	"github.com/kaziconnect/kaziconnect/internal/profile"
	"github.com/kaziconnect/kaziconnect/internal/resume"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

type AppError struct {
	StatusCode int
	Message    string
	Data       any
	Cause      error

	stack []byte
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewAppError(statusCode int, message string, data any, cause error) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Data: data, Cause: cause}
}

func badRequest(err error) *AppError {
	return NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
}

// upstream hides the cause behind a fixed user message.
func upstream(message string, err error) *AppError {
	return NewAppError(fiber.StatusBadGateway, message, nil, err)
}

// errorMiddleware turns handler errors and panics into the response envelope.
func (s *Server) errorMiddleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				s.logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Path()),
					zap.ByteString("stack", stack),
				)
				appErr := NewAppError(fiber.StatusInternalServerError, MessageInternalServerError, nil, fmt.Errorf("panic: %v", r))
				appErr.stack = stack
				err = s.writeError(c, appErr)
			}
		}()

		if err = c.Next(); err == nil {
			return nil
		}
		return s.writeError(c, err)
	}
}

func (s *Server) writeError(c fiber.Ctx, err error) error {
	appErr := mapError(err)

	env := Envelope{Status: appErr.StatusCode, Message: appErr.Message, Data: appErr.Data}
	if appErr.StatusCode >= 500 {
		s.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", appErr.StatusCode),
			zap.Error(err),
		)
		if !s.production() {
			env.Stack = stackTrace(err)
		}
	}
	return c.Status(appErr.StatusCode).JSON(env)
}

// stackTrace renders the error chain followed by the goroutine stack. A
// recovered panic keeps the stack taken at the panic site.
func stackTrace(err error) string {
	var appErr *AppError
	stack := debug.Stack()
	if errors.As(err, &appErr) && appErr.stack != nil {
		stack = appErr.stack
	}
	return err.Error() + "\n\n" + string(stack)
}

// mapError resolves domain errors to a status and a message safe to show to
// clients.
func mapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode <= 0 {
			return NewAppError(fiber.StatusInternalServerError, MessageInternalServerError, nil, err)
		}
		if appErr.Message == "" {
			appErr.Message = defaultMessageForStatus(appErr.StatusCode)
		}
		return appErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status := fiberErr.Code
		if status <= 0 || status >= 500 {
			return NewAppError(fiber.StatusInternalServerError, MessageInternalServerError, nil, err)
		}
		msg := fiberErr.Message
		if msg == "" {
			msg = defaultMessageForStatus(status)
		}
		return NewAppError(status, msg, nil, err)
	}

	var validation *catalog.ValidationError
	if errors.As(err, &validation) {
		return NewAppError(fiber.StatusBadRequest, "Validation failed", validation.Fields, err)
	}

	var fetchErr *adzuna.FetchError
	if errors.As(err, &fetchErr) {
		return upstream(adzuna.UserMessage, err)
	}

	switch {
	case errors.Is(err, catalog.ErrCompanyExists):
		return NewAppError(fiber.StatusBadRequest, "Company already exists", nil, err)
	case errors.Is(err, catalog.ErrCompanyNameTaken):
		return NewAppError(fiber.StatusBadRequest, "Company name already exists", nil, err)
	case errors.Is(err, auth.ErrEmailAlreadyRegistered):
		return NewAppError(fiber.StatusBadRequest, "Email already registered", nil, err)
	case errors.Is(err, storage.ErrDuplicate):
		return NewAppError(fiber.StatusBadRequest, "Already exists", nil, err)
	case errors.Is(err, storage.ErrNotFound):
		return NewAppError(fiber.StatusNotFound, "Not found", nil, err)

	case errors.Is(err, auth.ErrInvalidCredentials):
		return NewAppError(fiber.StatusUnauthorized, "Invalid email or password", nil, err)
	case errors.Is(err, auth.ErrTokenExpired):
		return NewAppError(fiber.StatusUnauthorized, "Token expired", nil, err)
	case errors.Is(err, auth.ErrTokenRevoked):
		return NewAppError(fiber.StatusUnauthorized, "Token revoked", nil, err)
	case errors.Is(err, auth.ErrUnauthorized):
		return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, err)

	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, profile.ErrInvalidInput),
		errors.Is(err, resume.ErrInvalidInput),
		errors.Is(err, interview.ErrInvalidInput),
		errors.Is(err, ai.ErrInvalidMessages):
		return badRequest(err)

	case errors.Is(err, resume.ErrInvalidUpstreamResponse):
		return upstream(resume.UserMessage, err)
	case errors.Is(err, interview.ErrNoQuestions), errors.Is(err, interview.ErrInvalidPayload):
		return upstream(interview.UserMessage, err)
	case errors.Is(err, ai.ErrNotConfigured), errors.Is(err, ai.ErrEmptyResponse):
		return upstream(MessageBadGateway, err)
	}

	return NewAppError(fiber.StatusInternalServerError, MessageInternalServerError, nil, err)
}
