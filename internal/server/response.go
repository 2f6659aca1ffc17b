package server

import "github.com/gofiber/fiber/v3"

// Envelope wraps every API response. Stack is set only for server errors
// outside production.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Stack   string `json:"stack,omitempty"`
}

const (
	MessageOK                  = "ok"
	MessageCreated             = "created"
	MessageBadRequest          = "bad request"
	MessageUnauthorized        = "unauthorized"
	MessageNotFound            = "not found"
	MessageBadGateway          = "upstream service failed"
	MessageInternalServerError = "internal server error"
	MessageError               = "error"
)

func success(c fiber.Ctx, status int, data any) error {
	msg := MessageOK
	if status == fiber.StatusCreated {
		msg = MessageCreated
	}
	return c.Status(status).JSON(Envelope{Status: status, Message: msg, Data: data})
}

func ok(c fiber.Ctx, data any) error {
	return success(c, fiber.StatusOK, data)
}

func created(c fiber.Ctx, data any) error {
	return success(c, fiber.StatusCreated, data)
}

func defaultMessageForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return MessageBadRequest
	case fiber.StatusUnauthorized:
		return MessageUnauthorized
	case fiber.StatusNotFound:
		return MessageNotFound
	case fiber.StatusBadGateway:
		return MessageBadGateway
	default:
		if status >= 500 {
			return MessageInternalServerError
		}
		return MessageError
	}
}
