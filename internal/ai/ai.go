// Package ai holds the provider independent contract for chat completions
// plus helpers for reading JSON out of model responses.
package ai

import (
	"context"
	"errors"
	"strings"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	// ErrNotConfigured is returned when no provider credentials are available.
	ErrNotConfigured = errors.New("ai provider is not configured")
	// ErrEmptyResponse is returned when a provider answers without content.
	ErrEmptyResponse = errors.New("ai provider returned empty response")
	// ErrInvalidMessages is returned for an empty or malformed conversation.
	ErrInvalidMessages = errors.New("invalid chat messages")
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer sends a conversation to a chat completion provider and returns
// the text of the first answer.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Described is implemented by completers that can name their provider and
// model for logging.
type Described interface {
	Provider() string
	Model() string
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// ValidateMessages checks that there is at least one message and every
// message has a known role and non-empty content.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return ErrInvalidMessages
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return ErrInvalidMessages
		}
		if strings.TrimSpace(m.Content) == "" {
			return ErrInvalidMessages
		}
	}
	return nil
}

// Describe returns provider and model names when c exposes them.
func Describe(c Completer) (provider, model string) {
	if d, ok := c.(Described); ok {
		return d.Provider(), d.Model()
	}
	return "", ""
}
