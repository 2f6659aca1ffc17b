package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited throttles calls to the wrapped completer. One Limited value is
// shared by every caller in the process.
type Limited struct {
	next    Completer
	limiter *rate.Limiter
}

// NewLimited wraps next with a token bucket. A non-positive perSecond
// disables throttling and returns next unchanged.
func NewLimited(next Completer, perSecond float64, burst int) Completer {
	if next == nil || perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *Limited) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for ai rate limit: %w", err)
	}
	return l.next.Complete(ctx, messages)
}

func (l *Limited) Provider() string {
	provider, _ := Describe(l.next)
	return provider
}

func (l *Limited) Model() string {
	_, model := Describe(l.next)
	return model
}
