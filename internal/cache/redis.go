// Package cache keeps short-lived auth state in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const revokedPrefix = "auth:revoked:"

// Redis is a nil-safe wrapper. When Redis is unreachable every write is a
// no-op and every lookup reports "not revoked".
type Redis struct {
	client *redis.Client
	logger *zap.Logger

	warnedUnavailable atomic.Bool
}

// Connect parses a redis:// URL and pings the server. An empty URL or a
// failed ping returns a disabled cache and no error.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	url = strings.TrimSpace(url)
	if url == "" {
		logger.Info("redis url not configured, token revocation disabled")
		return New(nil, logger), nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, token revocation disabled", zap.Error(err))
		_ = client.Close()
		return New(nil, logger), nil
	}

	return New(client, logger), nil
}

// New wraps an existing client. A nil client gives a disabled cache.
func New(client *redis.Client, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, logger: logger}
}

func (r *Redis) Enabled() bool {
	return r != nil && r.client != nil
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r == nil || r.logger == nil {
		return
	}
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Warn("redis command failed, bypassing cache", zap.Error(err))
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errors.New("redis unavailable")
	}
	return r.client.Ping(ctx).Err()
}

// Revoke marks a token id as revoked until ttl elapses.
func (r *Redis) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if !r.Enabled() || tokenID == "" {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked fails open: a Redis error is logged once and reported as not
// revoked.
func (r *Redis) IsRevoked(ctx context.Context, tokenID string) bool {
	if !r.Enabled() || tokenID == "" {
		return false
	}
	n, err := r.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		r.warnUnavailableOnce(err)
		return false
	}
	return n > 0
}

func (r *Redis) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}
