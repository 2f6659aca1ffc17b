package auth

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kaziconnect/kaziconnect/internal/model"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID    string     `json:"user_id"`
	Email     string     `json:"email,omitempty"`
	Role      model.Role `json:"role,omitempty"`
	TokenType string     `json:"token_type"`

	jwtlib.RegisteredClaims
}

// TTL is the time left before the token expires.
func (c Claims) TTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// Tokens signs and validates HS256 tokens. Access and refresh tokens use
// separate secrets so one can never be replayed as the other.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte

	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func NewTokens(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (t *Tokens) Access(u model.User) (string, error) {
	return t.generate(TokenTypeAccess, u)
}

func (t *Tokens) Refresh(u model.User) (string, error) {
	return t.generate(TokenTypeRefresh, model.User{ID: u.ID})
}

func (t *Tokens) ValidateAccess(token string) (Claims, error) {
	return t.validate(token, TokenTypeAccess)
}

func (t *Tokens) ValidateRefresh(token string) (Claims, error) {
	return t.validate(token, TokenTypeRefresh)
}

func (t *Tokens) generate(tokenType string, u model.User) (string, error) {
	secret, ttl := t.secretAndTTL(tokenType)
	if len(secret) == 0 || ttl <= 0 {
		return "", errors.New("token signing not configured")
	}

	now := t.now().UTC()
	c := Claims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		TokenType: tokenType,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString(secret)
}

func (t *Tokens) validate(token, tokenType string) (Claims, error) {
	secret, _ := t.secretAndTTL(tokenType)
	if len(secret) == 0 || token == "" {
		return Claims{}, ErrUnauthorized
	}

	p := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(t.now),
		jwtlib.WithExpirationRequired(),
	)

	var c Claims
	tok, err := p.ParseWithClaims(token, &c, func(*jwtlib.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrUnauthorized
	}
	if tok == nil || !tok.Valid || c.TokenType != tokenType || c.UserID == "" {
		return Claims{}, ErrUnauthorized
	}

	return c, nil
}

func (t *Tokens) secretAndTTL(tokenType string) ([]byte, time.Duration) {
	if tokenType == TokenTypeRefresh {
		return t.refreshSecret, t.refreshTTL
	}
	return t.accessSecret, t.accessTTL
}
