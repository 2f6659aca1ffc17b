// Package auth registers users and issues JWT session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

const MinPasswordLength = 8

var validate = validator.New()

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenRevoked           = errors.New("token revoked")
)

// Revoker is the token denylist. internal/cache implements it on Redis.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) bool
}

type Users interface {
	storage.UserStore
	storage.ProfileStore
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email    string
	Password string
}

type Session struct {
	User         model.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

type Service struct {
	users   Users
	tokens  *Tokens
	revoker Revoker
	logger  *zap.Logger
	cost    int
}

func NewService(users Users, tokens *Tokens, revoker Revoker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, tokens: tokens, revoker: revoker, logger: logger, cost: bcrypt.DefaultCost}
}

// SetPasswordCost changes the bcrypt cost for new hashes. Out of range
// values are ignored.
func (s *Service) SetPasswordCost(cost int) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return
	}
	s.cost = cost
}

// Register creates the user and an empty profile owned by it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || utf8.RuneCountInString(strings.TrimSpace(in.Password)) < MinPasswordLength {
		return nil, ErrInvalidInput
	}
	// bcrypt only hashes the first 72 bytes.
	if len(in.Password) > 72 {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Role:         model.RoleUser,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.users.SaveProfile(ctx, &model.Profile{UserID: u.ID, FullName: u.Name, Skills: []string{}}); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return s.session(*u)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.session(*u)
}

// Refresh rotates the pair. The presented refresh token is revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if s.revoked(ctx, claims) {
		return nil, ErrTokenRevoked
	}

	u, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	sess, err := s.session(*u)
	if err != nil {
		return nil, err
	}
	s.revoke(ctx, claims)
	return sess, nil
}

// Authenticate validates an access token and checks the denylist.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Claims, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return Claims{}, err
	}
	if s.revoked(ctx, claims) {
		return Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the access token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, claims Claims) error {
	if s.revoker == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.TTL(s.tokens.now()))
}

func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *Service) session(u model.User) (*Session, error) {
	access, err := s.tokens.Access(u)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.Refresh(u)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	u.PasswordHash = ""
	return &Session{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) revoked(ctx context.Context, c Claims) bool {
	return s.revoker != nil && s.revoker.IsRevoked(ctx, c.ID)
}

func (s *Service) revoke(ctx context.Context, c Claims) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.Revoke(ctx, c.ID, c.TTL(s.tokens.now())); err != nil {
		s.logger.Warn("failed to revoke rotated token", zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return ""
	}
	return email
}
