package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/storage/sqlite"
)

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (m *memRevoker) Revoke(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[string]time.Duration{}
	}
	m.revoked[id] = ttl
	return nil
}

func (m *memRevoker) IsRevoked(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok
}

func newTestService(t *testing.T) (*Service, *sqlite.Store, *memRevoker) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	revoker := &memRevoker{}
	svc := NewService(store, NewTokens("access-secret", "refresh-secret", time.Hour, 24*time.Hour), revoker, nil)
	svc.cost = bcrypt.MinCost
	return svc, store, revoker
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "empty email", in: RegisterInput{Password: "longenough"}},
		{name: "malformed email", in: RegisterInput{Email: "not-an-email", Password: "longenough"}},
		{name: "display name form", in: RegisterInput{Email: "Amina <amina@example.com>", Password: "longenough"}},
		{name: "missing domain", in: RegisterInput{Email: "amina@", Password: "longenough"}},
		{name: "short password", in: RegisterInput{Email: "a@example.com", Password: "short"}},
		{name: "whitespace password", in: RegisterInput{Email: "a@example.com", Password: "   abc   "}},
	}

	for _, tt := range tests {
		if _, err := svc.Register(ctx, tt.in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tt.name, err)
		}
	}
}

func TestRegisterCreatesUserAndProfile(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Email: "  Amina@Example.com ", Password: "supersecret", Name: "Amina"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if sess.User.Email != "amina@example.com" {
		t.Fatalf("expected lower-cased email, got %q", sess.User.Email)
	}
	if sess.User.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", sess)
	}

	profile, err := store.GetProfile(ctx, sess.User.ID)
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if profile.FullName != "Amina" || len(profile.Skills) != 0 {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := svc.Register(ctx, RegisterInput{Email: "amina@example.com", Password: "anothersecret"}); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "otieno@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "otieno@example.com", Password: "wrong-horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "correct-horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	sess, err := svc.Login(ctx, LoginInput{Email: "OTIENO@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	claims, err := svc.Authenticate(ctx, sess.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if claims.UserID != sess.User.ID || claims.Email != "otieno@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	me, err := svc.Me(ctx, claims.UserID)
	if err != nil || me.PasswordHash != "" {
		t.Fatalf("unexpected Me result: %+v, %v", me, err)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	t.Parallel()

	svc, _, revoker := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Email: "kamau@example.com", Password: "pa55word!"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if _, err := svc.Refresh(ctx, sess.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if next.AccessToken == "" {
		t.Fatal("expected new access token")
	}
	if _, err := svc.Refresh(ctx, sess.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected rotated refresh token to be revoked, got %v", err)
	}

	claims, err := svc.Authenticate(ctx, next.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if ttl := revoker.revoked[claims.ID]; ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected revocation for the remaining lifetime, got %s", ttl)
	}
	if _, err := svc.Authenticate(ctx, next.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
}

func TestTokensExpiry(t *testing.T) {
	t.Parallel()

	tokens := NewTokens("a", "r", time.Minute, time.Hour)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	tok, err := tokens.Access(model.User{ID: "u1"})
	if err != nil {
		t.Fatalf("Access error: %v", err)
	}

	if _, err := tokens.ValidateAccess(tok); err != nil {
		t.Fatalf("ValidateAccess error: %v", err)
	}

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.ValidateAccess(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	if _, err := tokens.ValidateRefresh(tok); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("access token signed with another secret must be rejected, got %v", err)
	}
	if _, err := tokens.ValidateAccess("garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage, got %v", err)
	}
}
