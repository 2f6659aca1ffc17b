package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kaziconnect/kaziconnect/internal/adzuna"
	"github.com/kaziconnect/kaziconnect/internal/ai"
	"github.com/kaziconnect/kaziconnect/internal/ai/xai"
	"github.com/kaziconnect/kaziconnect/internal/matching"
)

func TestOpenStore(t *testing.T) {
	t.Parallel()

	store, err := openStore(context.Background(), &StorageConfig{Driver: "SQLite", Path: filepath.Join(t.TempDir(), "db", "kazi.db")})
	if err != nil {
		t.Fatalf("openStore sqlite: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tests := []struct {
		name string
		cfg  StorageConfig
	}{
		{name: "unknown driver", cfg: StorageConfig{Driver: "mysql"}},
		{name: "postgres without dsn", cfg: StorageConfig{Driver: "postgres"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := openStore(context.Background(), &tt.cfg); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestNewCompleter(t *testing.T) {
	t.Setenv("XAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := func(provider, key string) *AIConfig {
		return &AIConfig{
			Provider:      provider,
			RatePerSecond: 5,
			XAI:           &XAIConfig{APIKey: key},
			Gemini:        &GeminiConfig{},
		}
	}

	completer, err := newCompleter(context.Background(), cfg("xai", ""), 1, zap.NewNop())
	if err != nil || completer != nil {
		t.Fatalf("expected nil completer without a key, got %v, %v", completer, err)
	}

	completer, err = newCompleter(context.Background(), cfg("gemini", ""), 1, zap.NewNop())
	if err != nil || completer != nil {
		t.Fatalf("expected nil gemini completer without a key, got %v, %v", completer, err)
	}

	if _, err := newCompleter(context.Background(), cfg("openai", "k"), 1, zap.NewNop()); err == nil {
		t.Fatal("expected an unsupported provider error")
	}

	core, logs := observer.New(zapcore.InfoLevel)
	completer, err = newCompleter(context.Background(), cfg("XAI", "secret-key"), matching.EffectiveConcurrency(6), zap.New(core))
	if err != nil {
		t.Fatalf("newCompleter: %v", err)
	}
	if _, ok := completer.(*ai.Limited); !ok {
		t.Fatalf("expected a rate limited completer, got %T", completer)
	}
	if provider, model := ai.Describe(completer); provider != xai.Provider || model != xai.DefaultModel {
		t.Fatalf("unexpected provider %q model %q", provider, model)
	}

	configured := logs.FilterMessage("ai provider configured").All()
	if len(configured) != 1 {
		t.Fatalf("expected one configured entry, got %d", len(configured))
	}
	if burst := configured[0].ContextMap()["burst"]; burst != int64(6) {
		t.Fatalf("expected burst to follow match concurrency, got %v", burst)
	}
}

func TestNewSearcher(t *testing.T) {
	t.Setenv("ADZUNA_APP_KEY", "")

	tests := []struct {
		name  string
		cfg   AdzunaConfig
		check func(t *testing.T, s adzuna.Searcher)
	}{
		{
			name: "direct credentials",
			cfg:  AdzunaConfig{AppID: "id", AppKey: "key", ProxyURL: "https://proxy.example"},
			check: func(t *testing.T, s adzuna.Searcher) {
				if _, ok := s.(*adzuna.Client); !ok {
					t.Fatalf("expected *adzuna.Client, got %T", s)
				}
			},
		},
		{
			name: "proxy fallback",
			cfg:  AdzunaConfig{AppID: "id", ProxyURL: "https://proxy.example", ProxyToken: "t"},
			check: func(t *testing.T, s adzuna.Searcher) {
				if _, ok := s.(*adzuna.ProxyClient); !ok {
					t.Fatalf("expected *adzuna.ProxyClient, got %T", s)
				}
			},
		},
		{
			name: "nothing configured",
			cfg:  AdzunaConfig{},
			check: func(t *testing.T, s adzuna.Searcher) {
				if s != nil {
					t.Fatalf("expected nil searcher, got %T", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newSearcher(&tt.cfg, zap.NewNop())
			if err != nil {
				t.Fatalf("newSearcher: %v", err)
			}
			tt.check(t, s)
		})
	}
}

func TestNewAuthSecrets(t *testing.T) {
	t.Parallel()

	if _, err := newAuth(&AuthConfig{AccessSecret: "same", RefreshSecret: "same"}, nil, nil, zap.NewNop()); err == nil {
		t.Fatal("expected an error for identical secrets")
	}
	if _, err := newAuth(&AuthConfig{AccessSecret: "a"}, nil, nil, zap.NewNop()); err == nil {
		t.Fatal("expected an error for a missing refresh secret")
	}
	if _, err := newAuth(&AuthConfig{AccessSecret: "a", RefreshSecret: "r", BcryptCost: 4}, nil, nil, zap.NewNop()); err != nil {
		t.Fatalf("newAuth: %v", err)
	}
}

func TestRedactedMasksSecrets(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Auth:    &AuthConfig{AccessSecret: "access", RefreshSecret: "refresh"},
		AI:      &AIConfig{XAI: &XAIConfig{APIKey: "xai-key"}, Gemini: &GeminiConfig{}},
		Adzuna:  &AdzunaConfig{AppID: "id", AppKey: "key"},
		Storage: &StorageConfig{DSN: "postgres://user:pass@db/kazi"},
		Redis:   &RedisConfig{},
	}

	out := redacted(cfg)

	if out.Auth.AccessSecret != "***" || out.AI.XAI.APIKey != "***" || out.Adzuna.AppKey != "***" || out.Storage.DSN != "***" {
		t.Fatalf("secrets not masked: %+v %+v %+v %+v", out.Auth, out.AI.XAI, out.Adzuna, out.Storage)
	}
	if out.Adzuna.AppID != "id" || out.Redis.URL != "" || out.AI.Gemini.APIKey != "" {
		t.Fatal("non-secret or empty values must be kept")
	}
	if cfg.Auth.AccessSecret != "access" || cfg.AI.XAI.APIKey != "xai-key" {
		t.Fatal("original config was modified")
	}
}

func TestSearchRequest(t *testing.T) {
	t.Parallel()

	req := searchRequest(&AdzunaConfig{Country: "gb", What: " golang ", Where: ""})
	if req.Country != "gb" || req.Params["what"] != "golang" {
		t.Fatalf("unexpected request %+v", req)
	}
	if _, ok := req.Params["where"]; ok {
		t.Fatal("empty where must be omitted")
	}
}
