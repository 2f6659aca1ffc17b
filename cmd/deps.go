package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdlog "log"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/adzuna"
	"github.com/kaziconnect/kaziconnect/internal/ai"
	"github.com/kaziconnect/kaziconnect/internal/ai/gemini"
	"github.com/kaziconnect/kaziconnect/internal/ai/xai"
	"github.com/kaziconnect/kaziconnect/internal/auth"
	"github.com/kaziconnect/kaziconnect/internal/cache"
	"github.com/kaziconnect/kaziconnect/internal/catalog"
	"github.com/kaziconnect/kaziconnect/internal/interview"
	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/matching"
	"github.com/kaziconnect/kaziconnect/internal/profile"
	"github.com/kaziconnect/kaziconnect/internal/resume"
	"github.com/kaziconnect/kaziconnect/internal/secrets"
	"github.com/kaziconnect/kaziconnect/internal/server"
	"github.com/kaziconnect/kaziconnect/internal/storage"
	"github.com/kaziconnect/kaziconnect/internal/storage/postgres"
	"github.com/kaziconnect/kaziconnect/internal/storage/sqlite"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"

	providerXAI    = "xai"
	providerGemini = "gemini"

	connectTimeout = 5 * time.Second
)

// deps holds everything a command needs. Fields backed by optional providers
// stay nil when the provider is not configured.
type deps struct {
	config    *Config
	logger    *zap.Logger
	store     storage.Store
	cache     *cache.Redis
	completer ai.Completer
	search    adzuna.Searcher

	auth      *auth.Service
	catalog   *catalog.Service
	profile   *profile.Service
	matcher   *matching.Service
	analyzer  *resume.Analyzer
	interview *interview.Generator
}

func buildDeps(ctx context.Context, config *Config, log *zap.Logger, debug bool) (*deps, error) {
	d := &deps{config: config, logger: log}

	store, err := openStore(ctx, config.Storage)
	if err != nil {
		return nil, err
	}
	d.store = store

	if d.cache, err = cache.Connect(ctx, config.Redis.URL, log.Named("cache")); err != nil {
		d.Close()
		return nil, err
	}

	if d.completer, err = newCompleter(ctx, config.AI, matching.EffectiveConcurrency(config.Match.Concurrency), log); err != nil {
		d.Close()
		return nil, fmt.Errorf("building ai provider: %w", err)
	}

	if d.search, err = newSearcher(config.Adzuna, log); err != nil {
		d.Close()
		return nil, fmt.Errorf("building job search provider: %w", err)
	}

	if d.auth, err = newAuth(config.Auth, store, d.cache, log); err != nil {
		d.Close()
		return nil, err
	}

	d.catalog = catalog.NewService(store, log.Named("catalog"))
	d.profile = profile.NewService(store, log.Named("profile"))

	if d.completer != nil {
		d.analyzer = resume.NewAnalyzer(d.completer, log.Named("resume"), config.Environment, debug)
		d.analyzer.SetMaxLogLength(config.AI.MaxLogLength)
		d.interview = interview.NewGenerator(d.completer, log.Named("interview"))
	}

	scorer := matching.NewScorer(d.completer, matching.Config{
		Concurrency: config.Match.Concurrency,
		AITimeout:   config.Match.AITimeout,
	}, log.Named("matching"))

	var external matching.Fetcher
	if d.search != nil {
		external = adzuna.NewSource(d.search, searchRequest(config.Adzuna), log.Named("adzuna"))
	}

	d.matcher = matching.NewService(store, external, scorer, matching.Options{
		IncludeLocal:     config.Match.IncludeLocal,
		IncludeExternal:  config.Match.IncludeExternal,
		IncludeApplied:   config.Match.IncludeApplied,
		ExcludeCompanies: config.Match.ExcludeCompanies,
	}, log.Named("matching"))

	return d, nil
}

// services maps deps onto the server. Interfaces are only set for non-nil
// implementations so handlers can tell a missing provider apart.
func (d *deps) services() server.Services {
	svc := server.Services{
		Auth:      d.auth,
		Catalog:   d.catalog,
		Profile:   d.profile,
		Matcher:   d.matcher,
		Completer: d.completer,
		JobSearch: d.search,
	}
	if d.analyzer != nil {
		svc.Analyzer = d.analyzer
	}
	if d.interview != nil {
		svc.Interview = d.interview
	}
	return svc
}

func (d *deps) Close() {
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			d.logger.Warn("closing redis", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("closing store", zap.Error(err))
		}
	}
}

func openStore(ctx context.Context, cfg *StorageConfig) (storage.Store, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case driverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, errors.New("storage.dsn is required for the postgres driver")
		}
		store, err := postgres.Connect(ctx, postgres.Config{
			DSN:            cfg.DSN,
			MaxConns:       cfg.MaxConns,
			ConnectTimeout: connectTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return store, nil
	case "", driverSQLite:
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func newAuth(cfg *AuthConfig, users auth.Users, revoker *cache.Redis, log *zap.Logger) (*auth.Service, error) {
	access, err := secrets.Load(secrets.Source{
		Name:  "jwt access secret",
		Value: cfg.AccessSecret,
		File:  cfg.AccessSecretFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set auth.access-secret-file or KAZI_AUTH_ACCESS_SECRET)", err)
	}

	refresh, err := secrets.Load(secrets.Source{
		Name:  "jwt refresh secret",
		Value: cfg.RefreshSecret,
		File:  cfg.RefreshSecretFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set auth.refresh-secret-file or KAZI_AUTH_REFRESH_SECRET)", err)
	}
	if access == refresh {
		return nil, errors.New("jwt access and refresh secrets must differ")
	}

	svc := auth.NewService(users, auth.NewTokens(access, refresh, cfg.AccessTTL, cfg.RefreshTTL), revoker, log.Named("auth"))
	if cfg.BcryptCost > 0 {
		svc.SetPasswordCost(cfg.BcryptCost)
	}
	return svc, nil
}

// newCompleter returns nil without an error when no api key is configured.
// burst is the scorer fan-out.
func newCompleter(ctx context.Context, cfg *AIConfig, burst int, log *zap.Logger) (ai.Completer, error) {
	var completer ai.Completer

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", providerXAI:
		apiKey, err := secrets.Optional(secrets.Source{
			Name:  "xai api key",
			Value: cfg.XAI.APIKey,
			File:  cfg.XAI.APIKeyFile,
			Env:   "XAI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		if apiKey == "" {
			log.Warn("ai provider is not configured, falling back to keyword matching",
				zap.String("provider", providerXAI),
				zap.String("hint", "set ai.xai.api-key-file or XAI_API_KEY"),
			)
			return nil, nil
		}

		client, err := xai.New(xai.Config{
			APIKey:      apiKey,
			BaseURL:     cfg.XAI.BaseURL,
			Model:       cfg.XAI.Model,
			MaxTokens:   cfg.XAI.MaxTokens,
			Temperature: cfg.XAI.Temperature,
		}, nil, logger.WithCommonFields(log, providerXAI, cfg.XAI.Model))
		if err != nil {
			return nil, err
		}
		completer = client

	case providerGemini:
		apiKey, err := secrets.Optional(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		if apiKey == "" {
			log.Warn("ai provider is not configured, falling back to keyword matching",
				zap.String("provider", providerGemini),
				zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY"),
			)
			return nil, nil
		}

		genLogger := logger.WithCommonFields(log, providerGemini, cfg.Gemini.Model).
			With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
		if err != nil {
			return nil, err
		}
		completer = generator

	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	provider, modelName := ai.Describe(completer)
	log.Info("ai provider configured", append(logger.CommonFields(provider, modelName),
		zap.Float64("rate_per_second", cfg.RatePerSecond),
		zap.Int("burst", burst),
	)...)

	return ai.NewLimited(completer, cfg.RatePerSecond, burst), nil
}

// newSearcher prefers direct credentials and falls back to a remote proxy.
// Neither configured yields nil.
func newSearcher(cfg *AdzunaConfig, log *zap.Logger) (adzuna.Searcher, error) {
	appKey, err := secrets.Optional(secrets.Source{
		Name:  "adzuna app key",
		Value: cfg.AppKey,
		File:  cfg.AppKeyFile,
		Env:   "ADZUNA_APP_KEY",
	})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.AppID) != "" && appKey != "" {
		client, err := adzuna.New(adzuna.Config{
			AppID:          cfg.AppID,
			AppKey:         appKey,
			Country:        cfg.Country,
			ResultsPerPage: cfg.ResultsPerPage,
		}, log.Named("adzuna"))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	if strings.TrimSpace(cfg.ProxyURL) != "" {
		return adzuna.NewProxyClient(cfg.ProxyURL, cfg.ProxyToken, log.Named("adzuna")), nil
	}

	log.Warn("job search provider is not configured, external listings disabled",
		zap.String("hint", "set adzuna.app-id with adzuna.app-key-file, or adzuna.proxy-url"),
	)
	return nil, nil
}

func searchRequest(cfg *AdzunaConfig) adzuna.SearchRequest {
	params := map[string]any{}
	if what := strings.TrimSpace(cfg.What); what != "" {
		params["what"] = what
	}
	if where := strings.TrimSpace(cfg.Where); where != "" {
		params["where"] = where
	}
	return adzuna.SearchRequest{Country: cfg.Country, Params: params}
}

// loadConfig builds the logger and reads the config, exiting on failure like
// the rest of the cli.
func loadConfig(command string) (*Config, *zap.Logger) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		stdlog.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		log.Fatal("config is required")
	}

	log.Info("starting "+app, zap.String("command", command), zap.String("version", currentVersion()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(*config), "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return config, log
}

func prepare(ctx context.Context, command string) *deps {
	config, log := loadConfig(command)

	d, err := buildDeps(ctx, config, log, viper.GetBool("debug"))
	if err != nil {
		log.Fatal("building dependencies", zap.Error(err))
	}
	return d
}

// redacted returns a copy safe to log.
func redacted(c Config) Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}

	if c.Auth != nil {
		a := *c.Auth
		a.AccessSecret, a.RefreshSecret = mask(a.AccessSecret), mask(a.RefreshSecret)
		c.Auth = &a
	}
	if c.AI != nil {
		a := *c.AI
		if a.XAI != nil {
			x := *a.XAI
			x.APIKey = mask(x.APIKey)
			a.XAI = &x
		}
		if a.Gemini != nil {
			g := *a.Gemini
			g.APIKey = mask(g.APIKey)
			a.Gemini = &g
		}
		c.AI = &a
	}
	if c.Adzuna != nil {
		a := *c.Adzuna
		a.AppKey, a.ProxyToken = mask(a.AppKey), mask(a.ProxyToken)
		c.Adzuna = &a
	}
	if c.Storage != nil {
		s := *c.Storage
		s.DSN = mask(s.DSN)
		c.Storage = &s
	}
	if c.Redis != nil {
		r := *c.Redis
		r.URL = mask(r.URL)
		c.Redis = &r
	}
	return c
}
