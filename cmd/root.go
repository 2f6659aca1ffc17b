package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "kaziconnect"
	envPrefix = "KAZI"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	HTTP        *HTTPConfig    `mapstructure:"http"`
	Storage     *StorageConfig `mapstructure:"storage"`
	Redis       *RedisConfig   `mapstructure:"redis"`
	Auth        *AuthConfig    `mapstructure:"auth"`
	AI          *AIConfig      `mapstructure:"ai"`
	Adzuna      *AdzunaConfig  `mapstructure:"adzuna"`
	Match       *MatchConfig   `mapstructure:"match"`
}

type HTTPConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors-origins"`
}

type StorageConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"`
	MaxConns int32  `mapstructure:"max-conns"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	AccessSecret      string        `mapstructure:"access-secret"`
	AccessSecretFile  string        `mapstructure:"access-secret-file"`
	RefreshSecret     string        `mapstructure:"refresh-secret"`
	RefreshSecretFile string        `mapstructure:"refresh-secret-file"`
	AccessTTL         time.Duration `mapstructure:"access-ttl"`
	RefreshTTL        time.Duration `mapstructure:"refresh-ttl"`
	BcryptCost        int           `mapstructure:"bcrypt-cost"`
}

type AIConfig struct {
	Provider      string        `mapstructure:"provider"`
	RatePerSecond float64       `mapstructure:"rate-per-second"`
	MaxLogLength  int           `mapstructure:"max-log-length"`
	XAI           *XAIConfig    `mapstructure:"xai"`
	Gemini        *GeminiConfig `mapstructure:"gemini"`
}

type XAIConfig struct {
	APIKey      string  `mapstructure:"api-key"`
	APIKeyFile  string  `mapstructure:"api-key-file"`
	BaseURL     string  `mapstructure:"base-url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max-tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type AdzunaConfig struct {
	AppID          string `mapstructure:"app-id"`
	AppKey         string `mapstructure:"app-key"`
	AppKeyFile     string `mapstructure:"app-key-file"`
	Country        string `mapstructure:"country"`
	ResultsPerPage int    `mapstructure:"results-per-page"`
	ProxyURL       string `mapstructure:"proxy-url"`
	ProxyToken     string `mapstructure:"proxy-token"`
	What           string `mapstructure:"what"`
	Where          string `mapstructure:"where"`
}

type MatchConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	AITimeout        time.Duration `mapstructure:"ai-timeout"`
	IncludeLocal     bool          `mapstructure:"include-local"`
	IncludeExternal  bool          `mapstructure:"include-external"`
	IncludeApplied   bool          `mapstructure:"include-applied"`
	ExcludeCompanies []string      `mapstructure:"exclude-companies"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "kaziconnect is a job board backend with AI matching and resume analysis",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is kaziconnect.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key so env overrides work without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.cors-origins", []string{"*"})

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.path", app+".db")
	v.SetDefault("storage.max-conns", 10)

	v.SetDefault("redis.url", "")

	v.SetDefault("auth.access-secret", "")
	v.SetDefault("auth.access-secret-file", "")
	v.SetDefault("auth.refresh-secret", "")
	v.SetDefault("auth.refresh-secret-file", "")
	v.SetDefault("auth.access-ttl", 15*time.Minute)
	v.SetDefault("auth.refresh-ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt-cost", 0)

	v.SetDefault("ai.provider", "xai")
	v.SetDefault("ai.rate-per-second", 2.0)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.xai.api-key", "")
	v.SetDefault("ai.xai.api-key-file", "")
	v.SetDefault("ai.xai.base-url", "")
	v.SetDefault("ai.xai.model", "")
	v.SetDefault("ai.xai.max-tokens", 0)
	v.SetDefault("ai.xai.temperature", 0.0)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.max-retries", 3)

	v.SetDefault("adzuna.app-id", "")
	v.SetDefault("adzuna.app-key", "")
	v.SetDefault("adzuna.app-key-file", "")
	v.SetDefault("adzuna.country", "za")
	v.SetDefault("adzuna.results-per-page", 20)
	v.SetDefault("adzuna.proxy-url", "")
	v.SetDefault("adzuna.proxy-token", "")
	v.SetDefault("adzuna.what", "")
	v.SetDefault("adzuna.where", "")

	v.SetDefault("match.concurrency", 4)
	v.SetDefault("match.ai-timeout", 30*time.Second)
	v.SetDefault("match.include-local", true)
	v.SetDefault("match.include-external", true)
	v.SetDefault("match.include-applied", false)
	v.SetDefault("match.exclude-companies", []string{})
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Defaults and env are enough when no config file exists, but an explicit
	// or unparseable one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
