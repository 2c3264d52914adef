package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageMongoDB = "mongodb"
	StorageBolt    = "bolt"

	CacheMemory = "memory"
	CacheRedis  = "redis"

	LLMProviderOpenAI = "openai"
	LLMProviderLocal  = "local"

	envPrefix = "REVIEWDESK"
)

// Config holds all configuration for the service and the CLI.
type Config struct {
	HTTPAddr          string        `mapstructure:"http_addr"`
	LogLevel          string        `mapstructure:"log_level"`
	LogPretty         bool          `mapstructure:"log_pretty"`
	OtelServiceName   string        `mapstructure:"otel_service_name"`
	OtelExporter      string        `mapstructure:"otel_exporter"` // stdout or none
	HTTPClientTimeout time.Duration `mapstructure:"http_client_timeout"`

	StorageBackend string `mapstructure:"storage_backend"`
	MongoURI       string `mapstructure:"mongo_uri"`
	MongoDBName    string `mapstructure:"mongo_db_name"`
	BoltPath       string `mapstructure:"bolt_path"`

	CacheBackend    string        `mapstructure:"cache_backend"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"`

	GoogleOAuth GoogleOAuthConfig `mapstructure:"google_oauth"`
	ReviewAPI   ReviewAPIConfig   `mapstructure:"review_api"`
	Retry       RetryConfig       `mapstructure:"retry"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	Ingestion   IngestionConfig   `mapstructure:"ingestion"`
}

// GoogleOAuthConfig configures the Google OAuth client and endpoints.
type GoogleOAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURI  string   `mapstructure:"redirect_uri"`
	Scopes       []string `mapstructure:"scopes"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	RevokeURL    string   `mapstructure:"revoke_url"`
	UserInfoURL  string   `mapstructure:"userinfo_url"`
}

// ReviewAPIConfig holds the Google Business Profile API base URLs.
type ReviewAPIConfig struct {
	AccountsURL     string `mapstructure:"accounts_url"`
	BusinessInfoURL string `mapstructure:"business_info_url"`
	ReviewsURL      string `mapstructure:"reviews_url"`
}

// RetryConfig tunes the retry policy for external provider calls.
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// LLMConfig selects and configures the reply generator.
type LLMConfig struct {
	Provider        string         `mapstructure:"provider"`
	MaxRetries      int            `mapstructure:"max_retries"`
	RetryStep       time.Duration  `mapstructure:"retry_step"`
	FallbackMessage string         `mapstructure:"fallback_message"`
	OpenAI          OpenAIConfig   `mapstructure:"openai"`
	Local           LocalLLMConfig `mapstructure:"local"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type LocalLLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AuthConfig controls how a request's tenant is resolved.
type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	AllowHeaderTenant bool   `mapstructure:"allow_header_tenant"`
}

type DashboardConfig struct {
	OAuthRedirectURL string `mapstructure:"oauth_redirect_url"`
}

type IngestionConfig struct {
	SuggestReplies bool `mapstructure:"suggest_replies"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("otel_service_name", "reviewdesk")
	v.SetDefault("otel_exporter", "none")
	v.SetDefault("http_client_timeout", 30*time.Second)

	v.SetDefault("storage_backend", StorageMongoDB)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "reviewdesk")
	v.SetDefault("bolt_path", "data/reviewdesk.db")

	v.SetDefault("cache_backend", CacheMemory)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("profile_cache_ttl", 10*time.Minute)

	v.SetDefault("google_oauth.client_id", "")
	v.SetDefault("google_oauth.client_secret", "")
	v.SetDefault("google_oauth.redirect_uri", "http://localhost:8080/api/oauth/google/callback")
	v.SetDefault("google_oauth.scopes", []string{
		"https://www.googleapis.com/auth/business.manage",
		"https://www.googleapis.com/auth/userinfo.profile",
		"https://www.googleapis.com/auth/userinfo.email",
	})
	v.SetDefault("google_oauth.auth_url", "https://accounts.google.com/o/oauth2/v2/auth")
	v.SetDefault("google_oauth.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("google_oauth.revoke_url", "https://oauth2.googleapis.com/revoke")
	v.SetDefault("google_oauth.userinfo_url", "https://www.googleapis.com/oauth2/v2/userinfo")

	v.SetDefault("review_api.accounts_url", "https://mybusinessaccountmanagement.googleapis.com/v1")
	v.SetDefault("review_api.business_info_url", "https://mybusinessbusinessinformation.googleapis.com/v1")
	v.SetDefault("review_api.reviews_url", "https://mybusiness.googleapis.com/v4")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", 2*time.Second)
	v.SetDefault("retry.attempt_timeout", 15*time.Second)

	v.SetDefault("llm.provider", LLMProviderLocal)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_step", 1500*time.Millisecond)
	v.SetDefault("llm.fallback_message", "Sorry, we're currently unable to generate a reply. Please try again later.")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", "gpt-3.5-turbo")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.local.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.local.model", "llama3")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.allow_header_tenant", true)

	v.SetDefault("dashboard.oauth_redirect_url", "http://localhost:5173/business/settings")

	v.SetDefault("ingestion.suggest_replies", false)
}

// LoadConfig reads configuration from file, environment variables, and
// defaults. cfgFile may be empty to search the default locations.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("reviewdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/reviewdesk/")
		v.AddConfigPath("$HOME/.reviewdesk")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
// Provider credentials are checked by the components that use them.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMongoDB, StorageBolt:
	default:
		return fmt.Errorf("unknown storage_backend %q", c.StorageBackend)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown cache_backend %q", c.CacheBackend)
	}
	if c.Retry.MaxRetries < 0 || c.LLM.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	return nil
}
