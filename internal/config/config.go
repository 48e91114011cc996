// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Service
	Env       string
	Version   string
	Port      string
	LogLevel  string
	LogFormat string

	// Redis hot cache and usage counters
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Postgres durable cache, profiles and payment events
	DatabaseURL string
	CacheMaxAge time.Duration

	// Qdrant semantic cache; disabled when QdrantHost is empty
	QdrantHost        string
	QdrantPort        int
	QdrantCollection  string
	SemanticThreshold float64
	EmbeddingModel    string
	EmbeddingDim      uint64

	// LLM providers
	GeminiAPIKey     string
	GeminiBackupKeys []string
	GeminiModel      string
	GeminiBaseURL    string
	PerplexityAPIKey string
	PerplexityModel  string

	// Remote get-wisdom function and Supabase
	FunctionURL       string
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	ServiceToken      string // guards /v1/functions/get-gemini-key

	// Timing
	RemoteTimeout      time.Duration
	DirectTimeout      time.Duration
	SlowAfter          time.Duration
	MaxRetries         int
	SessionTTL         time.Duration
	KeyRefreshSchedule string

	// Features
	FallbackFile      string // optional YAML overriding the embedded table
	PricingURL        string
	VoiceFreeLimit    int64
	VoicePremiumLimit int64
	RateLimitRPS      float64
	RateLimitBurst    int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "24h")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CACHE_MAX_AGE", "168h")

	v.SetDefault("QDRANT_HOST", "")
	v.SetDefault("QDRANT_PORT", 6334)
	v.SetDefault("QDRANT_COLLECTION", "wisdom")
	v.SetDefault("SEMANTIC_THRESHOLD", 0.92)
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-004")
	v.SetDefault("EMBEDDING_DIM", 768)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_BACKUP_KEYS", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_BASE_URL", "")
	v.SetDefault("PERPLEXITY_API_KEY", "")
	v.SetDefault("PERPLEXITY_MODEL", "sonar")

	v.SetDefault("FUNCTION_URL", "")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_JWT_SECRET", "")
	v.SetDefault("SERVICE_TOKEN", "")

	v.SetDefault("REMOTE_TIMEOUT", "15s")
	v.SetDefault("DIRECT_TIMEOUT", "15s")
	v.SetDefault("SLOW_AFTER", "8s")
	v.SetDefault("MAX_RETRIES", 2)
	v.SetDefault("SESSION_TTL", "15m")
	v.SetDefault("KEY_REFRESH_SCHEDULE", "@every 10m")

	v.SetDefault("FALLBACK_FILE", "")
	v.SetDefault("PRICING_URL", "/pricing")
	v.SetDefault("VOICE_FREE_LIMIT", 10)
	v.SetDefault("VOICE_PREMIUM_LIMIT", 300)
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
}

// Load reads envFile (if it exists) into the process environment and then
// builds the Config from environment variables and defaults.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Env:       v.GetString("ENV"),
		Version:   v.GetString("APP_VERSION"),
		Port:      v.GetString("PORT"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		CacheTTL:      v.GetDuration("CACHE_TTL"),

		DatabaseURL: v.GetString("DATABASE_URL"),
		CacheMaxAge: v.GetDuration("CACHE_MAX_AGE"),

		QdrantHost:        v.GetString("QDRANT_HOST"),
		QdrantPort:        v.GetInt("QDRANT_PORT"),
		QdrantCollection:  v.GetString("QDRANT_COLLECTION"),
		SemanticThreshold: v.GetFloat64("SEMANTIC_THRESHOLD"),
		EmbeddingModel:    v.GetString("EMBEDDING_MODEL"),
		EmbeddingDim:      v.GetUint64("EMBEDDING_DIM"),

		GeminiAPIKey:     v.GetString("GEMINI_API_KEY"),
		GeminiBackupKeys: splitList(v.GetString("GEMINI_BACKUP_KEYS")),
		GeminiModel:      v.GetString("GEMINI_MODEL"),
		GeminiBaseURL:    v.GetString("GEMINI_BASE_URL"),
		PerplexityAPIKey: v.GetString("PERPLEXITY_API_KEY"),
		PerplexityModel:  v.GetString("PERPLEXITY_MODEL"),

		FunctionURL:       v.GetString("FUNCTION_URL"),
		SupabaseURL:       strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		SupabaseAnonKey:   v.GetString("SUPABASE_ANON_KEY"),
		SupabaseJWTSecret: v.GetString("SUPABASE_JWT_SECRET"),
		ServiceToken:      v.GetString("SERVICE_TOKEN"),

		RemoteTimeout:      v.GetDuration("REMOTE_TIMEOUT"),
		DirectTimeout:      v.GetDuration("DIRECT_TIMEOUT"),
		SlowAfter:          v.GetDuration("SLOW_AFTER"),
		MaxRetries:         v.GetInt("MAX_RETRIES"),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		KeyRefreshSchedule: v.GetString("KEY_REFRESH_SCHEDULE"),

		FallbackFile:      v.GetString("FALLBACK_FILE"),
		PricingURL:        v.GetString("PRICING_URL"),
		VoiceFreeLimit:    v.GetInt64("VOICE_FREE_LIMIT"),
		VoicePremiumLimit: v.GetInt64("VOICE_PREMIUM_LIMIT"),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
	}

	if cfg.FunctionURL == "" && cfg.SupabaseURL != "" {
		cfg.FunctionURL = cfg.SupabaseURL + "/functions/v1/get-wisdom"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must be >= 0, got %d", c.MaxRetries))
	}
	if c.RemoteTimeout <= 0 || c.DirectTimeout <= 0 {
		errs = append(errs, errors.New("REMOTE_TIMEOUT and DIRECT_TIMEOUT must be positive"))
	}
	if c.SemanticThreshold <= 0 || c.SemanticThreshold > 1 {
		errs = append(errs, fmt.Errorf("SEMANTIC_THRESHOLD must be in (0, 1], got %v", c.SemanticThreshold))
	}
	if c.VoiceFreeLimit < 0 || c.VoicePremiumLimit < c.VoiceFreeLimit {
		errs = append(errs, errors.New("voice limits must satisfy 0 <= VOICE_FREE_LIMIT <= VOICE_PREMIUM_LIMIT"))
	}
	return errors.Join(errs...)
}

// GeminiKeys is the primary key followed by the backups.
func (c *Config) GeminiKeys() []string {
	return append([]string{c.GeminiAPIKey}, c.GeminiBackupKeys...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
