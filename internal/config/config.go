// Package config reads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
	"github.com/Zhima-Mochi/minishop-assistant/internal/pkg/fuzzy"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string
	HTTPAddr    string
	CORSOrigins []string

	CategoryAPIURL  string
	ItemsAPIBase    string
	BillAPIURL      string
	UpstreamTimeout time.Duration

	ClassifierProvider string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	AnthropicAPIKey    string
	AnthropicModel     string

	SessionBackend  string
	SessionTTL      time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	PhonePolicy    session.PhonePolicy
	FuzzyThreshold float64
	FuzzyStrategy  fuzzy.Strategy

	ShutdownTimeout time.Duration
	ChatServeHTTP   bool
}

// Load reads a .env file when present, then the environment, and validates
// the result. Every problem found is reported at once.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// Existing environment variables win over the file.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}

	cfg := Config{
		ServiceName: r.str("SERVICE_NAME", "minishop-assistant"),
		Env:         r.str("ENV", "dev"),
		LogLevel:    r.str("LOG_LEVEL", "info"),
		HTTPAddr:    r.str("HTTP_ADDR", ":8080"),
		CORSOrigins: r.list("CORS_ALLOWED_ORIGINS"),

		CategoryAPIURL:  r.url("CATEGORY_API_URL"),
		ItemsAPIBase:    strings.TrimRight(r.url("ITEMS_API_BASE"), "/"),
		BillAPIURL:      r.url("BILL_API_URL"),
		UpstreamTimeout: r.duration("UPSTREAM_TIMEOUT", 5*time.Second),

		ClassifierProvider: strings.ToLower(r.str("CLASSIFIER_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:       r.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      r.str("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:        r.str("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:    r.str("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     r.str("ANTHROPIC_MODEL", ""),

		SessionBackend:  strings.ToLower(r.str("SESSION_BACKEND", BackendMemory)),
		SessionTTL:      r.duration("SESSION_TTL", 24*time.Hour),
		RedisAddr:       r.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   r.str("REDIS_PASSWORD", ""),
		RedisDB:         r.integer("REDIS_DB", 0),
		CatalogCacheTTL: r.duration("CATALOG_CACHE_TTL", 0),

		KafkaBrokers: r.list("KAFKA_BROKERS"),
		KafkaTopic:   r.str("KAFKA_TOPIC", "shop-checkout-completed"),

		PhonePolicy:    session.PhonePolicy(strings.ToLower(r.str("PHONE_POLICY", string(session.PhoneStandard)))),
		FuzzyThreshold: r.float("FUZZY_THRESHOLD", fuzzy.DefaultThreshold),

		ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ChatServeHTTP:   r.boolean("CHAT_SERVE_HTTP", false),
	}

	strategy, ok := fuzzy.ParseStrategy(r.str("FUZZY_STRATEGY", string(fuzzy.Best)))
	if !ok {
		r.fail("FUZZY_STRATEGY", "must be best or first")
	}
	cfg.FuzzyStrategy = strategy

	cfg.validate(&r)
	if len(r.errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(r.errs...))
	}
	return cfg, nil
}

func (c *Config) validate(r *reader) {
	switch c.ClassifierProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			// Running without a key disables the natural-language surface.
			c.ClassifierProvider = ProviderNone
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			r.fail("ANTHROPIC_API_KEY", "required when CLASSIFIER_PROVIDER=anthropic")
		}
	case ProviderNone:
	default:
		r.fail("CLASSIFIER_PROVIDER", "must be openai, anthropic or none")
	}

	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			r.fail("REDIS_ADDR", "required when SESSION_BACKEND=redis")
		}
	default:
		r.fail("SESSION_BACKEND", "must be memory or redis")
	}

	switch c.PhonePolicy {
	case session.PhoneStandard, session.PhoneStrict:
	default:
		r.fail("PHONE_POLICY", "must be standard or strict")
	}

	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		r.fail("FUZZY_THRESHOLD", "must be in (0, 1]")
	}
	if c.UpstreamTimeout <= 0 {
		r.fail("UPSTREAM_TIMEOUT", "must be positive")
	}
	if c.SessionTTL < 0 {
		r.fail("SESSION_TTL", "must not be negative")
	}
}

// CatalogCacheEnabled reports whether catalog reads are cached in Redis.
func (c Config) CatalogCacheEnabled() bool {
	return c.SessionBackend == BackendRedis && c.CatalogCacheTTL > 0
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) fail(key, msg string) {
	r.errs = append(r.errs, fmt.Errorf("%s: %s", key, msg))
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

func (r *reader) url(key string) string {
	v := r.str(key, "")
	if v == "" {
		r.fail(key, "required")
		return ""
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		r.fail(key, "must be an absolute URL")
	}
	return v
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, "invalid duration")
		return def
	}
	return d
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, "invalid integer")
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, "invalid number")
		return def
	}
	return f
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, "invalid boolean")
		return def
	}
	return b
}

func (r *reader) list(key string) []string {
	v := r.str(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
