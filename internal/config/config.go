package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	AllowedCountries    []string

	DatabaseURL            string
	DBAutoMigrate          bool
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseAnonKey        string
	SupabaseJWTSecret      string
	JWTAudience            string

	RedisURL           string
	CORSAllowedOrigins []string

	OutboundTimeout     time.Duration
	IdempotencyTTL      time.Duration
	CheckoutRateLimit   string
	WebhookMaxBodyBytes int64
	JSONMaxBodyBytes    int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                 valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                   valueOrDefault(k.String("PORT"), "8080"),
		StripeSecretKey:        strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
		StripeWebhookSecret:    strings.TrimSpace(k.String("STRIPE_WEBHOOK_SECRET")),
		Currency:               strings.ToLower(valueOrDefault(k.String("CHECKOUT_CURRENCY"), "usd")),
		AllowedCountries:       upper(splitAndTrim(valueOrDefault(k.String("CHECKOUT_ALLOWED_COUNTRIES"), "US,CA"))),
		DatabaseURL:            strings.TrimSpace(k.String("DATABASE_URL")),
		DBAutoMigrate:          parseBool(valueOrDefault(k.String("DB_AUTO_MIGRATE"), "true")),
		SupabaseURL:            strings.TrimRight(strings.TrimSpace(k.String("SUPABASE_URL")), "/"),
		SupabaseServiceRoleKey: strings.TrimSpace(k.String("SUPABASE_SERVICE_ROLE_KEY")),
		SupabaseAnonKey:        strings.TrimSpace(k.String("SUPABASE_ANON_KEY")),
		SupabaseJWTSecret:      strings.TrimSpace(k.String("SUPABASE_JWT_SECRET")),
		JWTAudience:            valueOrDefault(k.String("SUPABASE_JWT_AUDIENCE"), "authenticated"),
		RedisURL:               strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins:     splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		OutboundTimeout:        parseDuration(k.String("OUTBOUND_TIMEOUT"), "15s"),
		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutRateLimit:      valueOrDefault(k.String("CHECKOUT_RATE_LIMIT"), "30-M"),
		WebhookMaxBodyBytes:    parseInt64(k.String("WEBHOOK_MAX_BODY_BYTES"), 256<<10),
		JSONMaxBodyBytes:       parseInt64(k.String("JSON_MAX_BODY_BYTES"), 64<<10),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	required := []struct {
		key   string
		value string
	}{
		{"STRIPE_SECRET_KEY", c.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret},
		{"DATABASE_URL", c.DatabaseURL},
		{"SUPABASE_URL", c.SupabaseURL},
		{"SUPABASE_SERVICE_ROLE_KEY", c.SupabaseServiceRoleKey},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if len(c.AllowedCountries) == 0 {
		errs = append(errs, errors.New("CHECKOUT_ALLOWED_COUNTRIES must list at least one country"))
	}
	if c.OutboundTimeout <= 0 {
		errs = append(errs, errors.New("OUTBOUND_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// AuthAPIKey returns the key sent as the apikey header to the auth API. The
// anon key is preferred; the service role key is the fallback.
func (c *Config) AuthAPIKey() string {
	if c.SupabaseAnonKey != "" {
		return c.SupabaseAnonKey
	}
	return c.SupabaseServiceRoleKey
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func upper(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToUpper(v)
	}
	return values
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
