package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/checkout-api/internal/auth"
	"github.com/noah-isme/checkout-api/internal/config"
	"github.com/noah-isme/checkout-api/internal/db"
	dbgen "github.com/noah-isme/checkout-api/internal/db/gen"
	"github.com/noah-isme/checkout-api/internal/health"
	"github.com/noah-isme/checkout-api/internal/obs"
	"github.com/noah-isme/checkout-api/internal/payment"
	"github.com/noah-isme/checkout-api/internal/resilience"
)

// Store is the datastore surface shared by the HTTP modules.
type Store interface {
	dbgen.Querier
	InTx(ctx context.Context, fn func(q dbgen.Querier) error) error
}

// Dependencies enumerates the clients built once at startup and injected into handlers.
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    Store
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Payments payment.Provider
	Identity auth.Verifier
	Registry *prometheus.Registry
	Metrics  *obs.DomainMetrics
	Probes   []health.Probe
}

// Options carries settings that come from the OBS_* environment rather than Config.
type Options struct {
	MetricsNamespace string
	RedisMetrics     bool
}

// Open connects to every backing service described by cfg.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  obs.NewDomainMetrics(opts.MetricsNamespace, reg),
	}

	if cfg.DBAutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}
	}
	pool, err := openPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	deps.Pool = pool
	deps.Store = db.NewStore(pool)
	deps.Probes = append(deps.Probes, health.PoolProbe(pool))

	if cfg.RedisURL != "" {
		client, err := openRedis(ctx, cfg.RedisURL, opts.RedisMetrics, logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Redis = client
		deps.Probes = append(deps.Probes, health.RedisProbe(client))
	} else {
		logger.Warn().Msg("REDIS_URL not set; idempotency keys are not enforced and rate limits are per process")
	}

	breakerMetrics := resilience.NewMetrics(opts.MetricsNamespace, reg)
	stripeBreaker := resilience.NewBreaker(resilience.BreakerConfig{Target: "stripe", Logger: logger, Metrics: breakerMetrics})
	payments, err := payment.NewStripe(payment.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		WebhookSecret:     cfg.StripeWebhookSecret,
		HTTPClient:        payment.NewHTTPClient(cfg.OutboundTimeout, stripeBreaker),
		MaxNetworkRetries: 2,
		Logger:            logger,
		Metrics:           deps.Metrics,
	})
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Payments = payments

	identity, err := newIdentityVerifier(cfg, logger, breakerMetrics)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Identity = identity
	return deps, nil
}

// Close releases the connections held by d.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

func openPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "checkout-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func openRedis(ctx context.Context, redisURL string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// newIdentityVerifier prefers local JWT verification and falls back to asking
// the auth API when no signing secret is configured.
func newIdentityVerifier(cfg *config.Config, logger zerolog.Logger, metrics *resilience.Metrics) (auth.Verifier, error) {
	if cfg.SupabaseJWTSecret != "" {
		return auth.NewJWTVerifier(cfg.SupabaseJWTSecret, cfg.SupabaseURL, cfg.JWTAudience)
	}
	if cfg.SupabaseURL == "" {
		return nil, errors.New("auth: SUPABASE_URL is required")
	}
	logger.Info().Msg("SUPABASE_JWT_SECRET not set; verifying tokens against the auth API")
	return auth.RemoteVerifier{
		BaseURL: cfg.SupabaseURL,
		APIKey:  cfg.AuthAPIKey(),
		Client: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     resilience.NewBreaker(resilience.BreakerConfig{Target: "supabase-auth", Logger: logger, Metrics: metrics}),
			BaseBackoff: 100 * time.Millisecond,
			MaxAttempts: 2,
			Jitter:      0.2,
			Timeout:     cfg.OutboundTimeout,
		},
	}, nil
}
