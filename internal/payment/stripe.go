package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/obs"
	"github.com/noah-isme/checkout-api/internal/resilience"
)

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// HTTPClient carries outbound calls; NewHTTPClient builds the production one.
	HTTPClient *http.Client
	// BackendURL overrides the API base URL, used by tests.
	BackendURL string
	// MaxNetworkRetries is handed to the SDK retry loop.
	MaxNetworkRetries int64
	// Tolerance bounds the accepted age of a webhook signature.
	Tolerance time.Duration
	Logger    zerolog.Logger
	Metrics   *obs.DomainMetrics
}

// Stripe implements Provider against the Stripe API.
type Stripe struct {
	sessions      session.Client
	webhookSecret string
	tolerance     time.Duration
	logger        zerolog.Logger
	metrics       *obs.DomainMetrics
}

// NewStripe builds a Stripe adapter with its own backend. The global stripe.Key
// is never touched.
func NewStripe(cfg StripeConfig) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("payment: stripe secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("payment: stripe webhook secret is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(30*time.Second, nil)
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     leveledLogger{logger: cfg.Logger},
		EnableTelemetry:   stripe.Bool(false),
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Stripe{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		tolerance:     tolerance,
		logger:        cfg.Logger.With().Str("component", "stripe").Logger(),
		metrics:       cfg.Metrics,
	}, nil
}

// NewHTTPClient returns the outbound client for the processor: traced by
// otelhttp and guarded by the circuit breaker when one is supplied.
func NewHTTPClient(timeout time.Duration, breaker *resilience.Breaker) *http.Client {
	var base http.RoundTripper = http.DefaultTransport
	if breaker != nil {
		base = &resilience.Transport{Base: base, Breaker: breaker}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(base),
	}
}

// CreateSession opens a hosted checkout session. Failures are reported as
// UpstreamUnavailable or Timeout.
func (s *Stripe) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, errors.New("payment: nil session params")
	}
	params.Context = ctx
	start := time.Now()
	sess, err := s.sessions.New(params)
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.ObserveProcessor("create_session", result, obs.DurationMillis(time.Since(start)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		s.logger.Error().Err(err).Msg("create checkout session failed")
		return nil, common.Upstream("payment processor", err)
	}
	return sess, nil
}

// VerifyEvent authenticates a webhook delivery against the shared secret and
// decodes it. Any verification failure yields InvalidSignature.
func (s *Stripe) VerifyEvent(payload []byte, signatureHeader string) (Event, error) {
	if signatureHeader == "" {
		return Event{}, common.InvalidSignature(errors.New("missing signature header"))
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                s.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, common.InvalidSignature(err)
	}
	return decodeEvent(evt)
}

// leveledLogger routes SDK logs through zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) { l.logger.Debug().Msgf(format, v...) }
func (l leveledLogger) Infof(format string, v ...interface{})  { l.logger.Debug().Msgf(format, v...) }
func (l leveledLogger) Warnf(format string, v ...interface{})  { l.logger.Warn().Msgf(format, v...) }
func (l leveledLogger) Errorf(format string, v ...interface{}) { l.logger.Error().Msgf(format, v...) }
