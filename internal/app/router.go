package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/checkout-api/internal/auth"
	"github.com/noah-isme/checkout-api/internal/checkout"
	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/health"
	"github.com/noah-isme/checkout-api/internal/obs"
	"github.com/noah-isme/checkout-api/internal/order"
	"github.com/noah-isme/checkout-api/internal/payment"
	"github.com/noah-isme/checkout-api/internal/ratelimit"
	"github.com/noah-isme/checkout-api/internal/security"
)

// ServiceName identifies the API in logs, traces and the root endpoint.
const ServiceName = "checkout-api"

// RouterOptions toggles the ambient middleware stack.
type RouterOptions struct {
	Tracing     bool
	HTTPMetrics *obs.HTTPMetrics
	// Headers configures security response headers.
	Headers security.Headers
}

// Server is the assembled HTTP surface.
type Server struct {
	Router *chi.Mux
	Health *health.Handler
}

// NewServer builds every module from deps and mounts its routes.
func NewServer(deps *Dependencies, opts RouterOptions) (*Server, error) {
	if deps == nil || deps.Config == nil || deps.Store == nil || deps.Payments == nil || deps.Identity == nil {
		return nil, errors.New("app: incomplete dependencies")
	}
	cfg := deps.Config
	logger := deps.Logger

	resolver, err := auth.NewResolver(auth.ResolverConfig{
		Verifier: deps.Identity,
		Store:    deps.Store,
		Timeout:  cfg.OutboundTimeout,
		Logger:   logger,
		Metrics:  deps.Metrics,
	})
	if err != nil {
		return nil, err
	}
	authMiddleware := auth.Middleware{Resolver: resolver}

	checkoutSvc, err := checkout.NewService(deps.Payments, checkout.Config{
		Currency:         cfg.Currency,
		AllowedCountries: cfg.AllowedCountries,
		Timeout:          cfg.OutboundTimeout,
	}, logger, deps.Metrics)
	if err != nil {
		return nil, err
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	materializer := order.NewMaterializer(deps.Store, cfg.OutboundTimeout, logger, deps.Metrics)
	webhook := payment.Webhook{
		Verifier: deps.Payments,
		Handler:  materializer,
		Logger:   logger.With().Str("component", "webhook").Logger(),
		Metrics:  deps.Metrics,
	}
	orderHandler := &order.Handler{Q: deps.Store}

	limiter, err := ratelimit.New(cfg.CheckoutRateLimit, "rl:checkout", deps.Redis)
	if err != nil {
		return nil, err
	}
	checkoutLimit := ratelimit.Handler{
		Limiter: limiter,
		Key:     ratelimit.ByUser("checkout"),
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	idem := common.Idem{TTL: cfg.IdempotencyTTL}
	if deps.Redis != nil {
		idem.R = deps.Redis
	}

	healthHandler := health.NewHandler(ServiceName, cfg.AppEnv, deps.Probes...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(opts.Headers.Middleware)

	r.Get("/", healthHandler.Root)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	}

	r.Route("/api", func(api chi.Router) {
		// signature verification needs the untouched body, so the webhook
		// sits outside the JSON body limit and auth
		api.With(security.BodyLimit{Max: cfg.WebhookMaxBodyBytes}.Middleware).Post("/webhook", webhook.Handle)

		api.Group(func(authR chi.Router) {
			authR.Use(security.BodyLimit{Max: cfg.JSONMaxBodyBytes}.Middleware)
			if cfg.OutboundTimeout > 0 {
				authR.Use(middleware.Timeout(2 * cfg.OutboundTimeout))
			}
			authR.Use(authMiddleware.RequireAuth)

			authR.With(checkoutLimit.Middleware, idem.Middleware).Post("/create-checkout-session", checkoutHandler.Create)
			authR.Get("/profile", auth.ProfileHandler)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/session/{sessionId}", orderHandler.BySession)
		})
	})

	return &Server{Router: r, Health: healthHandler}, nil
}

// HTTPServer wraps handler with the timeouts used in production.
func HTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
