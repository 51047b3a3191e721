package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/checkout-api/internal/common"
)

// Probe checks a single dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// PoolProbe pings the Postgres pool.
func PoolProbe(pool *pgxpool.Pool) Probe {
	return Probe{Name: "db", Timeout: 500 * time.Millisecond, Check: pool.Ping}
}

// RedisProbe pings Redis.
func RedisProbe(client redis.Cmdable) Probe {
	return Probe{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Service     string
	Environment string
	StartedAt   time.Time
	Probes      []Probe

	draining atomic.Bool
	now      func() time.Time
}

// NewHandler builds a handler reporting for service in env.
func NewHandler(service, env string, probes ...Probe) *Handler {
	return &Handler{Service: service, Environment: env, StartedAt: time.Now(), Probes: probes}
}

// SetDraining flips readiness off while the server shuts down.
func (h *Handler) SetDraining(v bool) {
	h.draining.Store(v)
}

type rootResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Root reports service diagnostics without touching dependencies.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	now := h.clock()
	common.JSON(w, http.StatusOK, rootResponse{
		Status:        "ok",
		Timestamp:     now.UTC().Format(time.RFC3339),
		Service:       h.Service,
		Environment:   h.Environment,
		UptimeSeconds: int64(now.Sub(h.StartedAt).Seconds()),
	})
}

// Live reports liveness status.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := !h.draining.Load()
	if !healthy {
		status["server"] = "draining"
	}
	for _, p := range h.Probes {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = 500 * time.Millisecond
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		err := p.Check(ctx)
		cancel()
		if err != nil {
			healthy = false
			status[p.Name] = "unavailable"
			continue
		}
		status[p.Name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h *Handler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}
