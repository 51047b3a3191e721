package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/checkout-api/internal/common"
)

// Result is the outcome of a single limit check.
type Result struct {
	Limit     int64
	Remaining int64
	Reset     time.Time
	Reached   bool
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter Limiter
	Key     func(*http.Request) string
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface. Limiter
// failures fail open so a Redis outage never blocks checkout.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Key(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		res, err := h.Limiter.Check(r.Context(), key)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if res.Reached {
			retryAfter := int(time.Until(res.Reset).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ByUser keys requests by the authenticated user, falling back to client IP.
func ByUser(prefix string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id, ok := common.UserID(r.Context()); ok && id != "" {
			return prefix + ":user:" + id
		}
		return prefix + ":ip:" + common.ClientIP(r)
	}
}
