package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-api/internal/common"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerEnforcesLimitWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lim, err := New("1-M", "ratelimit", client)
	require.NoError(t, err)
	handler := Handler{Limiter: lim, Key: ByUser("checkout")}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", nil)
	req = req.WithContext(common.WithUserID(req.Context(), "user-1"))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")
}

func TestHandlerKeysPerUserInMemory(t *testing.T) {
	lim, err := New("1-H", "ratelimit", nil)
	require.NoError(t, err)
	handler := Handler{Limiter: lim, Key: ByUser("checkout")}.Middleware(okHandler())

	for _, user := range []string{"user-a", "user-b"} {
		req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", nil)
		req = req.WithContext(common.WithUserID(req.Context(), user))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, user)
	}
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string) (Result, error) {
	return Result{}, errors.New("redis down")
}

func TestHandlerFailsOpen(t *testing.T) {
	var seen error
	handler := Handler{
		Limiter: failingLimiter{},
		Key:     func(*http.Request) string { return "k" },
		OnError: func(err error) { seen = err },
	}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualError(t, seen, "redis down")
}

func TestNewRejectsBadRate(t *testing.T) {
	_, err := New("lots", "ratelimit", nil)
	require.Error(t, err)
}
