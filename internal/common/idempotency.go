package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const idemLocked = "locked"

// Idem provides an Idempotency-Key middleware backed by Redis. The key is scoped
// to the authenticated user and forwarded on the request context so downstream
// provider calls can reuse it. Successful responses are stored and replayed for
// the rest of the TTL; any other outcome releases the key.
type Idem struct {
	R   redis.Cmdable
	TTL time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

func hashKey(userID, key string) string {
	return "idem:" + Sha256Hex(userID+"|"+key)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := WithIdempotencyKey(r.Context(), header)
		if i.R == nil {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		userID, _ := UserID(ctx)
		key := hashKey(userID, header)
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ok, err := i.R.SetNX(ctx, key, idemLocked, ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, CodeInternal, "idempotency store error", nil)
			return
		}
		if !ok {
			i.replay(ctx, w, key)
			return
		}
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if rec.status < http.StatusOK || rec.status >= http.StatusMultipleChoices {
				// the caller may fix the request and retry under the same key
				_ = i.R.Del(context.Background(), key).Err()
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				_ = i.R.Del(context.Background(), key).Err()
				return
			}
			_ = i.R.Set(context.Background(), key, payload, ttl).Err()
		}()
		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	raw, err := i.R.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		JSONError(w, http.StatusInternalServerError, CodeInternal, "idempotency store error", nil)
		return
	}
	var stored storedResponse
	if raw == "" || raw == idemLocked || json.Unmarshal([]byte(raw), &stored) != nil {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "request with this key is still in progress", nil)
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(p []byte) (int, error) {
	s.body.Write(p)
	return s.ResponseWriter.Write(p)
}
