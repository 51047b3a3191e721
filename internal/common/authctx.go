package common

import "context"

type ctxKey string

const (
	userIDKey     ctxKey = "auth/user-id"
	emailKey      ctxKey = "auth/email"
	idempotentKey ctxKey = "request/idempotency-key"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithEmail stores the authenticated user's email on the context.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// Email returns the authenticated user's email, if any.
func Email(ctx context.Context) string {
	v, _ := ctx.Value(emailKey).(string)
	return v
}

// WithIdempotencyKey records the client supplied Idempotency-Key for downstream calls.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotentKey, key)
}

// IdempotencyKey returns the client supplied Idempotency-Key, if any.
func IdempotencyKey(ctx context.Context) string {
	v, _ := ctx.Value(idempotentKey).(string)
	return v
}
