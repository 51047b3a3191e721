package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/obs"
)

type profileKey struct{}

// ProfileResolver resolves a bearer token to a profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, token string) (Profile, error)
}

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Resolver ProfileResolver
}

// RequireAuth enforces that a valid bearer token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || m.Resolver == nil {
			common.WriteError(w, common.Unauthenticated("missing or invalid token", nil))
			return
		}
		profile, err := m.Resolver.Resolve(r.Context(), token)
		if err != nil {
			common.WriteError(w, err)
			return
		}

		ctx := WithProfile(r.Context(), profile)
		obs.SetRequestUser(ctx, profile.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ProfileFromContext returns the profile attached by RequireAuth.
func ProfileFromContext(ctx context.Context) (Profile, bool) {
	p, ok := ctx.Value(profileKey{}).(Profile)
	return p, ok
}

// WithProfile attaches p to ctx the same way RequireAuth does.
func WithProfile(ctx context.Context, p Profile) context.Context {
	ctx = common.WithUserID(ctx, p.ID)
	ctx = common.WithEmail(ctx, p.Email)
	return context.WithValue(ctx, profileKey{}, p)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
