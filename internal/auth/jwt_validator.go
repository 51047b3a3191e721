package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/checkout-api/internal/common"
)

// TokenValidator validates structural and contextual properties of JWT tokens.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate ensures the supplied token satisfies issuer, audience, expiry, and algorithm requirements.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

// JWTVerifier verifies Supabase access tokens locally with the project's
// HS256 signing secret.
type JWTVerifier struct {
	secret    []byte
	validator TokenValidator
	now       func() time.Time
}

// NewJWTVerifier builds a verifier for tokens issued by the project at supabaseURL.
func NewJWTVerifier(secret, supabaseURL, audience string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	issuer := ""
	if base := strings.TrimRight(strings.TrimSpace(supabaseURL), "/"); base != "" {
		issuer = base + "/auth/v1"
	}
	return &JWTVerifier{
		secret: []byte(secret),
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: 30 * time.Second,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}, nil
}

// Verify checks the signature and claims of token and returns the identity it carries.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Identity{}, common.Unauthenticated("missing token", nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Identity{}, common.Unauthenticated("invalid token", err)
	}
	if algorithm != v.validator.Algorithm {
		return Identity{}, common.Unauthenticated("invalid token", fmt.Errorf("auth: unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret), jwt.WithValidate(false))
	if err != nil {
		return Identity{}, common.Unauthenticated("invalid token", err)
	}
	if err := v.validator.Validate(parsed, algorithm, v.now()); err != nil {
		return Identity{}, common.Unauthenticated("invalid token", err)
	}
	if _, err := uuid.Parse(parsed.Subject()); err != nil {
		return Identity{}, common.Unauthenticated("invalid token", fmt.Errorf("auth: subject is not a user id: %w", err))
	}

	ident := Identity{Subject: parsed.Subject()}
	if email, ok := parsed.Get("email"); ok {
		ident.Email, _ = email.(string)
	}
	if meta, ok := parsed.Get("user_metadata"); ok {
		ident.Name = metadataName(meta)
	}
	return ident, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	switch alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}

func metadataName(meta any) string {
	m, ok := meta.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"full_name", "name"} {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
