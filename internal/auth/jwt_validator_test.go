package auth

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-api/internal/common"
)

const (
	testSecret   = "super-secret-jwt-token-with-at-least-32-characters"
	testProject  = "https://project.supabase.co"
	testIssuer   = testProject + "/auth/v1"
	testSubject  = "0b7a4d2e-2f61-4a4c-8f0e-3c1e1c6f9a10"
	testAudience = "authenticated"
)

func buildToken(t *testing.T, mutate func(*jwt.Builder) *jwt.Builder) jwt.Token {
	t.Helper()
	now := time.Now()
	b := jwt.NewBuilder().
		Issuer(testIssuer).
		Audience([]string{testAudience}).
		Subject(testSubject).
		IssuedAt(now).
		Expiration(now.Add(time.Hour)).
		Claim("email", "shopper@example.com").
		Claim("user_metadata", map[string]any{"full_name": "Sam Shopper"})
	if mutate != nil {
		b = mutate(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	return tok
}

func signToken(t *testing.T, tok jwt.Token, secret string) string {
	t.Helper()
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}

func newTestJWTVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testSecret, testProject, testAudience)
	require.NoError(t, err)
	return v
}

func TestTokenValidatorValidateSuccess(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: testIssuer, Audience: testAudience, ClockSkew: time.Second, Algorithm: jwa.HS256}
	require.NoError(t, validator.Validate(buildToken(t, nil), jwa.HS256, now))
}

func TestTokenValidatorIssuerMismatch(t *testing.T) {
	tok := buildToken(t, func(b *jwt.Builder) *jwt.Builder { return b.Issuer("https://other.supabase.co/auth/v1") })
	validator := TokenValidator{Issuer: testIssuer, Audience: testAudience, Algorithm: jwa.HS256}
	require.Error(t, validator.Validate(tok, jwa.HS256, time.Now()))
}

func TestTokenValidatorExpiry(t *testing.T) {
	now := time.Now()
	tok := buildToken(t, func(b *jwt.Builder) *jwt.Builder {
		return b.IssuedAt(now.Add(-2 * time.Hour)).Expiration(now.Add(-time.Minute))
	})
	validator := TokenValidator{Issuer: testIssuer, Audience: testAudience, Algorithm: jwa.HS256}
	require.Error(t, validator.Validate(tok, jwa.HS256, now))
}

func TestTokenValidatorAlgorithmMismatch(t *testing.T) {
	validator := TokenValidator{Algorithm: jwa.HS256}
	require.Error(t, validator.Validate(buildToken(t, nil), jwa.RS256, time.Now()))
}

func TestJWTVerifierAcceptsProjectToken(t *testing.T) {
	ident, err := newTestJWTVerifier(t).Verify(context.Background(), signToken(t, buildToken(t, nil), testSecret))
	require.NoError(t, err)
	require.Equal(t, Identity{Subject: testSubject, Email: "shopper@example.com", Name: "Sam Shopper"}, ident)
}

func TestJWTVerifierRejectsWrongSecret(t *testing.T) {
	_, err := newTestJWTVerifier(t).Verify(context.Background(), signToken(t, buildToken(t, nil), "another-secret-that-is-long-enough-000"))
	require.True(t, common.HasCode(err, common.CodeUnauthenticated))
}

func TestJWTVerifierRejectsWrongAudience(t *testing.T) {
	tok := buildToken(t, func(b *jwt.Builder) *jwt.Builder { return b.Audience([]string{"anon"}) })
	_, err := newTestJWTVerifier(t).Verify(context.Background(), signToken(t, tok, testSecret))
	require.True(t, common.HasCode(err, common.CodeUnauthenticated))
}

func TestJWTVerifierRejectsUnsignedToken(t *testing.T) {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := enc.EncodeToString([]byte(`{"sub":"` + testSubject + `","aud":"authenticated","exp":4102444800}`))

	_, err := newTestJWTVerifier(t).Verify(context.Background(), header+"."+payload+".")
	require.True(t, common.HasCode(err, common.CodeUnauthenticated))
}

func TestJWTVerifierRejectsNonUUIDSubject(t *testing.T) {
	tok := buildToken(t, func(b *jwt.Builder) *jwt.Builder { return b.Subject("service_role") })
	_, err := newTestJWTVerifier(t).Verify(context.Background(), signToken(t, tok, testSecret))
	require.True(t, common.HasCode(err, common.CodeUnauthenticated))
}

func TestJWTVerifierRejectsGarbage(t *testing.T) {
	_, err := newTestJWTVerifier(t).Verify(context.Background(), "not-a-jwt")
	require.True(t, common.HasCode(err, common.CodeUnauthenticated))
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier(" ", testProject, testAudience)
	require.Error(t, err)
}
