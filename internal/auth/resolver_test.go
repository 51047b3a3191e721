package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/db/dbtest"
)

type staticVerifier struct {
	ident Identity
	err   error
}

func (s staticVerifier) Verify(context.Context, string) (Identity, error) {
	return s.ident, s.err
}

func newTestResolver(t *testing.T, v Verifier, store ProfileStore) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverConfig{Verifier: v, Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return r
}

func TestResolveProvisionsOnce(t *testing.T) {
	store := dbtest.NewMemory()
	r := newTestResolver(t, staticVerifier{ident: Identity{Subject: testSubject, Email: "shopper@example.com", Name: "Sam"}}, store)

	first, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)

	require.Equal(t, testSubject, first.ID)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "shopper@example.com", first.Email)
	require.NotNil(t, first.FullName)
	require.Equal(t, "Sam", *first.FullName)
	require.Equal(t, 1, store.ProfileCount())
	require.Equal(t, 1, store.Calls["InsertProfileIfAbsent"])
}

func TestResolveConcurrentFirstRequests(t *testing.T) {
	store := dbtest.NewMemory()
	r := newTestResolver(t, staticVerifier{ident: Identity{Subject: testSubject, Email: "shopper@example.com"}}, store)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := r.Resolve(context.Background(), "tok")
			if err == nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, testSubject, id)
	}
	require.Equal(t, 1, store.ProfileCount())
}

func TestResolvePropagatesVerifierErrors(t *testing.T) {
	store := dbtest.NewMemory()
	r := newTestResolver(t, staticVerifier{err: common.Upstream("auth", errors.New("dial tcp"))}, store)

	_, err := r.Resolve(context.Background(), "tok")
	require.True(t, common.HasCode(err, common.CodeUpstreamUnavailable))
	require.Zero(t, store.ProfileCount())
}

func TestResolveWrapsUnknownVerifierErrors(t *testing.T) {
	r := newTestResolver(t, staticVerifier{err: errors.New("boom")}, dbtest.NewMemory())
	_, err := r.Resolve(context.Background(), "tok")
	require.True(t, common.HasCode(err, common.CodeUnauthenticated))
}

func TestResolveInsertFailure(t *testing.T) {
	store := dbtest.NewMemory()
	store.Fail["InsertProfileIfAbsent"] = errors.New("connection reset")
	r := newTestResolver(t, staticVerifier{ident: Identity{Subject: testSubject}}, store)

	_, err := r.Resolve(context.Background(), "tok")
	require.True(t, common.HasCode(err, common.CodeProfileProvisioningFailed))

	rr := httptest.NewRecorder()
	common.WriteError(rr, err)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "connection reset")
}

func TestResolveDatastoreDeadlineIsTimeout(t *testing.T) {
	store := dbtest.NewMemory()
	store.Fail["GetProfile"] = fmt.Errorf("query: %w", context.DeadlineExceeded)
	r := newTestResolver(t, staticVerifier{ident: Identity{Subject: testSubject}}, store)

	_, err := r.Resolve(context.Background(), "tok")
	require.True(t, common.HasCode(err, common.CodeTimeout))

	rr := httptest.NewRecorder()
	common.WriteError(rr, err)
	require.Equal(t, http.StatusGatewayTimeout, rr.Code)
	require.Zero(t, store.Calls["InsertProfileIfAbsent"])
}

func TestRequireAuthAttachesProfile(t *testing.T) {
	store := dbtest.NewMemory()
	r := newTestResolver(t, staticVerifier{ident: Identity{Subject: testSubject, Email: "shopper@example.com"}}, store)

	var seenUser string
	handler := Middleware{Resolver: r}.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		seenUser, _ = common.UserID(req.Context())
		ProfileHandler(w, req)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, testSubject, seenUser)
	var body struct {
		Data Profile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, testSubject, body.Data.ID)
}

func TestRequireAuthRejectsMissingBearer(t *testing.T) {
	handler := Middleware{Resolver: newTestResolver(t, staticVerifier{}, dbtest.NewMemory())}.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code, header)
		require.Contains(t, rr.Body.String(), common.CodeUnauthenticated)
	}
}

func TestRequireAuthEndToEndWithJWT(t *testing.T) {
	r := newTestResolver(t, newTestJWTVerifier(t), dbtest.NewMemory())
	handler := Middleware{Resolver: r}.RequireAuth(http.HandlerFunc(ProfileHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, buildToken(t, nil), testSecret))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	bad := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	bad.Header.Set("Authorization", "Bearer "+signToken(t, buildToken(t, nil), "wrong-secret-wrong-secret-wrong-secret"))
	badRR := httptest.NewRecorder()
	handler.ServeHTTP(badRR, bad)
	require.Equal(t, http.StatusUnauthorized, badRR.Code)
}
