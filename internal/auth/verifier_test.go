package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/resilience"
)

func newRemote(srv *httptest.Server) RemoteVerifier {
	return RemoteVerifier{
		BaseURL: srv.URL,
		APIKey:  "anon-key",
		Client:  resilience.HTTPClient{Client: srv.Client(), Timeout: time.Second},
	}
}

func TestRemoteVerifierReturnsIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" || r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + testSubject + `","email":"shopper@example.com","user_metadata":{"name":"Sam"}}`))
	}))
	defer srv.Close()

	ident, err := newRemote(srv).Verify(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, Identity{Subject: testSubject, Email: "shopper@example.com", Name: "Sam"}, ident)
}

func TestRemoteVerifierMapsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newRemote(srv).Verify(context.Background(), "expired")
	require.True(t, common.HasCode(err, common.CodeUnauthenticated))
}

func TestRemoteVerifierMapsOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newRemote(srv).Verify(context.Background(), "tok")
	require.True(t, common.HasCode(err, common.CodeUpstreamUnavailable))
}

func TestRemoteVerifierMapsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	v := newRemote(srv)
	v.Client.Timeout = 20 * time.Millisecond
	_, err := v.Verify(context.Background(), "tok")
	require.True(t, common.HasCode(err, common.CodeTimeout), "got %v", err)
}
