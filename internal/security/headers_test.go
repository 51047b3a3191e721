package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	handler := Headers{Enable: true, EnableHSTS: true, HSTSIncludeSubdomains: true}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/api/orders", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddlewareDisabled(t *testing.T) {
	handler := Headers{Enable: false, EnableHSTS: true}.Middleware(okHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	require.Empty(t, rr.Header().Get("X-Content-Type-Options"))
}

func TestCORSAllowlist(t *testing.T) {
	handler := CORS([]string{"https://shop.example.com"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "http://localhost/api/create-checkout-session", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, "https://shop.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	bad := httptest.NewRequest(http.MethodOptions, "http://localhost/api/create-checkout-session", nil)
	bad.Header.Set("Origin", "https://malicious.example")
	bad.Header.Set("Access-Control-Request-Method", http.MethodPost)
	badRR := httptest.NewRecorder()
	handler.ServeHTTP(badRR, bad)
	require.Empty(t, badRR.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardWhenUnset(t *testing.T) {
	handler := CORS(nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "http://localhost/", nil)
	req.Header.Set("Origin", "https://anything.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
