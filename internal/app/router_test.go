package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/noah-isme/checkout-api/internal/auth"
	"github.com/noah-isme/checkout-api/internal/config"
	"github.com/noah-isme/checkout-api/internal/db"
	"github.com/noah-isme/checkout-api/internal/db/dbtest"
	"github.com/noah-isme/checkout-api/internal/obs"
	"github.com/noah-isme/checkout-api/internal/payment"
	"github.com/noah-isme/checkout-api/internal/security"
)

const (
	jwtSecret     = "integration-secret-with-at-least-32-characters"
	projectURL    = "https://project.supabase.co"
	shopperID     = "0b7a4d2e-2f61-4a4c-8f0e-3c1e1c6f9a10"
	webhookSecret = "whsec_integration"
)

type testEnv struct {
	store  *dbtest.Memory
	server *Server
	cart   string
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stripeAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	t.Cleanup(stripeAPI.Close)

	payments, err := payment.NewStripe(payment.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: webhookSecret,
		HTTPClient:    &http.Client{Timeout: 2 * time.Second},
		BackendURL:    stripeAPI.URL,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	verifier, err := auth.NewJWTVerifier(jwtSecret, projectURL, "authenticated")
	require.NoError(t, err)

	store := dbtest.NewMemory()
	user, err := db.ParseUUID(shopperID)
	require.NoError(t, err)
	cart := store.AddCart(user)
	store.AddCartItem(cart, store.AddProduct("Mug", "10.00"), 2)
	store.AddCartItem(cart, store.AddProduct("Sticker", "5.00"), 1)

	reg := prometheus.NewRegistry()
	deps := &Dependencies{
		Config: &config.Config{
			AppEnv:              "test",
			Currency:            "usd",
			AllowedCountries:    []string{"US", "CA"},
			OutboundTimeout:     5 * time.Second,
			IdempotencyTTL:      time.Hour,
			CheckoutRateLimit:   "100-M",
			WebhookMaxBodyBytes: 64 << 10,
			JSONMaxBodyBytes:    16 << 10,
		},
		Logger:   zerolog.Nop(),
		Store:    store,
		Payments: payments,
		Identity: verifier,
		Registry: reg,
		Metrics:  obs.NewDomainMetrics("checkout", reg),
	}
	srv, err := NewServer(deps, RouterOptions{Headers: security.Headers{Enable: true}})
	require.NoError(t, err)

	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(projectURL + "/auth/v1").
		Audience([]string{"authenticated"}).
		Subject(shopperID).
		IssuedAt(now).
		Expiration(now.Add(time.Hour)).
		Claim("email", "shopper@example.com").
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(jwtSecret)))
	require.NoError(t, err)

	return &testEnv{store: store, server: srv, cart: db.UUIDString(cart), token: string(signed)}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.server.Router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) bearer() http.Header {
	return http.Header{"Authorization": {"Bearer " + e.token}, "Content-Type": {"application/json"}}
}

func completedEvent(eventID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "metadata": {"user_id": %q},
    "payment_status": "paid",
    "amount_total": 2500,
    "total_details": {"amount_tax": 0, "amount_shipping": 0}
  }}
}`, eventID, shopperID))
}

func signed(payload []byte) http.Header {
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	return http.Header{"Stripe-Signature": {sp.Header}}
}

func TestCheckoutToOrderFlow(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"line_items":[{"product_id":"p1","name":"Mug","price":"10.00","quantity":2},
		{"product_id":"p2","name":"Sticker","price":"5.00","quantity":1}],
		"success_url":"https://shop.example/success","cancel_url":"https://shop.example/cart"}`)
	rec := env.do(t, http.MethodPost, "/api/create-checkout-session", body, env.bearer())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"sessionId":"cs_test_1","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`, rec.Body.String())
	require.Equal(t, 1, env.store.ProfileCount())

	payload := completedEvent("evt_1")
	rec = env.do(t, http.MethodPost, "/api/webhook", payload, signed(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"received":true}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/webhook", payload, signed(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"received":true,"duplicate":true}`, rec.Body.String())

	orders := env.store.Orders()
	require.Len(t, orders, 1)
	require.Equal(t, "25.00", orders[0].Total)
	require.Equal(t, 2, env.store.OrderItemCount(orders[0].ID))
	cartID, err := db.ParseUUID(env.cart)
	require.NoError(t, err)
	require.Zero(t, env.store.CartItemCount(cartID))

	rec = env.do(t, http.MethodGet, "/api/orders", nil, env.bearer())
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []struct {
			Total string            `json:"total"`
			Items []json.RawMessage `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, "25.00", list.Data[0].Total)
	require.Len(t, list.Data[0].Items, 2)

	rec = env.do(t, http.MethodGet, "/api/orders/session/cs_test_1", nil, env.bearer())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/profile", nil, env.bearer())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "shopper@example.com")
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	env := newTestEnv(t)
	payload := completedEvent("evt_1")
	header := signed(payload)
	tampered := bytes.Replace(payload, []byte("2500"), []byte("1"), 1)

	rec := env.do(t, http.MethodPost, "/api/webhook", tampered, header)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_SIGNATURE")
	require.Empty(t, env.store.Orders())
}

func TestCheckoutRequiresBearerAndItems(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/create-checkout-session", []byte(`{}`), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/create-checkout-session",
		[]byte(`{"line_items":[],"success_url":"https://a.example","cancel_url":"https://a.example"}`), env.bearer())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_REQUEST")
}

func TestOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"service":"checkout-api"`)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", nil, nil).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", nil, nil).Code)

	env.server.Health.SetDraining(true)
	require.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/health/ready", nil, nil).Code)

	payload := completedEvent("evt_1")
	env.do(t, http.MethodPost, "/api/webhook", payload, signed(payload))
	rec = env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `checkout_orders_created_total 1`)
}

func TestNewServerRejectsIncompleteDependencies(t *testing.T) {
	_, err := NewServer(&Dependencies{}, RouterOptions{})
	require.Error(t, err)
}
