package payment

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/noah-isme/checkout-api/internal/common"
)

const (
	testWebhookSecret = "whsec_test_secret"
	completedPayload  = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "client_reference_id": "7d3c2f0e-1111-4a2b-9c3d-000000000001",
    "metadata": {"user_id": "7d3c2f0e-1111-4a2b-9c3d-000000000001"},
    "payment_status": "paid",
    "currency": "usd",
    "amount_total": 2500,
    "amount_subtotal": 2500,
    "total_details": {"amount_tax": 0, "amount_shipping": 0, "amount_discount": 0},
    "customer_details": {"email": "buyer@example.com", "name": "Buyer"},
    "collected_information": {"shipping_details": {"name": "Buyer", "address": {"country": "US"}}}
  }}
}`
)

func newTestStripe(t *testing.T, backendURL string) *Stripe {
	t.Helper()
	s, err := NewStripe(StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		HTTPClient:    &http.Client{Timeout: 2 * time.Second},
		BackendURL:    backendURL,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	return s
}

func sign(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	})
	return signed.Header
}

func TestNewStripeRequiresSecrets(t *testing.T) {
	_, err := NewStripe(StripeConfig{WebhookSecret: "whsec"})
	require.Error(t, err)
	_, err = NewStripe(StripeConfig{SecretKey: "sk"})
	require.Error(t, err)
}

func TestCreateSessionPostsForm(t *testing.T) {
	var form url.Values
	var idem, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		idem = r.Header.Get("Idempotency-Key")
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	defer srv.Close()

	s := newTestStripe(t, srv.URL)
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String("https://shop.example/success"),
	}
	params.AddMetadata("user_id", "u-1")
	params.SetIdempotencyKey("idem-1")

	sess, err := s.CreateSession(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", sess.ID)
	require.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)
	require.Equal(t, "payment", form.Get("mode"))
	require.Equal(t, "u-1", form.Get("metadata[user_id]"))
	require.Equal(t, "idem-1", idem)
	require.Equal(t, "Bearer sk_test_123", auth)
}

func TestCreateSessionMapsProcessorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	s := newTestStripe(t, srv.URL)
	_, err := s.CreateSession(context.Background(), &stripe.CheckoutSessionParams{})
	require.Error(t, err)
	require.True(t, common.HasCode(err, common.CodeUpstreamUnavailable))
}

func TestCreateSessionDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	s := newTestStripe(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.CreateSession(ctx, &stripe.CheckoutSessionParams{})
	require.Error(t, err)
	require.True(t, common.HasCode(err, common.CodeTimeout))
}

func TestVerifyEventDecodesCompletedSession(t *testing.T) {
	s := newTestStripe(t, "")
	payload := []byte(completedPayload)

	evt, err := s.VerifyEvent(payload, sign(t, payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	require.Equal(t, "evt_1", evt.ID)
	require.Equal(t, EventCheckoutCompleted, evt.Type)
	require.NotNil(t, evt.Session)
	require.Equal(t, "cs_test_1", evt.Session.ID)
	require.Equal(t, "7d3c2f0e-1111-4a2b-9c3d-000000000001", evt.Session.UserID())
	require.Equal(t, PaymentStatusPaid, evt.Session.PaymentStatus)
	require.Equal(t, int64(2500), evt.Session.AmountTotal)
	require.Equal(t, "buyer@example.com", evt.Session.CustomerDetails.Email)
	require.JSONEq(t, `{"name":"Buyer","address":{"country":"US"}}`, string(evt.Session.Shipping()))
}

func TestVerifyEventRejectsBadSignatures(t *testing.T) {
	s := newTestStripe(t, "")
	payload := []byte(completedPayload)
	valid := sign(t, payload, testWebhookSecret, time.Now())

	cases := map[string]struct {
		payload []byte
		header  string
	}{
		"missing header":  {payload, ""},
		"tampered body":   {[]byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_evil"}}}`), valid},
		"wrong secret":    {payload, sign(t, payload, "whsec_other", time.Now())},
		"stale timestamp": {payload, sign(t, payload, testWebhookSecret, time.Now().Add(-time.Hour))},
		"garbage header":  {payload, "t=abc,v1=def"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.VerifyEvent(tc.payload, tc.header)
			require.Error(t, err)
			require.True(t, common.HasCode(err, common.CodeInvalidSignature))
		})
	}
}

func TestVerifyEventLeavesOtherTypesWithoutSession(t *testing.T) {
	s := newTestStripe(t, "")
	payload := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`)

	evt, err := s.VerifyEvent(payload, sign(t, payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	require.Equal(t, "payment_intent.created", evt.Type)
	require.Nil(t, evt.Session)
}

func TestShippingFallsBackToLegacyField(t *testing.T) {
	sess := &CompletedSession{ShippingDetails: []byte(`{"name":"A"}`)}
	require.JSONEq(t, `{"name":"A"}`, string(sess.Shipping()))

	sess = &CompletedSession{ShippingDetails: []byte(`null`)}
	require.Nil(t, sess.Shipping())
	require.Equal(t, "", (*CompletedSession)(nil).UserID())
}
