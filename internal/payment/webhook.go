package payment

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/obs"
)

// Outcome reports what the order flow did with an event.
type Outcome struct {
	OrderID   string
	Duplicate bool
	Ignored   bool
}

// EventHandler applies a verified event to the order ledger.
type EventHandler interface {
	HandleEvent(ctx context.Context, evt Event) (Outcome, error)
}

// Webhook receives processor notifications, verifies them and hands them to
// the order flow.
type Webhook struct {
	Verifier EventVerifier
	Handler  EventHandler
	Logger   zerolog.Logger
	Metrics  *obs.DomainMetrics
}

// Handle serves POST /api/webhook. The body is read raw exactly once and is
// never decoded before the signature is checked. Failures after verification
// answer 5xx so the processor redelivers.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Verifier == nil || h.Handler == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "webhook unavailable", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return
		}
		common.WriteError(w, common.InvalidRequest("unable to read payload", nil))
		return
	}

	evt, err := h.Verifier.VerifyEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.Metrics.WebhookEvent("unknown", "rejected")
		h.Logger.Warn().Err(err).Msg("webhook rejected")
		common.WriteError(w, err)
		return
	}

	logger := h.Logger.With().Str("event_id", evt.ID).Str("event_type", evt.Type).Logger()
	out, err := h.Handler.HandleEvent(r.Context(), evt)
	if err != nil {
		h.Metrics.WebhookEvent(evt.Type, "error")
		logger.Error().Err(err).Msg("webhook processing failed")
		common.WriteError(w, err)
		return
	}

	resp := map[string]any{"received": true}
	switch {
	case out.Duplicate:
		h.Metrics.WebhookEvent(evt.Type, "duplicate")
		resp["duplicate"] = true
		logger.Info().Msg("duplicate event acknowledged")
	case out.Ignored:
		h.Metrics.WebhookEvent(evt.Type, "ignored")
		logger.Debug().Msg("event ignored")
	default:
		h.Metrics.WebhookEvent(evt.Type, "processed")
		logger.Info().Str("order_id", out.OrderID).Msg("order materialized")
	}
	common.JSON(w, http.StatusOK, resp)
}
