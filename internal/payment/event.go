package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"

	"github.com/noah-isme/checkout-api/internal/common"
)

// Event types the order flow reacts to.
const (
	EventCheckoutCompleted             = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// Session payment statuses reported by the processor.
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// MetadataUserID is the session metadata key correlating a session to a shopper.
const MetadataUserID = "user_id"

// Event is a verified processor notification.
type Event struct {
	ID   string
	Type string
	// Session is set for checkout session events.
	Session *CompletedSession
}

// CompletedSession is the subset of a checkout session the order flow reads.
// It is decoded from the raw event payload rather than the SDK struct so new
// processor fields never break decoding.
type CompletedSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
	PaymentStatus     string            `json:"payment_status"`
	Currency          string            `json:"currency"`
	AmountTotal       int64             `json:"amount_total"`
	AmountSubtotal    int64             `json:"amount_subtotal"`
	TotalDetails      struct {
		AmountTax      int64 `json:"amount_tax"`
		AmountShipping int64 `json:"amount_shipping"`
		AmountDiscount int64 `json:"amount_discount"`
	} `json:"total_details"`
	CustomerDetails *struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
	ShippingDetails      json.RawMessage `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails json.RawMessage `json:"shipping_details"`
	} `json:"collected_information"`
}

// UserID returns the shopper id stored in the session metadata.
func (s *CompletedSession) UserID() string {
	if s == nil {
		return ""
	}
	return s.Metadata[MetadataUserID]
}

// Shipping returns the collected shipping details as JSON, or nil when none were collected.
func (s *CompletedSession) Shipping() []byte {
	if s == nil {
		return nil
	}
	if s.CollectedInformation != nil && present(s.CollectedInformation.ShippingDetails) {
		return s.CollectedInformation.ShippingDetails
	}
	if present(s.ShippingDetails) {
		return s.ShippingDetails
	}
	return nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func decodeEvent(evt stripe.Event) (Event, error) {
	out := Event{ID: evt.ID, Type: string(evt.Type)}
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncPaymentSucceeded:
		if evt.Data == nil || len(evt.Data.Raw) == 0 {
			return Event{}, malformed(fmt.Errorf("payment: event %s has no data", evt.ID))
		}
		var session CompletedSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			return Event{}, malformed(fmt.Errorf("payment: decode session: %w", err))
		}
		out.Session = &session
	}
	return out, nil
}

func malformed(err error) *common.AppError {
	return common.NewAppError(common.CodeInvalidRequest, "malformed event payload", http.StatusBadRequest, err)
}
