package payment

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

// SessionCreator opens hosted checkout sessions with the card processor.
type SessionCreator interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// EventVerifier authenticates a raw webhook delivery and decodes it.
type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (Event, error)
}

// Provider is everything the checkout flow needs from the card processor.
type Provider interface {
	SessionCreator
	EventVerifier
}
