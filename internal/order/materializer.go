package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/db"
	dbgen "github.com/noah-isme/checkout-api/internal/db/gen"
	"github.com/noah-isme/checkout-api/internal/obs"
	"github.com/noah-isme/checkout-api/internal/payment"
	"github.com/noah-isme/checkout-api/internal/pricing"
)

// StatusCompleted is the status of an order materialized from a paid session.
const StatusCompleted = "completed"

const sessionUniqueConstraint = "orders_stripe_session_id_key"

var errSessionTaken = errors.New("order: session already materialized")

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q dbgen.Querier) error) error
}

// Materializer turns paid checkout sessions into orders, exactly once per session.
type Materializer struct {
	store   TxRunner
	timeout time.Duration
	logger  zerolog.Logger
	metrics *obs.DomainMetrics
}

// NewMaterializer wires a Materializer. A zero timeout leaves the caller's deadline in charge.
func NewMaterializer(store TxRunner, timeout time.Duration, logger zerolog.Logger, metrics *obs.DomainMetrics) *Materializer {
	return &Materializer{
		store:   store,
		timeout: timeout,
		logger:  logger.With().Str("component", "order").Logger(),
		metrics: metrics,
	}
}

var _ payment.EventHandler = (*Materializer)(nil)

// HandleEvent applies a verified processor event. Events other than a paid
// checkout completion are acknowledged and ignored.
func (m *Materializer) HandleEvent(ctx context.Context, evt payment.Event) (payment.Outcome, error) {
	switch evt.Type {
	case payment.EventCheckoutCompleted, payment.EventCheckoutAsyncPaymentSucceeded:
	default:
		return payment.Outcome{Ignored: true}, nil
	}
	sess := evt.Session
	if sess == nil {
		return payment.Outcome{}, common.InvalidRequest("event carries no checkout session", nil)
	}
	if sess.PaymentStatus == payment.PaymentStatusUnpaid {
		m.logger.Info().Str("session_id", sess.ID).Msg("session not paid yet; waiting for async payment")
		return payment.Outcome{Ignored: true}, nil
	}
	return m.Materialize(ctx, evt.ID, evt.Type, sess)
}

// Materialize records the order for sess inside a single transaction: the
// event ledger entry, the order with its items and the cart clear-out commit
// together or not at all.
func (m *Materializer) Materialize(ctx context.Context, eventID, eventType string, sess *payment.CompletedSession) (payment.Outcome, error) {
	rawUserID := sess.UserID()
	if rawUserID == "" {
		return payment.Outcome{}, common.MissingCorrelation("session metadata has no user id")
	}
	userID, err := db.ParseUUID(rawUserID)
	if err != nil {
		return payment.Outcome{}, common.MissingCorrelation("session user id is not a valid identifier")
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	logger := m.logger.With().Str("event_id", eventID).Str("session_id", sess.ID).Str("user_id", rawUserID).Logger()

	var out payment.Outcome
	var summary pricing.Summary
	err = m.store.InTx(ctx, func(q dbgen.Querier) error {
		out = payment.Outcome{}

		recorded, err := q.RecordProcessedEvent(ctx, dbgen.RecordProcessedEventParams{EventID: eventID, EventType: eventType})
		if err != nil {
			return persistErr(err)
		}
		if recorded == 0 {
			out.Duplicate = true
			return nil
		}
		existing, err := q.GetOrderIDBySession(ctx, sess.ID)
		switch {
		case err == nil:
			out.Duplicate = true
			out.OrderID = db.UUIDString(existing)
			return nil
		case !db.IsNotFound(err):
			return persistErr(err)
		}

		cart, err := q.GetCartByUser(ctx, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return common.CartNotFound(err)
			}
			return persistErr(err)
		}
		rows, err := q.ListCartLines(ctx, cart.ID)
		if err != nil {
			return persistErr(err)
		}
		if len(rows) == 0 {
			return common.CartEmpty()
		}

		lines := make([]pricing.Line, 0, len(rows))
		prices := make([]string, 0, len(rows))
		itemIDs := make([]pgtype.UUID, 0, len(rows))
		for _, row := range rows {
			price, err := pricing.Parse(row.Price)
			if err != nil {
				return persistErr(err)
			}
			lines = append(lines, pricing.Line{UnitPrice: price, Qty: int64(row.Quantity)})
			prices = append(prices, pricing.Format(price))
			itemIDs = append(itemIDs, row.ID)
		}
		summary = pricing.Compute(lines,
			pricing.FromMinor(sess.TotalDetails.AmountTax),
			pricing.FromMinor(sess.TotalDetails.AmountShipping))

		created, err := q.InsertOrder(ctx, dbgen.InsertOrderParams{
			UserID:          userID,
			Status:          StatusCompleted,
			Total:           pricing.Format(summary.Total),
			Subtotal:        pricing.Format(summary.Subtotal),
			Tax:             pricing.Format(summary.Tax),
			ShippingCost:    pricing.Format(summary.Shipping),
			StripeSessionID: sess.ID,
			PaymentStatus:   sess.PaymentStatus,
			ShippingDetails: sess.Shipping(),
		})
		if err != nil {
			if db.IsUniqueViolation(err, sessionUniqueConstraint) {
				return errSessionTaken
			}
			return persistErr(err)
		}
		for i, row := range rows {
			if err := q.InsertOrderItem(ctx, dbgen.InsertOrderItemParams{
				OrderID:   created.ID,
				ProductID: row.ProductID,
				Quantity:  row.Quantity,
				Price:     prices[i],
			}); err != nil {
				return persistErr(err)
			}
		}
		// lines added after the read stay in the cart
		if _, err := q.DeleteCartItems(ctx, dbgen.DeleteCartItemsParams{CartID: cart.ID, ItemIds: itemIDs}); err != nil {
			return persistErr(err)
		}
		out.OrderID = db.UUIDString(created.ID)
		return nil
	})
	if errors.Is(err, errSessionTaken) {
		// a concurrent delivery won the unique index
		logger.Info().Msg("session already materialized")
		return payment.Outcome{Duplicate: true}, nil
	}
	if err != nil {
		if !common.IsAppError(err) {
			err = persistErr(err)
		}
		logger.Error().Err(err).Msg("order materialization failed")
		return payment.Outcome{}, err
	}
	if out.Duplicate {
		return out, nil
	}

	m.metrics.OrderCreated()
	if reported := pricing.FromMinor(sess.AmountTotal); sess.AmountTotal > 0 && !reported.Equal(summary.Total) {
		m.metrics.TotalMismatch()
		logger.Warn().
			Str("order_id", out.OrderID).
			Str("computed_total", pricing.Format(summary.Total)).
			Str("processor_total", pricing.Format(reported)).
			Msg("order total differs from processor amount")
	}
	logger.Info().Str("order_id", out.OrderID).Str("total", pricing.Format(summary.Total)).Msg("order materialized")
	return out, nil
}

// persistErr maps a datastore failure to its AppError. Deadlines surface as
// TIMEOUT so they are not reported as persistence faults.
func persistErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.Upstream("database", err)
	}
	return common.OrderPersistenceFailed(err)
}
