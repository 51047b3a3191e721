package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/obs"
	"github.com/noah-isme/checkout-api/internal/payment"
	"github.com/noah-isme/checkout-api/internal/pricing"
)

// Shipping policy offered on every session.
const (
	freeShippingName    = "Free shipping"
	deliveryMinDays     = 5
	deliveryMaxDays     = 7
	deliveryUnitBizDays = "business_day"
)

// LineItem is one product the shopper is buying. Price is in major units.
type LineItem struct {
	ProductID string          `json:"product_id" validate:"omitempty,max=64"`
	Name      string          `json:"name" validate:"required,max=250"`
	Image     string          `json:"image,omitempty" validate:"omitempty,url"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity  int64           `json:"quantity" validate:"gte=1,lte=999"`
}

// Input is the body of POST /api/create-checkout-session.
type Input struct {
	LineItems  []LineItem `json:"line_items" validate:"required,min=1,dive"`
	SuccessURL string     `json:"success_url" validate:"required,url"`
	CancelURL  string     `json:"cancel_url" validate:"required,url"`
}

// Output is returned to the storefront, which redirects to URL.
type Output struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// Shopper is the resolved identity placing the order.
type Shopper struct {
	ID    string
	Email string
}

// Config holds the session policy knobs.
type Config struct {
	Currency         string
	AllowedCountries []string
	Timeout          time.Duration
}

// Service builds processor checkout sessions.
type Service struct {
	sessions payment.SessionCreator
	validate *validator.Validate
	cfg      Config
	logger   zerolog.Logger
	metrics  *obs.DomainMetrics
}

// NewService wires a Service.
func NewService(sessions payment.SessionCreator, cfg Config, logger zerolog.Logger, metrics *obs.DomainMetrics) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("checkout: session creator is required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if len(cfg.AllowedCountries) == 0 {
		return nil, errors.New("checkout: at least one shipping country is required")
	}
	return &Service{
		sessions: sessions,
		validate: newValidator(),
		cfg:      cfg,
		logger:   logger.With().Str("component", "checkout").Logger(),
		metrics:  metrics,
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// decimals validate as floats so numeric tags apply
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Create validates the request and opens a hosted checkout session for the shopper.
func (s *Service) Create(ctx context.Context, shopper Shopper, in Input) (Output, error) {
	if shopper.ID == "" {
		return Output{}, common.Unauthenticated("authentication required", nil)
	}
	if err := s.validate.StructCtx(ctx, in); err != nil {
		s.metrics.CheckoutSession("invalid")
		return Output{}, common.InvalidRequest("invalid checkout request", validationDetails(err))
	}
	params, err := s.buildParams(shopper, in)
	if err != nil {
		s.metrics.CheckoutSession("invalid")
		return Output{}, err
	}
	if key := common.IdempotencyKey(ctx); key != "" {
		params.SetIdempotencyKey(shopper.ID + ":" + key)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	sess, err := s.sessions.CreateSession(ctx, params)
	if err != nil {
		s.metrics.CheckoutSession("error")
		if common.IsAppError(err) {
			return Output{}, err
		}
		return Output{}, common.Upstream("payment processor", err)
	}
	s.metrics.CheckoutSession("created")
	s.logger.Info().
		Str("user_id", shopper.ID).
		Str("session_id", sess.ID).
		Int("line_items", len(in.LineItems)).
		Msg("checkout session created")
	return Output{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *Service) buildParams(shopper Shopper, in Input) (*stripe.CheckoutSessionParams, error) {
	currency := strings.ToLower(s.cfg.Currency)
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for i, li := range in.LineItems {
		amount, err := pricing.ToMinor(li.Price)
		if err != nil {
			return nil, common.InvalidRequest("invalid checkout request", []FieldError{{
				Field: fmt.Sprintf("line_items[%d].price", i),
				Rule:  "gte",
			}})
		}
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.Image != "" {
			product.Images = stripe.StringSlice([]string{li.Image})
		}
		if li.ProductID != "" {
			product.Metadata = map[string]string{"product_id": li.ProductID}
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(amount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		SuccessURL:         stripe.String(in.SuccessURL),
		CancelURL:          stripe.String(in.CancelURL),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.cfg.AllowedCountries),
		},
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				Type:        stripe.String("fixed_amount"),
				DisplayName: stripe.String(freeShippingName),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(0),
					Currency: stripe.String(currency),
				},
				DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
					Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
						Unit:  stripe.String(deliveryUnitBizDays),
						Value: stripe.Int64(deliveryMinDays),
					},
					Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
						Unit:  stripe.String(deliveryUnitBizDays),
						Value: stripe.Int64(deliveryMaxDays),
					},
				},
			},
		}},
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		AllowPromotionCodes:      stripe.Bool(true),
		ClientReferenceID:        stripe.String(shopper.ID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{payment.MetadataUserID: shopper.ID},
		},
	}
	params.AddMetadata(payment.MetadataUserID, shopper.ID)
	if shopper.Email != "" {
		params.CustomerEmail = stripe.String(shopper.Email)
	}
	return params, nil
}

// FieldError names one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func validationDetails(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		out = append(out, FieldError{Field: field, Rule: fe.Tag()})
	}
	return out
}
