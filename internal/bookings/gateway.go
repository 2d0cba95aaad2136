package bookings

import (
	"context"

	"github.com/google/uuid"
	stripesdk "github.com/stripe/stripe-go/v84"

	"github.com/prestalink/prestalink-backend/pkg/stripe"
)

// PaymentIntent is the gateway-neutral view of an opened payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// RefundResult reports a refund issued at the gateway.
type RefundResult struct {
	ID     string
	Status string
}

// PaymentGateway is what the settlement flow needs from the payment provider.
// Implementations must bound every call with a timeout and surface deadline
// hits as gateway-timeout errors.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, bookingID uuid.UUID) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)
	Refund(ctx context.Context, paymentIntentID string, amountCents int64) (*RefundResult, error)
}

type stripeGateway struct {
	gateway *stripe.Gateway
}

// NewStripeGateway adapts the Stripe client to the settlement flow's gateway
// contract.
func NewStripeGateway(gateway *stripe.Gateway) PaymentGateway {
	return &stripeGateway{gateway: gateway}
}

func (s *stripeGateway) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, bookingID uuid.UUID) (*PaymentIntent, error) {
	intent, err := s.gateway.CreatePaymentIntent(ctx, amountCents, currency, bookingID)
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(intent), nil
}

func (s *stripeGateway) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	intent, err := s.gateway.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(intent), nil
}

func (s *stripeGateway) Refund(ctx context.Context, paymentIntentID string, amountCents int64) (*RefundResult, error) {
	refund, err := s.gateway.Refund(ctx, paymentIntentID, amountCents)
	if err != nil {
		return nil, err
	}
	return &RefundResult{ID: refund.ID, Status: string(refund.Status)}, nil
}

func fromStripeIntent(intent *stripesdk.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}
}
