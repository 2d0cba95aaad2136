package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"

	apperrors "github.com/prestalink/prestalink-backend/pkg/errors"
)

const defaultRequestTimeout = 10 * time.Second

// Gateway exposes the payment operations the settlement flow needs. Every call
// is bounded by the configured request timeout; a deadline hit maps to the
// gateway-timeout error code so callers can keep the booking pending.
type Gateway struct {
	client  *Client
	timeout time.Duration
}

// NewGateway wraps the initialized Stripe client with request timeouts.
func NewGateway(client *Client, timeout time.Duration) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client is required")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Gateway{client: client, timeout: timeout}, nil
}

// CreatePaymentIntent opens a payment intent for the booking total.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, bookingID uuid.UUID) (*stripe.PaymentIntent, error) {
	if amountCents <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidAmount, fmt.Sprintf("payment intent amount must be positive, got %d", amountCents))
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = callCtx
	params.AddMetadata("booking_id", bookingID.String())

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, mapGatewayError("create payment intent", err)
	}
	return intent, nil
}

// CreateCreditPurchaseIntent opens a payment intent for a credit package. The
// metadata tags the intent so the webhook can route it to the ledger instead
// of the booking settlement.
func (g *Gateway) CreateCreditPurchaseIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	if amountCents <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidAmount, fmt.Sprintf("payment intent amount must be positive, got %d", amountCents))
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = callCtx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, mapGatewayError("create credit purchase intent", err)
	}
	return intent, nil
}

// GetPaymentIntent fetches the current intent state, used when polling after a timeout.
func (g *Gateway) GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	if intentID == "" {
		return nil, errors.New("payment intent id is required")
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = callCtx

	intent, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, mapGatewayError("get payment intent", err)
	}
	return intent, nil
}

// Refund returns amountCents to the payer. A zero amount refunds the full charge.
func (g *Gateway) Refund(ctx context.Context, intentID string, amountCents int64) (*stripe.Refund, error) {
	if intentID == "" {
		return nil, errors.New("payment intent id is required")
	}
	if amountCents < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidAmount, fmt.Sprintf("refund amount must not be negative, got %d", amountCents))
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	if amountCents > 0 {
		params.Amount = stripe.Int64(amountCents)
	}
	params.Context = callCtx

	ref, err := refund.New(params)
	if err != nil {
		return nil, mapGatewayError("refund payment intent", err)
	}
	return ref, nil
}

func mapGatewayError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.CodeGatewayTimeout, err, op)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return apperrors.Wrap(apperrors.CodeGatewayRejected, err, op)
		case stripe.ErrorTypeAPI:
			return apperrors.Wrap(apperrors.CodeDependency, err, op)
		}
	}
	return apperrors.Wrap(apperrors.CodeDependency, err, op)
}
