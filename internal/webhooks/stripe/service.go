package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/logger"
)

type bookingSettlement interface {
	ConfirmPayment(ctx context.Context, paymentIntentID string) (*models.InstantBooking, error)
	FailPayment(ctx context.Context, paymentIntentID, reason string) error
	RecordRefund(ctx context.Context, paymentIntentID string, refundAmountCents int64) error
}

type purchaseSettlement interface {
	Settle(ctx context.Context, paymentIntentID string, metadata map[string]string) error
}

type ServiceParams struct {
	Bookings bookingSettlement
	// Purchases is optional; without it credit package intents are dropped.
	Purchases purchaseSettlement
	// Guard is optional; without it the settlement layer's own idempotency
	// still protects against replays, just with a database roundtrip.
	Guard  *IdempotencyGuard
	Logger *logger.Logger
}

// Service translates Stripe webhook events into settlement transitions.
type Service struct {
	bookings  bookingSettlement
	purchases purchaseSettlement
	guard     *IdempotencyGuard
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking settlement required")
	}
	return &Service{
		bookings:  params.Bookings,
		purchases: params.Purchases,
		guard:     params.Guard,
		logg:      params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	if s.guard != nil && event.ID != "" {
		seen, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			// Redis trouble must not drop payments; the handlers below are
			// replay-safe on their own.
			if s.logg != nil {
				s.logg.Error(ctx, "webhook idempotency check failed", err)
			}
		} else if seen {
			return nil
		}
	}

	err := s.dispatch(ctx, event)
	if err != nil && s.guard != nil && event.ID != "" {
		// Let Stripe retry the delivery.
		_ = s.guard.Delete(ctx, event.ID)
	}
	return err
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodePaymentIntent(event)
		if err != nil {
			return err
		}
		_, err = s.bookings.ConfirmPayment(ctx, intent.ID)
		if isUnknownIntent(err) && s.purchases != nil {
			// Not a booking payment; credit package intents land here.
			err = s.purchases.Settle(ctx, intent.ID, intent.Metadata)
		}
		return ignoreUnknownIntent(err)

	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodePaymentIntent(event)
		if err != nil {
			return err
		}
		reason := "payment failed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			reason = intent.LastPaymentError.Msg
		}
		return ignoreUnknownIntent(s.bookings.FailPayment(ctx, intent.ID, reason))

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge event")
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "charge has no payment intent")
		}
		return ignoreUnknownIntent(s.bookings.RecordRefund(ctx, charge.PaymentIntent.ID, charge.AmountRefunded))

	default:
		return nil
	}
}

func decodePaymentIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func isUnknownIntent(err error) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == pkgerrors.CodeNotFound
}

// ignoreUnknownIntent drops events for intents this service never opened,
// e.g. payments belonging to another product on the same Stripe account.
func ignoreUnknownIntent(err error) error {
	if isUnknownIntent(err) {
		return nil
	}
	return err
}
