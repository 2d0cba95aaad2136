package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/internal/availability"
	"github.com/prestalink/prestalink-backend/internal/commission"
	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/logger"
	"github.com/prestalink/prestalink-backend/pkg/outbox"
	"github.com/prestalink/prestalink-backend/pkg/outbox/payloads"
	"github.com/prestalink/prestalink-backend/pkg/pagination"
	"github.com/prestalink/prestalink-backend/pkg/types"
)

const timeLayout = "15:04"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type commissionQuoter interface {
	QuoteBooking(ctx context.Context, prestataireID uuid.UUID, method enums.PaymentMethod, grossCents int64) (*commission.Quote, error)
}

// CreateBookingInput is everything the client supplies to open a booking.
type CreateBookingInput struct {
	ClientID      uuid.UUID
	ServiceID     uuid.UUID
	SlotID        uuid.UUID
	PaymentMethod enums.PaymentMethod
	Notes         *string
	Address       *string
	Location      *types.GeographyPoint
}

// CreateBookingResult reports the opened booking and the payment intent the
// client must complete: the full amount for online missions, the platform fee
// alone for cash missions.
type CreateBookingResult struct {
	Booking         *models.InstantBooking
	Quote           *commission.Quote
	PaymentIntentID string
	ClientSecret    string
	// GatewayTimedOut is true when the gateway did not answer in time. The
	// booking stays pending_payment and the intent is opened on a later retry.
	GatewayTimedOut bool
}

// CancelInput identifies who cancels which booking and why.
type CancelInput struct {
	BookingID uuid.UUID
	ActorID   uuid.UUID
	Reason    string
}

// Service drives the booking settlement state machine.
type Service interface {
	Create(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string) (*models.InstantBooking, error)
	Confirm(ctx context.Context, prestataireID, bookingID uuid.UUID) error
	Start(ctx context.Context, prestataireID, bookingID uuid.UUID) error
	Complete(ctx context.Context, actorID, bookingID uuid.UUID) error
	Cancel(ctx context.Context, input CancelInput) (*models.InstantBooking, error)
	MarkNoShow(ctx context.Context, actorID, bookingID uuid.UUID) error
	SweepNoShows(ctx context.Context, limit int) (int, error)
	ReconcilePayments(ctx context.Context, limit int) (int, error)
	FailPayment(ctx context.Context, paymentIntentID, reason string) error
	RecordRefund(ctx context.Context, paymentIntentID string, refundAmountCents int64) error
	Get(ctx context.Context, bookingID uuid.UUID) (*models.InstantBooking, error)
	ListForClient(ctx context.Context, clientID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error)
	ListForPrestataire(ctx context.Context, prestataireID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error)
}

type service struct {
	repo    Repository
	slots   availability.Repository
	quoter  commissionQuoter
	gateway PaymentGateway
	tx      txRunner
	outbox  outboxPublisher
	cfg     config.BookingConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a booking service with the required dependencies.
func NewService(
	repo Repository,
	slots availability.Repository,
	quoter commissionQuoter,
	gateway PaymentGateway,
	tx txRunner,
	outboxSvc outboxPublisher,
	cfg config.BookingConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if slots == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	if quoter == nil {
		return nil, fmt.Errorf("commission quoter required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		slots:   slots,
		quoter:  quoter,
		gateway: gateway,
		tx:      tx,
		outbox:  outboxSvc,
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	if input.ClientID == uuid.Nil || input.ServiceID == uuid.Nil || input.SlotID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client, service and slot ids required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}

	slot, err := s.slots.FindByID(ctx, input.SlotID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
		}
		return nil, err
	}

	fixedService, err := s.repo.FindService(ctx, input.ServiceID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, err
	}
	if !fixedService.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service is no longer offered")
	}
	if fixedService.PrestataireID != slot.PrestataireID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot does not belong to the service's prestataire")
	}

	quote, err := s.quoter.QuoteBooking(ctx, slot.PrestataireID, input.PaymentMethod, fixedService.PriceCents)
	if err != nil {
		return nil, err
	}

	booking := &models.InstantBooking{
		ID:               uuid.New(),
		ClientID:         input.ClientID,
		PrestataireID:    slot.PrestataireID,
		ServiceID:        fixedService.ID,
		SlotID:           slot.ID,
		BookingDate:      slot.Date,
		BookingTime:      slot.StartTime,
		DurationMinutes:  fixedService.DurationMinutes,
		PaymentMethod:    input.PaymentMethod,
		PriceCents:       fixedService.PriceCents,
		PlatformFeeCents: quote.PlatformFeeCents,
		TotalPriceCents:  quote.TotalClientCents,
		Status:           enums.BookingStatusPendingPayment,
		Notes:            input.Notes,
		Address:          input.Address,
		Location:         input.Location,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reserved, err := s.slots.WithTx(tx).MarkBooked(ctx, slot.ID, booking.ID)
		if err != nil {
			return err
		}
		if !reserved {
			return pkgerrors.New(pkgerrors.CodeSlotUnavailable, fmt.Sprintf("slot %s is not available", slot.ID))
		}
		if err := s.repo.WithTx(tx).CreateBooking(ctx, booking); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: input.ClientID, Role: enums.ActorRoleClient.String()},
			Version:       1,
			Data: payloads.BookingCreatedEvent{
				BookingID:     booking.ID,
				ClientID:      booking.ClientID,
				PrestataireID: booking.PrestataireID,
				ServiceID:     booking.ServiceID,
				SlotID:        booking.SlotID,
				BookingDate:   booking.BookingDate,
				BookingTime:   booking.BookingTime,
				PaymentMethod: booking.PaymentMethod,
				TotalCents:    booking.TotalPriceCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	result := &CreateBookingResult{Booking: booking, Quote: quote}

	// Online missions charge the full client total by card. Cash missions
	// still collect the platform fee by card at booking time; only the
	// mission price itself is paid in cash on site.
	chargeCents := quote.TotalClientCents
	if input.PaymentMethod == enums.PaymentMethodCash {
		chargeCents = quote.PlatformFeeCents
	}
	if chargeCents == 0 {
		return result, nil
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, chargeCents, s.cfg.Currency, booking.ID)
	if err != nil {
		return s.handleIntentFailure(ctx, booking, result, err)
	}

	payment := &models.BookingPayment{
		BookingID:       booking.ID,
		PaymentIntentID: intent.ID,
		AmountCents:     chargeCents,
		Status:          enums.PaymentStatusPending,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	result.PaymentIntentID = intent.ID
	result.ClientSecret = intent.ClientSecret
	return result, nil
}

// handleIntentFailure decides what happens to a freshly created booking when
// the gateway cannot open its intent. A timeout keeps the booking pending for
// reconciliation; a rejection voids it and frees the slot.
func (s *service) handleIntentFailure(ctx context.Context, booking *models.InstantBooking, result *CreateBookingResult, gatewayErr error) (*CreateBookingResult, error) {
	typed := pkgerrors.As(gatewayErr)
	if typed == nil || typed.Code() != pkgerrors.CodeGatewayRejected {
		// Timeouts and transient gateway trouble keep the booking pending for
		// reconciliation; only an explicit rejection voids it.
		if s.logg != nil {
			logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
			s.logg.Warn(s.logg.WithField(logCtx, "error", gatewayErr.Error()), "payment intent not opened, booking left pending")
		}
		if typed != nil && typed.Code() == pkgerrors.CodeGatewayTimeout {
			result.GatewayTimedOut = true
			return result, nil
		}
		return nil, gatewayErr
	}

	if rollbackErr := s.voidPendingBooking(ctx, booking, "payment rejected by gateway"); rollbackErr != nil {
		return nil, rollbackErr
	}
	return nil, gatewayErr
}

// voidPendingBooking cancels a pending_payment booking whose money never
// arrived and returns its slot to the market.
func (s *service) voidPendingBooking(ctx context.Context, booking *models.InstantBooking, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateBookingStatus(ctx, booking.ID,
			enums.BookingStatusPendingPayment, enums.BookingStatusCancelledByClient,
			map[string]interface{}{
				"cancelled_at":        s.now(),
				"cancellation_reason": reason,
			})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		if _, err := s.slots.WithTx(tx).MarkAvailable(ctx, booking.SlotID, booking.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			Data: payloads.BookingCancelledEvent{
				BookingID:     booking.ID,
				ClientID:      booking.ClientID,
				PrestataireID: booking.PrestataireID,
				CancelledBy:   enums.ActorRoleClient,
				Status:        enums.BookingStatusCancelledByClient,
				CancelledAt:   s.now(),
				Reason:        reason,
			},
		})
	})
}

func (s *service) ConfirmPayment(ctx context.Context, paymentIntentID string) (*models.InstantBooking, error) {
	if paymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	payment, err := s.repo.FindPaymentByIntent(ctx, paymentIntentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no payment for intent %s", paymentIntentID))
		}
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Replayed callbacks find the payment already settled; that is a no-op.
		if _, err := repo.UpdatePaymentStatus(ctx, payment.ID,
			enums.PaymentStatusPending, enums.PaymentStatusSucceeded,
			map[string]interface{}{"succeeded_at": s.now()}); err != nil {
			return err
		}

		booking, err := repo.FindBookingByID(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		if booking.Status != enums.BookingStatusPendingPayment {
			return nil
		}

		if !s.autoConfirm(ctx, booking.PrestataireID) {
			// Manual providers confirm through Confirm; the payment stays settled.
			return nil
		}

		moved, err := repo.UpdateBookingStatus(ctx, booking.ID,
			enums.BookingStatusPendingPayment, enums.BookingStatusConfirmed,
			map[string]interface{}{"confirmed_at": s.now()})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingConfirmed,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			Data: payloads.BookingConfirmedEvent{
				BookingID:       booking.ID,
				ClientID:        booking.ClientID,
				PrestataireID:   booking.PrestataireID,
				PaymentIntentID: paymentIntentID,
				ConfirmedAt:     s.now(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindBookingByID(ctx, payment.BookingID)
}

// Confirm is the manual acceptance path for providers with auto_confirm off.
func (s *service) Confirm(ctx context.Context, prestataireID, bookingID uuid.UUID) error {
	booking, err := s.loadOwnedBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.PrestataireID != prestataireID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another prestataire")
	}

	payment, err := s.repo.FindLatestPaymentForBooking(ctx, bookingID)
	switch {
	case err == gorm.ErrRecordNotFound:
		// Only a cash booking whose fee quoted to zero has no payment to wait
		// for.
		if booking.PaymentMethod == enums.PaymentMethodOnline {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "booking has no settled payment")
		}
	case err != nil:
		return err
	case payment.Status != enums.PaymentStatusSucceeded:
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment has not settled yet")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateBookingStatus(ctx, bookingID,
			enums.BookingStatusPendingPayment, enums.BookingStatusConfirmed,
			map[string]interface{}{"confirmed_at": s.now()})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("booking %s cannot be confirmed from %s", bookingID, booking.Status))
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingConfirmed,
			AggregateType: enums.AggregateBooking,
			AggregateID:   bookingID,
			Actor:         &outbox.ActorRef{UserID: prestataireID, Role: enums.ActorRolePrestataire.String()},
			Version:       1,
			Data: payloads.BookingConfirmedEvent{
				BookingID:     bookingID,
				ClientID:      booking.ClientID,
				PrestataireID: booking.PrestataireID,
				ConfirmedAt:   s.now(),
			},
		})
	})
}

func (s *service) Start(ctx context.Context, prestataireID, bookingID uuid.UUID) error {
	booking, err := s.loadOwnedBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.PrestataireID != prestataireID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another prestataire")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateBookingStatus(ctx, bookingID,
			enums.BookingStatusConfirmed, enums.BookingStatusInProgress,
			map[string]interface{}{"started_at": s.now()})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("booking %s cannot start from %s", bookingID, booking.Status))
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingStarted,
			AggregateType: enums.AggregateBooking,
			AggregateID:   bookingID,
			Actor:         &outbox.ActorRef{UserID: prestataireID, Role: enums.ActorRolePrestataire.String()},
			Version:       1,
			Data: payloads.BookingStartedEvent{
				BookingID:     bookingID,
				ClientID:      booking.ClientID,
				PrestataireID: booking.PrestataireID,
				StartedAt:     s.now(),
			},
		})
	})
}

func (s *service) Complete(ctx context.Context, actorID, bookingID uuid.UUID) error {
	booking, err := s.loadOwnedBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if actorID != booking.ClientID && actorID != booking.PrestataireID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the booking parties may complete it")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateBookingStatus(ctx, bookingID,
			enums.BookingStatusInProgress, enums.BookingStatusCompleted,
			map[string]interface{}{"completed_at": s.now()})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("booking %s cannot complete from %s", bookingID, booking.Status))
		}
		// The slot stays booked for good; a finished mission never reopens it.
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCompleted,
			AggregateType: enums.AggregateBooking,
			AggregateID:   bookingID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Version:       1,
			Data: payloads.BookingCompletedEvent{
				BookingID:        bookingID,
				ClientID:         booking.ClientID,
				PrestataireID:    booking.PrestataireID,
				PlatformFeeCents: booking.PlatformFeeCents,
				CompletedAt:      s.now(),
			},
		})
	})
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.InstantBooking, error) {
	booking, err := s.loadOwnedBooking(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}

	var target enums.BookingStatus
	var role enums.ActorRole
	switch input.ActorID {
	case booking.ClientID:
		target, role = enums.BookingStatusCancelledByClient, enums.ActorRoleClient
	case booking.PrestataireID:
		target, role = enums.BookingStatusCancelledByPrestataire, enums.ActorRolePrestataire
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the booking parties may cancel it")
	}

	if !canTransition(booking.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("booking %s cannot be cancelled from %s", booking.ID, booking.Status))
	}

	now := s.now()
	free := s.withinFreeWindow(ctx, booking, now)
	// Only a late client cancellation forfeits part of the payment; the
	// prestataire walking away always refunds the client in full.
	feeApplies := role == enums.ActorRoleClient && !free

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateBookingStatus(ctx, booking.ID, booking.Status, target,
			map[string]interface{}{
				"cancelled_at":        now,
				"cancellation_reason": input.Reason,
			})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("booking %s changed state during cancellation", booking.ID))
		}
		if free {
			// With enough lead time the slot goes back on the market. A late
			// cancellation keeps it booked-but-void so the day cannot be
			// double-sold.
			if _, err := s.slots.WithTx(tx).MarkAvailable(ctx, booking.SlotID, booking.ID); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: role.String()},
			Version:       1,
			Data: payloads.BookingCancelledEvent{
				BookingID:     booking.ID,
				ClientID:      booking.ClientID,
				PrestataireID: booking.PrestataireID,
				CancelledBy:   role,
				Status:        target,
				CancelledAt:   now,
				Reason:        input.Reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.refundAfterTermination(ctx, booking, feeApplies); err != nil {
		return nil, err
	}
	return s.repo.FindBookingByID(ctx, booking.ID)
}

func (s *service) MarkNoShow(ctx context.Context, actorID, bookingID uuid.UUID) error {
	booking, err := s.loadOwnedBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	// uuid.Nil is the system sweep; otherwise only the prestataire may report.
	if actorID != uuid.Nil && actorID != booking.PrestataireID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the prestataire may report a no-show")
	}
	if booking.StartedAt != nil {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "booking already started")
	}
	if !canTransition(booking.Status, enums.BookingStatusNoShow) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("booking %s cannot be marked no-show from %s", bookingID, booking.Status))
	}

	now := s.now()
	start, err := bookingStart(booking)
	if err != nil {
		return err
	}
	if now.Before(start.Add(s.cfg.NoShowGrace)) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "scheduled window has not elapsed yet")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateBookingStatus(ctx, bookingID, booking.Status, enums.BookingStatusNoShow,
			map[string]interface{}{"cancelled_at": now})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("booking %s changed state during no-show marking", bookingID))
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingNoShow,
			AggregateType: enums.AggregateBooking,
			AggregateID:   bookingID,
			Version:       1,
			Data: payloads.BookingNoShowEvent{
				BookingID:     bookingID,
				ClientID:      booking.ClientID,
				PrestataireID: booking.PrestataireID,
				MarkedAt:      now,
			},
		})
	})
	if err != nil {
		return err
	}

	// A no-show settles like a late client cancellation: the fee is kept, the
	// rest refunds.
	return s.refundAfterTermination(ctx, booking, true)
}

// SweepNoShows marks confirmed bookings whose window elapsed without a start.
func (s *service) SweepNoShows(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	now := s.now()
	candidates, err := s.repo.ListOverdueConfirmed(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range candidates {
		booking := candidates[i]
		start, err := bookingStart(&booking)
		if err != nil {
			continue
		}
		if now.Before(start.Add(s.cfg.NoShowGrace)) {
			continue
		}
		if err := s.MarkNoShow(ctx, uuid.Nil, booking.ID); err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithBookingID(ctx, booking.ID.String()), "no-show sweep failed for booking", err)
			}
			continue
		}
		marked++
	}
	return marked, nil
}

// ReconcilePayments resolves bookings stuck in pending_payment past the
// pending TTL. Intents whose creation timed out are re-polled at the gateway;
// bookings with no intent at all, or whose intent was abandoned, are voided so
// the slot frees up.
func (s *service) ReconcilePayments(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := s.now().Add(-s.cfg.PaymentPendingTTL)
	stale, err := s.repo.ListStalePendingPayment(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range stale {
		booking := stale[i]
		payment, err := s.repo.FindLatestPaymentForBooking(ctx, booking.ID)
		if err == gorm.ErrRecordNotFound {
			// The intent never opened, so there is nothing at the gateway to
			// poll for.
			if err := s.voidPendingBooking(ctx, &booking, "payment window elapsed"); err != nil {
				s.logReconcileFailure(ctx, booking.ID, err)
				continue
			}
			resolved++
			continue
		}
		if err != nil {
			return resolved, err
		}
		if payment.Status != enums.PaymentStatusPending {
			continue
		}

		intent, err := s.gateway.GetPaymentIntent(ctx, payment.PaymentIntentID)
		if err != nil {
			s.logReconcileFailure(ctx, booking.ID, err)
			continue
		}
		switch intent.Status {
		case "succeeded":
			// The webhook delivery was lost; settle from the poll.
			if _, err := s.ConfirmPayment(ctx, payment.PaymentIntentID); err != nil {
				s.logReconcileFailure(ctx, booking.ID, err)
				continue
			}
			resolved++
		case "processing", "requires_capture":
			// The gateway is still settling; the next run picks it up.
		default:
			if err := s.FailPayment(ctx, payment.PaymentIntentID, "payment not completed in time"); err != nil {
				s.logReconcileFailure(ctx, booking.ID, err)
				continue
			}
			resolved++
		}
	}
	return resolved, nil
}

func (s *service) logReconcileFailure(ctx context.Context, bookingID uuid.UUID, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithBookingID(ctx, bookingID.String()), "payment reconciliation failed for booking", err)
}

func (s *service) FailPayment(ctx context.Context, paymentIntentID, reason string) error {
	payment, err := s.repo.FindPaymentByIntent(ctx, paymentIntentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no payment for intent %s", paymentIntentID))
		}
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdatePaymentStatus(ctx, payment.ID,
			enums.PaymentStatusPending, enums.PaymentStatusFailed,
			map[string]interface{}{"failure_reason": reason})
		if err != nil {
			return err
		}
		if !moved {
			// Replay of a failure we already recorded.
			return nil
		}

		booking, err := repo.FindBookingByID(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		voided, err := repo.UpdateBookingStatus(ctx, booking.ID,
			enums.BookingStatusPendingPayment, enums.BookingStatusCancelledByClient,
			map[string]interface{}{
				"cancelled_at":        s.now(),
				"cancellation_reason": "payment failed",
			})
		if err != nil {
			return err
		}
		if !voided {
			return nil
		}
		if _, err := s.slots.WithTx(tx).MarkAvailable(ctx, booking.SlotID, booking.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			Data: payloads.BookingCancelledEvent{
				BookingID:     booking.ID,
				ClientID:      booking.ClientID,
				PrestataireID: booking.PrestataireID,
				CancelledBy:   enums.ActorRoleClient,
				Status:        enums.BookingStatusCancelledByClient,
				CancelledAt:   s.now(),
				Reason:        "payment failed",
			},
		})
	})
}

// RecordRefund mirrors a gateway refund callback into the payment row. The
// monotonic refund amount guard makes replays harmless.
func (s *service) RecordRefund(ctx context.Context, paymentIntentID string, refundAmountCents int64) error {
	if refundAmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount,
			fmt.Sprintf("refund amount must be positive, got %d", refundAmountCents))
	}
	payment, err := s.repo.FindPaymentByIntent(ctx, paymentIntentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no payment for intent %s", paymentIntentID))
		}
		return err
	}

	status := enums.RefundStatusPartial
	if refundAmountCents >= payment.AmountCents {
		refundAmountCents = payment.AmountCents
		status = enums.RefundStatusFull
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdatePaymentRefund(ctx, payment.ID, status, refundAmountCents, s.now())
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentRefundedEvent{
				BookingID:         payment.BookingID,
				PaymentIntentID:   paymentIntentID,
				RefundAmountCents: refundAmountCents,
				RefundStatus:      status,
				RefundedAt:        s.now(),
			},
		})
	})
}

func (s *service) Get(ctx context.Context, bookingID uuid.UUID) (*models.InstantBooking, error) {
	return s.loadOwnedBooking(ctx, bookingID)
}

func (s *service) ListForClient(ctx context.Context, clientID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error) {
	return s.repo.ListBookingsForClient(ctx, clientID, params)
}

func (s *service) ListForPrestataire(ctx context.Context, prestataireID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error) {
	return s.repo.ListBookingsForPrestataire(ctx, prestataireID, params)
}

// refundAfterTermination issues the gateway refund owed after a cancellation
// or no-show. It runs outside the status transaction: the state change is
// already durable, and a gateway hiccup must not undo it. The refund callback
// records the final amounts idempotently.
func (s *service) refundAfterTermination(ctx context.Context, booking *models.InstantBooking, feeApplies bool) error {
	payment, err := s.repo.FindLatestPaymentForBooking(ctx, booking.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	if payment.Status != enums.PaymentStatusSucceeded {
		return nil
	}

	refund := payment.AmountCents
	if feeApplies {
		fee := booking.PriceCents * int64(s.cfg.CancellationFeePercentage) / 100
		refund = payment.AmountCents - fee
	}
	if refund <= 0 {
		return nil
	}

	if _, err := s.gateway.Refund(ctx, payment.PaymentIntentID, refund); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithBookingID(ctx, booking.ID.String()), "refund request failed", err)
		}
		return err
	}
	return s.RecordRefund(ctx, payment.PaymentIntentID, refund)
}

func (s *service) loadOwnedBooking(ctx context.Context, bookingID uuid.UUID) (*models.InstantBooking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.repo.FindBookingByID(ctx, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("booking %s not found", bookingID))
		}
		return nil, err
	}
	return booking, nil
}

// withinFreeWindow reports whether a cancellation now happens early enough to
// carry no fee. The provider's own window wins over the platform default.
func (s *service) withinFreeWindow(ctx context.Context, booking *models.InstantBooking, now time.Time) bool {
	hours := s.cfg.FreeCancellationHours
	settings, err := s.repo.FindProviderSettings(ctx, booking.PrestataireID)
	if err == nil && settings.FreeCancellationHours > 0 {
		hours = settings.FreeCancellationHours
	}

	start, err := bookingStart(booking)
	if err != nil {
		return false
	}
	return now.Add(time.Duration(hours) * time.Hour).Before(start)
}

func (s *service) autoConfirm(ctx context.Context, prestataireID uuid.UUID) bool {
	settings, err := s.repo.FindProviderSettings(ctx, prestataireID)
	if err != nil {
		// No settings row means the platform default applies.
		return true
	}
	return settings.AutoConfirm
}

// bookingStart combines the booking's date and wall-clock start time.
func bookingStart(booking *models.InstantBooking) (time.Time, error) {
	parsed, err := time.Parse(timeLayout, booking.BookingTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing booking time %q: %w", booking.BookingTime, err)
	}
	date := booking.BookingDate
	return time.Date(date.Year(), date.Month(), date.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}
