package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	"github.com/prestalink/prestalink-backend/pkg/logger"
	"github.com/prestalink/prestalink-backend/pkg/outbox"
	"github.com/prestalink/prestalink-backend/pkg/outbox/idempotency"
	"github.com/prestalink/prestalink-backend/pkg/outbox/payloads"
)

const settlementNotificationConsumer = "settlement-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer materializes user notifications from the settlement event stream.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a settlement notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, settlementNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notifications, err := translate(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, settlementNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if len(notifications) == 0 {
		c.logg.Info(logCtx, "event produces no notification")
		return processResult{ack: true}
	}

	for _, notification := range notifications {
		if err := c.repo.Create(ctx, notification); err != nil {
			c.logg.Error(logCtx, "failed to store notification", err)
			_ = c.idempotency.Delete(ctx, settlementNotificationConsumer, eventID)
			return processResult{nack: true}
		}
	}
	c.logg.Info(logCtx, "notifications stored")
	return processResult{ack: true}
}

// translate maps one settlement event onto the notifications it produces. An
// empty slice means the event type is tracked elsewhere, not an error.
func translate(eventType enums.OutboxEventType, data json.RawMessage) ([]*models.Notification, error) {
	switch eventType {
	case enums.EventBookingConfirmed:
		var payload payloads.BookingConfirmedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{
			notification(payload.ClientID, enums.NotificationBookingConfirmed,
				"Booking confirmed",
				"Your booking is confirmed. Your prestataire is expecting you.", data),
			notification(payload.PrestataireID, enums.NotificationBookingConfirmed,
				"New confirmed booking",
				"A client booked one of your slots and payment went through.", data),
		}, nil

	case enums.EventBookingStarted:
		var payload payloads.BookingStartedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{
			notification(payload.ClientID, enums.NotificationBookingStarted,
				"Mission started",
				"Your prestataire marked the mission as started.", data),
		}, nil

	case enums.EventBookingCompleted:
		var payload payloads.BookingCompletedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{
			notification(payload.ClientID, enums.NotificationBookingCompleted,
				"Mission completed",
				"Your mission is done. Thanks for booking with us.", data),
			notification(payload.PrestataireID, enums.NotificationBookingCompleted,
				"Mission completed",
				fmt.Sprintf("Mission settled with a platform fee of %d cents.", payload.PlatformFeeCents), data),
		}, nil

	case enums.EventBookingCancelled:
		var payload payloads.BookingCancelledEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		recipient := payload.PrestataireID
		body := "The client cancelled this booking."
		if payload.CancelledBy == enums.ActorRolePrestataire {
			recipient = payload.ClientID
			body = "Your prestataire cancelled this booking. You have been refunded in full."
		}
		return []*models.Notification{
			notification(recipient, enums.NotificationBookingCancelled, "Booking cancelled", body, data),
		}, nil

	case enums.EventBookingNoShow:
		var payload payloads.BookingNoShowEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{
			notification(payload.ClientID, enums.NotificationBookingNoShow,
				"Booking marked as no-show",
				"You did not show up for your booking. The cancellation fee was retained.", data),
		}, nil

	case enums.EventCreditGranted:
		var payload payloads.CreditGrantedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{
			notification(payload.UserID, enums.NotificationCreditGranted,
				"Credits added",
				fmt.Sprintf("%d credit(s) were added to your account.", payload.Amount), data),
		}, nil

	case enums.EventLowBalance:
		var payload payloads.LowBalanceEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{
			notification(payload.UserID, enums.NotificationLowBalance,
				"Credit balance is low",
				fmt.Sprintf("Only %d credit(s) left. Top up to keep answering mission requests.", payload.Balance), data),
		}, nil

	default:
		// booking.created precedes payment and payment.refunded is surfaced
		// through the cancellation notice.
		return nil, nil
	}
}

func notification(userID uuid.UUID, kind enums.NotificationType, title, body string, payload json.RawMessage) *models.Notification {
	return &models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Body:    body,
		Payload: payload,
	}
}
