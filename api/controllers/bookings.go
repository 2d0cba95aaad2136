package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/api/middleware"
	"github.com/prestalink/prestalink-backend/api/responses"
	"github.com/prestalink/prestalink-backend/api/validators"
	"github.com/prestalink/prestalink-backend/internal/bookings"
	"github.com/prestalink/prestalink-backend/internal/commission"
	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/logger"
	"github.com/prestalink/prestalink-backend/pkg/pagination"
)

func actorFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return id, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}

func listParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

type createBookingBody struct {
	ServiceID     string  `json:"service_id" validate:"required,uuid"`
	SlotID        string  `json:"slot_id" validate:"required,uuid"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type createBookingResponse struct {
	Booking         *models.InstantBooking `json:"booking"`
	Quote           *commission.Quote      `json:"quote,omitempty"`
	PaymentIntentID string                 `json:"payment_intent_id,omitempty"`
	ClientSecret    string                 `json:"client_secret,omitempty"`
	GatewayTimedOut bool                   `json:"gateway_timed_out,omitempty"`
}

// CreateBooking opens a booking on a free slot for the authenticated client.
func CreateBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createBookingBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		input := bookings.CreateBookingInput{
			ClientID:      clientID,
			ServiceID:     uuid.MustParse(body.ServiceID),
			SlotID:        uuid.MustParse(body.SlotID),
			PaymentMethod: method,
			Notes:         body.Notes,
			Address:       body.Address,
		}
		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createBookingResponse{
			Booking:         result.Booking,
			Quote:           result.Quote,
			PaymentIntentID: result.PaymentIntentID,
			ClientSecret:    result.ClientSecret,
			GatewayTimedOut: result.GatewayTimedOut,
		})
	}
}

// BookingDetail returns one booking to either of its parties.
func BookingDetail(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Get(r.Context(), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if booking.ClientID != actorID && booking.PrestataireID != actorID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found"))
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// ListMyBookings pages through the caller's bookings for their current role.
func ListMyBookings(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var rows []models.InstantBooking
		if middleware.RoleFromContext(r.Context()) == string(enums.ActorRolePrestataire) {
			rows, err = svc.ListForPrestataire(r.Context(), actorID, params)
		} else {
			rows, err = svc.ListForClient(r.Context(), actorID, params)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}

// ConfirmBooking is the manual accept for prestataires without auto-confirm.
func ConfirmBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(logg, func(r *http.Request, actorID, bookingID uuid.UUID) error {
		return svc.Confirm(r.Context(), actorID, bookingID)
	})
}

// StartBooking marks the mission as underway.
func StartBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(logg, func(r *http.Request, actorID, bookingID uuid.UUID) error {
		return svc.Start(r.Context(), actorID, bookingID)
	})
}

// CompleteBooking closes the mission and realizes the platform fee.
func CompleteBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(logg, func(r *http.Request, actorID, bookingID uuid.UUID) error {
		return svc.Complete(r.Context(), actorID, bookingID)
	})
}

// MarkBookingNoShow lets the prestataire flag a client that never arrived.
func MarkBookingNoShow(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(logg, func(r *http.Request, actorID, bookingID uuid.UUID) error {
		return svc.MarkNoShow(r.Context(), actorID, bookingID)
	})
}

type cancelBookingBody struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// CancelBooking cancels for either party, applying the free-window policy.
func CancelBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cancelBookingBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Cancel(r.Context(), bookings.CancelInput{
			BookingID: bookingID,
			ActorID:   actorID,
			Reason:    validators.SanitizeString(body.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

func bookingAction(logg *logger.Logger, action func(r *http.Request, actorID, bookingID uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := action(r, actorID, bookingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
