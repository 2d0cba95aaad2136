package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/api/responses"
	"github.com/prestalink/prestalink-backend/api/validators"
	"github.com/prestalink/prestalink-backend/internal/availability"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/logger"
)

const calendarDateLayout = "2006-01-02"

type slotWindowBody struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type createSlotsBody struct {
	Date    string           `json:"date" validate:"required"`
	Windows []slotWindowBody `json:"windows" validate:"required,min=1,max=48,dive"`
}

// CreateSlots opens calendar slots for the authenticated prestataire.
func CreateSlots(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prestataireID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createSlotsBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := time.Parse(calendarDateLayout, body.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date"))
			return
		}

		windows := make([]availability.SlotWindow, 0, len(body.Windows))
		for _, win := range body.Windows {
			windows = append(windows, availability.SlotWindow{
				StartTime: win.StartTime,
				EndTime:   win.EndTime,
			})
		}

		slots, err := svc.CreateSlots(r.Context(), prestataireID, date, windows)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"slots": slots})
	}
}

// ListCalendar returns the slots of one prestataire over a date range. Clients
// pass prestataire_id to browse someone else's calendar; prestataires default
// to their own.
func ListCalendar(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prestataireID := actorID
		if raw := r.URL.Query().Get("prestataire_id"); raw != "" {
			prestataireID, err = uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid prestataire_id"))
				return
			}
		}

		from, to, err := parseDateRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slots, err := svc.ListCalendar(r.Context(), prestataireID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"slots": slots})
	}
}

// BlockSlot takes a free slot off the market.
func BlockSlot(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return slotAction(logg, func(r *http.Request, prestataireID, slotID uuid.UUID) error {
		return svc.Block(r.Context(), prestataireID, slotID)
	})
}

// UnblockSlot returns a blocked slot to the market.
func UnblockSlot(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return slotAction(logg, func(r *http.Request, prestataireID, slotID uuid.UUID) error {
		return svc.Unblock(r.Context(), prestataireID, slotID)
	})
}

// DeleteSlot removes a slot that was never reserved.
func DeleteSlot(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return slotAction(logg, func(r *http.Request, prestataireID, slotID uuid.UUID) error {
		return svc.DeleteSlot(r.Context(), prestataireID, slotID)
	})
}

func slotAction(logg *logger.Logger, action func(r *http.Request, prestataireID, slotID uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prestataireID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slotID, err := pathUUID(r, "slotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := action(r, prestataireID, slotID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	query := r.URL.Query()
	now := time.Now().UTC()

	from := now.Truncate(24 * time.Hour)
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.Parse(calendarDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from date")
		}
		from = parsed
	}

	to := from.AddDate(0, 0, 14)
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.Parse(calendarDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to date")
		}
		to = parsed
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "to date precedes from date")
	}
	return from, to, nil
}
