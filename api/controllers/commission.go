package controllers

import (
	"net/http"
	"strconv"

	"github.com/prestalink/prestalink-backend/api/responses"
	"github.com/prestalink/prestalink-backend/internal/commission"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/logger"
)

// CommissionQuote prices a mission for the authenticated prestataire without
// opening a booking.
func CommissionQuote(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prestataireID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		method, err := enums.ParsePaymentMethod(query.Get("payment_method"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}
		grossCents, err := strconv.ParseInt(query.Get("amount_cents"), 10, 64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount_cents"))
			return
		}

		quote, err := svc.QuoteBooking(r.Context(), prestataireID, method, grossCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
