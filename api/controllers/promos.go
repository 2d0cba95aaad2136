package controllers

import (
	"net/http"

	"github.com/prestalink/prestalink-backend/api/responses"
	"github.com/prestalink/prestalink-backend/api/validators"
	"github.com/prestalink/prestalink-backend/internal/promos"
	"github.com/prestalink/prestalink-backend/pkg/logger"
)

type redeemPromoBody struct {
	Code string `json:"code" validate:"required,min=3,max=32"`
}

// RedeemPromo applies a promo code to the caller's credit account.
func RedeemPromo(svc promos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body redeemPromoBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Redeem(r.Context(), userID, validators.SanitizeString(body.Code, 32))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"transaction_id": result.TransactionID,
			"new_balance":    result.NewBalance,
		})
	}
}
