package controllers

import (
	"net/http"

	"github.com/prestalink/prestalink-backend/api/responses"
	"github.com/prestalink/prestalink-backend/api/validators"
	"github.com/prestalink/prestalink-backend/internal/credits"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/logger"

	"github.com/google/uuid"
)

func creditKeyFromRequest(r *http.Request) (credits.AccountKey, error) {
	userID, err := actorFromContext(r)
	if err != nil {
		return credits.AccountKey{}, err
	}
	creditType, err := enums.ParseCreditType(r.URL.Query().Get("type"))
	if err != nil {
		return credits.AccountKey{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid credit type")
	}
	return credits.AccountKey{UserID: userID, CreditType: creditType}, nil
}

// CreditBalance returns the caller's balance for one credit type.
func CreditBalance(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := creditKeyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Balance(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CreditHistory pages through the caller's ledger entries, newest first.
func CreditHistory(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := creditKeyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, cursor, err := svc.History(r.Context(), key, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows, "cursor": cursor})
	}
}

// ListCreditPackages returns the purchasable packages, cheapest first.
func ListCreditPackages(svc credits.PurchaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creditType enums.CreditType
		if raw := r.URL.Query().Get("type"); raw != "" {
			parsed, err := enums.ParseCreditType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid credit type"))
				return
			}
			creditType = parsed
		}
		packages, err := svc.ListPackages(r.Context(), creditType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"packages": packages})
	}
}

type purchaseCreditsBody struct {
	PackageID  string `json:"package_id" validate:"required,uuid"`
	CreditType string `json:"credit_type" validate:"required"`
}

// PurchaseCredits opens a payment intent for a credit package. The ledger is
// only credited once the gateway confirms the payment over the webhook.
func PurchaseCredits(svc credits.PurchaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body purchaseCreditsBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		creditType, err := enums.ParseCreditType(body.CreditType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid credit type"))
			return
		}

		quote, err := svc.BeginPurchase(r.Context(), credits.AccountKey{
			UserID:     userID,
			CreditType: creditType,
		}, uuid.MustParse(body.PackageID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"payment_intent_id": quote.PaymentIntentID,
			"client_secret":     quote.ClientSecret,
			"amount_cents":      quote.AmountCents,
		})
	}
}
