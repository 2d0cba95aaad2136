package credits

import (
	"context"

	stripegateway "github.com/prestalink/prestalink-backend/pkg/stripe"
)

type stripePurchaseGateway struct {
	gateway *stripegateway.Gateway
}

// NewStripePurchaseGateway adapts the Stripe gateway to the purchase flow.
func NewStripePurchaseGateway(gateway *stripegateway.Gateway) purchaseGateway {
	return &stripePurchaseGateway{gateway: gateway}
}

func (g *stripePurchaseGateway) CreateCreditPurchaseIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, string, error) {
	intent, err := g.gateway.CreateCreditPurchaseIntent(ctx, amountCents, currency, metadata)
	if err != nil {
		return "", "", err
	}
	return intent.ID, intent.ClientSecret, nil
}
