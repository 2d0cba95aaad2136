package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
)

// Quote is the fee breakdown for one mission amount. All values are cents.
type Quote struct {
	PaymentMethod         enums.PaymentMethod `json:"paymentMethod"`
	GrossCents            int64               `json:"grossCents"`
	PlatformFeeCents      int64               `json:"platformFeeCents"`
	NetToPrestataireCents int64               `json:"netToPrestataireCents"`
	// ClientSurchargeCents covers the card processing cost and is charged to
	// the client on top of the gross price. Always zero for cash missions.
	ClientSurchargeCents int64 `json:"clientSurchargeCents"`
	TotalClientCents     int64 `json:"totalClientCents"`
	// FreeMission is true when the prestataire is still inside the
	// commission-free launch window.
	FreeMission bool `json:"freeMission"`
}

// Calculator computes commission quotes. It holds parsed rates and has no
// dependencies, so a single instance can be shared across requests.
type Calculator struct {
	freeOnlineMissions int
	onlineRate         decimal.Decimal
	cashRate           decimal.Decimal
	gatewayRate        decimal.Decimal
	cashFloorCents     int64
	gatewayFixedCents  int64
}

// NewCalculator parses the configured rates once.
func NewCalculator(cfg config.CommissionConfig) (*Calculator, error) {
	onlineRate, err := decimal.NewFromString(cfg.OnlineRate)
	if err != nil {
		return nil, fmt.Errorf("parsing online rate %q: %w", cfg.OnlineRate, err)
	}
	cashRate, err := decimal.NewFromString(cfg.CashRate)
	if err != nil {
		return nil, fmt.Errorf("parsing cash rate %q: %w", cfg.CashRate, err)
	}
	gatewayRate, err := decimal.NewFromString(cfg.GatewayRate)
	if err != nil {
		return nil, fmt.Errorf("parsing gateway rate %q: %w", cfg.GatewayRate, err)
	}
	if cfg.FreeOnlineMissions < 0 {
		return nil, fmt.Errorf("free online missions must not be negative, got %d", cfg.FreeOnlineMissions)
	}
	return &Calculator{
		freeOnlineMissions: cfg.FreeOnlineMissions,
		onlineRate:         onlineRate,
		cashRate:           cashRate,
		gatewayRate:        gatewayRate,
		cashFloorCents:     cfg.CashFloorCents,
		gatewayFixedCents:  cfg.GatewayFixedCents,
	}, nil
}

// QuoteFor dispatches on the payment method. priorCompletedMissions only
// matters for online missions.
func (c *Calculator) QuoteFor(method enums.PaymentMethod, grossCents int64, priorCompletedMissions int) (*Quote, error) {
	switch method {
	case enums.PaymentMethodOnline:
		return c.QuoteOnline(grossCents, priorCompletedMissions)
	case enums.PaymentMethodCash:
		return c.QuoteCash(grossCents)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
}

// QuoteOnline prices an online mission. The first freeOnlineMissions completed
// missions carry no platform fee; after that the online rate applies. The
// gateway surcharge is always charged to the client, free window or not.
func (c *Calculator) QuoteOnline(grossCents int64, priorCompletedMissions int) (*Quote, error) {
	if err := validateGross(grossCents); err != nil {
		return nil, err
	}
	quote := &Quote{
		PaymentMethod: enums.PaymentMethodOnline,
		GrossCents:    grossCents,
		FreeMission:   priorCompletedMissions < c.freeOnlineMissions,
	}
	if grossCents == 0 {
		return quote, nil
	}

	if !quote.FreeMission {
		quote.PlatformFeeCents = roundedShare(grossCents, c.onlineRate)
	}
	quote.NetToPrestataireCents = grossCents - quote.PlatformFeeCents
	quote.ClientSurchargeCents = roundedShare(grossCents, c.gatewayRate) + c.gatewayFixedCents
	quote.TotalClientCents = grossCents + quote.ClientSurchargeCents
	return quote, nil
}

// QuoteCash prices a cash mission: a flat rate with a floor, charged to the
// client's card when the booking is created. The mission price itself changes
// hands in cash on site, so the client's card total is the fee alone.
func (c *Calculator) QuoteCash(grossCents int64) (*Quote, error) {
	if err := validateGross(grossCents); err != nil {
		return nil, err
	}
	quote := &Quote{
		PaymentMethod: enums.PaymentMethodCash,
		GrossCents:    grossCents,
	}
	if grossCents == 0 {
		return quote, nil
	}

	fee := roundedShare(grossCents, c.cashRate)
	if fee < c.cashFloorCents {
		fee = c.cashFloorCents
	}
	// The floor never turns the mission into a loss.
	if fee > grossCents {
		fee = grossCents
	}
	quote.PlatformFeeCents = fee
	quote.NetToPrestataireCents = grossCents - fee
	quote.TotalClientCents = grossCents
	return quote, nil
}

func validateGross(grossCents int64) error {
	if grossCents < 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount,
			fmt.Sprintf("mission amount must not be negative, got %d", grossCents))
	}
	return nil
}

// roundedShare multiplies cents by a rate and rounds half away from zero to a
// whole cent.
func roundedShare(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).Round(0).IntPart()
}
