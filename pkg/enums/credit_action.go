package enums

import "fmt"

// CreditAction identifies the kind of entry appended to the credit ledger.
type CreditAction string

const (
	CreditActionPurchase CreditAction = "purchase"
	CreditActionUse      CreditAction = "use"
	CreditActionBonus    CreditAction = "bonus"
	CreditActionReferral CreditAction = "referral"
	CreditActionRefund   CreditAction = "refund"
	CreditActionExpire   CreditAction = "expire"
)

var validCreditActions = []CreditAction{
	CreditActionPurchase,
	CreditActionUse,
	CreditActionBonus,
	CreditActionReferral,
	CreditActionRefund,
	CreditActionExpire,
}

// String implements fmt.Stringer.
func (c CreditAction) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CreditAction.
func (c CreditAction) IsValid() bool {
	for _, candidate := range validCreditActions {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsDebit reports whether the action removes credits from an account.
func (c CreditAction) IsDebit() bool {
	return c == CreditActionUse || c == CreditActionExpire
}

// ParseCreditAction converts raw input into a CreditAction.
func ParseCreditAction(value string) (CreditAction, error) {
	for _, candidate := range validCreditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit action %q", value)
}
