package enums

import "fmt"

// CreditType distinguishes the two credit wallets a user can hold.
type CreditType string

const (
	CreditTypeClient      CreditType = "client"
	CreditTypePrestataire CreditType = "prestataire"
)

var validCreditTypes = []CreditType{
	CreditTypeClient,
	CreditTypePrestataire,
}

// String implements fmt.Stringer.
func (c CreditType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CreditType.
func (c CreditType) IsValid() bool {
	for _, candidate := range validCreditTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCreditType converts raw input into a CreditType.
func ParseCreditType(value string) (CreditType, error) {
	for _, candidate := range validCreditTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit type %q", value)
}
