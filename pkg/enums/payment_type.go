package enums

import (
	"fmt"
	"strings"
)

// PaymentType records how a sale was settled at the counter.
type PaymentType string

const (
	PaymentTypeCash         PaymentType = "cash"
	PaymentTypeCard         PaymentType = "card"
	PaymentTypeBankTransfer PaymentType = "bank_transfer"
	PaymentTypeMobileWallet PaymentType = "mobile_wallet"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeCash,
	PaymentTypeCard,
	PaymentTypeBankTransfer,
	PaymentTypeMobileWallet,
}

func (p PaymentType) String() string {
	return string(p)
}

// Label is the human form printed on receipts.
func (p PaymentType) Label() string {
	switch p {
	case PaymentTypeBankTransfer:
		return "Bank transfer"
	case PaymentTypeMobileWallet:
		return "Mobile wallet"
	case "":
		return ""
	default:
		s := string(p)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType accepts case-insensitive input.
func ParsePaymentType(value string) (PaymentType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
