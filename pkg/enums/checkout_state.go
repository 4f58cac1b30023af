package enums

import "fmt"

// CheckoutState is the lifecycle of a single checkout submission.
type CheckoutState string

const (
	CheckoutStateIdle       CheckoutState = "idle"
	CheckoutStateSubmitting CheckoutState = "submitting"
	CheckoutStateCompleted  CheckoutState = "completed"
	CheckoutStateFailed     CheckoutState = "failed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateIdle,
	CheckoutStateSubmitting,
	CheckoutStateCompleted,
	CheckoutStateFailed,
}

func (s CheckoutState) String() string {
	return string(s)
}

func (s CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
