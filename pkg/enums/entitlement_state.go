package enums

import "fmt"

// EntitlementState mirrors the billing provider's subscription lifecycle for an account.
type EntitlementState string

const (
	EntitlementFree      EntitlementState = "free"
	EntitlementTrialing  EntitlementState = "trialing"
	EntitlementActive    EntitlementState = "active"
	EntitlementPastDue   EntitlementState = "past_due"
	EntitlementCanceling EntitlementState = "canceling"
	EntitlementCanceled  EntitlementState = "canceled"
)

var validEntitlementStates = []EntitlementState{
	EntitlementFree,
	EntitlementTrialing,
	EntitlementActive,
	EntitlementPastDue,
	EntitlementCanceling,
	EntitlementCanceled,
}

// String implements fmt.Stringer.
func (s EntitlementState) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s EntitlementState) IsValid() bool {
	for _, candidate := range validEntitlementStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// Entitled reports whether the state bypasses the daily claim quota.
func (s EntitlementState) Entitled() bool {
	return s == EntitlementActive || s == EntitlementTrialing
}

// ParseEntitlementState converts raw input into an EntitlementState.
func ParseEntitlementState(value string) (EntitlementState, error) {
	for _, candidate := range validEntitlementStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entitlement state %q", value)
}
