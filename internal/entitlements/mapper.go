package entitlements

import "github.com/dmarcano/couponhive-backend/pkg/enums"

// eventTypeStates maps event types whose target state is fixed.
var eventTypeStates = map[string]enums.EntitlementState{
	EventCheckoutCompleted:    enums.EntitlementTrialing,
	EventSubscriptionCreated:  enums.EntitlementTrialing,
	EventSubscriptionDeleted:  enums.EntitlementCanceled,
	EventInvoicePaid:          enums.EntitlementActive,
	EventInvoicePaymentFailed: enums.EntitlementPastDue,
}

// statusAliases normalizes the provider's subscription status vocabulary,
// consulted for subscription.updated events.
var statusAliases = map[string]enums.EntitlementState{
	"trial":       enums.EntitlementTrialing,
	"trialing":    enums.EntitlementTrialing,
	"pending":     enums.EntitlementTrialing,
	"active":      enums.EntitlementActive,
	"past_due":    enums.EntitlementPastDue,
	"unpaid":      enums.EntitlementPastDue,
	"canceled":    enums.EntitlementCanceled,
	"cancelled":   enums.EntitlementCanceled,
	"deactivated": enums.EntitlementCanceled,
}

// allowedTransitions is the canonical entitlement state machine. An event
// proposing an edge not listed here is logged and dropped.
var allowedTransitions = map[enums.EntitlementState][]enums.EntitlementState{
	enums.EntitlementFree:      {enums.EntitlementTrialing, enums.EntitlementActive},
	enums.EntitlementTrialing:  {enums.EntitlementActive, enums.EntitlementPastDue, enums.EntitlementCanceling, enums.EntitlementCanceled},
	enums.EntitlementActive:    {enums.EntitlementPastDue, enums.EntitlementCanceling, enums.EntitlementCanceled},
	enums.EntitlementPastDue:   {enums.EntitlementActive, enums.EntitlementCanceling, enums.EntitlementCanceled},
	enums.EntitlementCanceling: {enums.EntitlementActive, enums.EntitlementCanceled},
	enums.EntitlementCanceled:  {enums.EntitlementFree, enums.EntitlementTrialing, enums.EntitlementActive},
}

// TargetState derives the canonical state an event drives toward. The second
// return is false for event types or statuses the engine does not understand.
func TargetState(evt *Event) (enums.EntitlementState, bool) {
	if evt == nil {
		return "", false
	}

	target, known := eventTypeStates[evt.Type]
	if !known {
		if evt.Type != EventSubscriptionUpdated {
			return "", false
		}
		target, known = statusAliases[evt.Status]
		if !known {
			return "", false
		}
	}

	// A pending cancellation keeps the benefits until period end.
	if evt.CancelAtPeriodEnd && target == enums.EntitlementActive {
		target = enums.EntitlementCanceling
	}
	return target, true
}

// TransitionAllowed reports whether the state machine permits from -> to.
func TransitionAllowed(from, to enums.EntitlementState) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
