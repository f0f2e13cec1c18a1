package entitlements

import (
	"time"

	"github.com/google/uuid"
)

// Event is the provider-agnostic view of one billing lifecycle notification.
// Seq is the provider's monotonic ordering hint (event creation time works);
// stale events are detected by comparing it against the record's last applied
// sequence.
type Event struct {
	ID                string
	Type              string
	Seq               int64
	AccountID         uuid.UUID
	CustomerRef       string
	SubscriptionRef   string
	Status            string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
}

// Provider event types the synchronizer understands. Anything else is
// accepted and ignored.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionDeleted  = "subscription.deleted"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)
