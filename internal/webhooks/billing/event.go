package billingwebhook

import "time"

// ProviderEvent is the wire shape the billing provider posts to the webhook
// endpoint. CreatedAt doubles as the ordering sequence.
type ProviderEvent struct {
	EventID   string            `json:"event_id"`
	Type      string            `json:"type"`
	CreatedAt int64             `json:"created_at"`
	Data      ProviderEventData `json:"data"`
}

type ProviderEventData struct {
	Subscription *ProviderSubscription `json:"subscription"`
}

// ProviderSubscription carries the subscription snapshot embedded in
// lifecycle and invoice events. Metadata round-trips values the marketplace
// set at checkout, including the engine account id.
type ProviderSubscription struct {
	ID                 string            `json:"id"`
	CustomerID         string            `json:"customer_id"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Metadata           map[string]string `json:"metadata"`
}

func unixTime(seconds int64) *time.Time {
	if seconds == 0 {
		return nil
	}
	t := time.Unix(seconds, 0).UTC()
	return &t
}
