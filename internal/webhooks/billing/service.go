package billingwebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/internal/entitlements"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
	"github.com/dmarcano/couponhive-backend/pkg/metrics"
)

const accountMetadataKey = "account_id"

// Service translates provider webhook payloads into entitlement events.
type Service interface {
	HandleEvent(ctx context.Context, event *ProviderEvent) error
}

type synchronizer interface {
	Apply(ctx context.Context, evt *entitlements.Event) (*entitlements.ApplyResult, error)
}

type service struct {
	sync    synchronizer
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
}

// NewService wires the billing webhook service.
func NewService(sync synchronizer, logg *logger.Logger, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if sync == nil {
		return nil, fmt.Errorf("entitlements service required")
	}
	return &service{
		sync:    sync,
		logg:    logg,
		metrics: engineMetrics,
	}, nil
}

// HandleEvent applies one provider event. Malformed or unresolvable events
// are logged and dropped so the provider stops retrying them; only
// infrastructure failures propagate as errors.
func (s *service) HandleEvent(ctx context.Context, event *ProviderEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event payload is required")
	}
	if strings.TrimSpace(event.EventID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if strings.TrimSpace(event.Type) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event type is required")
	}

	if s.logg != nil {
		ctx = s.logg.WithEventID(ctx, event.EventID)
	}

	evt, ok := s.translate(ctx, event)
	if !ok {
		s.metrics.IncWebhook("dropped")
		return nil
	}

	result, err := s.sync.Apply(ctx, evt)
	if err != nil {
		s.metrics.IncWebhook("error")
		return err
	}

	s.metrics.IncWebhook(result.Result)
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("billing event %s: %s (state %s)", event.EventID, result.Result, result.State))
	}
	return nil
}

// translate builds the provider-agnostic event. Events of a mapped type that
// arrive without a subscription snapshot cannot be applied safely; they are
// dropped here.
func (s *service) translate(ctx context.Context, event *ProviderEvent) (*entitlements.Event, bool) {
	evt := &entitlements.Event{
		ID:   event.EventID,
		Type: event.Type,
		Seq:  event.CreatedAt,
	}

	sub := event.Data.Subscription
	if sub == nil {
		if _, known := entitlements.TargetState(evt); known {
			s.warn(ctx, fmt.Sprintf("billing event %s: missing subscription payload, dropping", event.EventID))
			return nil, false
		}
		// Unknown types flow through so the synchronizer records them as ignored.
		return evt, true
	}

	evt.SubscriptionRef = sub.ID
	evt.CustomerRef = sub.CustomerID
	evt.Status = sub.Status
	evt.PeriodStart = unixTime(sub.CurrentPeriodStart)
	evt.PeriodEnd = unixTime(sub.CurrentPeriodEnd)
	evt.CancelAtPeriodEnd = sub.CancelAtPeriodEnd

	if raw, ok := sub.Metadata[accountMetadataKey]; ok {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			s.warn(ctx, fmt.Sprintf("billing event %s: malformed account metadata %q", event.EventID, raw))
		} else {
			evt.AccountID = accountID
		}
	}
	return evt, true
}

func (s *service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}
