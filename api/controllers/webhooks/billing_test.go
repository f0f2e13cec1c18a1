package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	billingwebhook "github.com/dmarcano/couponhive-backend/internal/webhooks/billing"
	"github.com/dmarcano/couponhive-backend/pkg/security"
)

type fakeService struct {
	events []*billingwebhook.ProviderEvent
	err    error
}

func (f *fakeService) HandleEvent(ctx context.Context, event *billingwebhook.ProviderEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type fakeGuard struct {
	seen    map[string]bool
	deleted []string
	err     error
}

func (f *fakeGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[eventID] {
		return true, nil
	}
	f.seen[eventID] = true
	return false, nil
}

func (f *fakeGuard) Delete(ctx context.Context, eventID string) error {
	delete(f.seen, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

type staticSecret string

func (s staticSecret) WebhookSigningSecret() string { return string(s) }

const testSecret = "whsec_test"

func signedRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/billing", bytes.NewReader(payload))
	req.Header.Set("Billing-Signature", security.SignPayload(payload, testSecret))
	return req
}

func eventPayload(t *testing.T, eventID string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"event_id":   eventID,
		"type":       "invoice.paid",
		"created_at": 1700000000,
		"data": map[string]any{
			"subscription": map[string]any{
				"id":          "sub_1",
				"customer_id": "cus_1",
				"status":      "active",
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func TestBillingWebhook(t *testing.T) {
	svc := &fakeService{}
	guard := &fakeGuard{}
	handler := BillingWebhook(svc, staticSecret(testSecret), guard, nil)

	rec := httptest.NewRecorder()
	handler(rec, signedRequest(t, eventPayload(t, "evt_1")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.events) != 1 || svc.events[0].EventID != "evt_1" {
		t.Fatalf("event not delivered: %+v", svc.events)
	}
}

func TestBillingWebhookMissingSignature(t *testing.T) {
	svc := &fakeService{}
	handler := BillingWebhook(svc, staticSecret(testSecret), &fakeGuard{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/billing", bytes.NewReader(eventPayload(t, "evt_1")))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("unsigned event must not be processed")
	}
}

func TestBillingWebhookBadSignature(t *testing.T) {
	svc := &fakeService{}
	handler := BillingWebhook(svc, staticSecret(testSecret), &fakeGuard{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/billing", bytes.NewReader(eventPayload(t, "evt_1")))
	req.Header.Set("Billing-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("forged event must not be processed")
	}
}

func TestBillingWebhookDuplicateShortCircuits(t *testing.T) {
	svc := &fakeService{}
	guard := &fakeGuard{}
	handler := BillingWebhook(svc, staticSecret(testSecret), guard, nil)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler(rec, signedRequest(t, eventPayload(t, "evt_1")))
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rec.Code)
		}
	}

	if len(svc.events) != 1 {
		t.Fatalf("duplicate delivery reached the service: %d", len(svc.events))
	}
}

func TestBillingWebhookReleasesGuardOnFailure(t *testing.T) {
	svc := &fakeService{err: errors.New("db down")}
	guard := &fakeGuard{}
	handler := BillingWebhook(svc, staticSecret(testSecret), guard, nil)

	rec := httptest.NewRecorder()
	handler(rec, signedRequest(t, eventPayload(t, "evt_1")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(guard.deleted) != 1 {
		t.Fatalf("guard not released for retry: %+v", guard.deleted)
	}

	// The provider retry succeeds once the service recovers.
	svc.err = nil
	rec = httptest.NewRecorder()
	handler(rec, signedRequest(t, eventPayload(t, "evt_1")))
	if rec.Code != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d", rec.Code)
	}
	if len(svc.events) != 2 {
		t.Fatalf("retry not processed: %d", len(svc.events))
	}
}

func TestBillingWebhookGuardUnavailable(t *testing.T) {
	svc := &fakeService{}
	guard := &fakeGuard{err: errors.New("redis down")}
	handler := BillingWebhook(svc, staticSecret(testSecret), guard, nil)

	rec := httptest.NewRecorder()
	handler(rec, signedRequest(t, eventPayload(t, "evt_1")))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("event must not be processed without idempotency cover")
	}
}
