package security_test

import (
	"testing"

	"github.com/dmarcano/couponhive-backend/pkg/security"
)

func TestSignAndVerify(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1"}`)

	sig := security.SignPayload(payload, "whsec_test")
	if sig == "" {
		t.Fatal("SignPayload returned empty string")
	}

	if !security.VerifySignature(payload, "whsec_test", sig) {
		t.Fatal("signature did not verify against its own payload")
	}
	if security.VerifySignature([]byte("tampered"), "whsec_test", sig) {
		t.Fatal("signature verified against a tampered payload")
	}
	if security.VerifySignature(payload, "whsec_other", sig) {
		t.Fatal("signature verified under the wrong secret")
	}
}

func TestVerifySignatureEmptyInputs(t *testing.T) {
	payload := []byte("body")
	sig := security.SignPayload(payload, "whsec_test")

	if security.VerifySignature(payload, "", sig) {
		t.Fatal("empty secret must not verify")
	}
	if security.VerifySignature(payload, "whsec_test", "") {
		t.Fatal("empty signature must not verify")
	}
}
