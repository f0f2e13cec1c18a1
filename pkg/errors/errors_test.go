package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
)

func TestMetadataFor(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeValidation, http.StatusBadRequest},
		{pkgerrors.CodeUnauthorized, http.StatusUnauthorized},
		{pkgerrors.CodeNotFound, http.StatusNotFound},
		{pkgerrors.CodeConflict, http.StatusConflict},
		{pkgerrors.CodeInsufficientPoints, http.StatusUnprocessableEntity},
		{pkgerrors.CodeQuotaExceeded, http.StatusTooManyRequests},
		{pkgerrors.CodeDependency, http.StatusServiceUnavailable},
		{pkgerrors.Code("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := pkgerrors.MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "ping redis")

	if err.Unwrap() != cause {
		t.Fatal("cause not preserved through Wrap")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatal("code not preserved through Wrap")
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := pkgerrors.New(pkgerrors.CodeInsufficientPoints, "not enough points")
	outer := fmt.Errorf("claim coupon: %w", inner)

	if !pkgerrors.IsCode(outer, pkgerrors.CodeInsufficientPoints) {
		t.Fatal("IsCode must see through fmt.Errorf wrapping")
	}
	if pkgerrors.IsCode(outer, pkgerrors.CodeQuotaExceeded) {
		t.Fatal("IsCode matched the wrong code")
	}
	if pkgerrors.IsCode(fmt.Errorf("plain"), pkgerrors.CodeInternal) {
		t.Fatal("IsCode matched a plain error")
	}
}

func TestWithDetails(t *testing.T) {
	err := pkgerrors.New(pkgerrors.CodeQuotaExceeded, "daily claim limit reached").
		WithDetails(map[string]any{"daily_limit": 3})

	details, ok := err.Details().(map[string]any)
	if !ok || details["daily_limit"] != 3 {
		t.Fatalf("details not carried: %#v", err.Details())
	}
}
