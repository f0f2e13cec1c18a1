package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/api/middleware"
	"github.com/dmarcano/couponhive-backend/api/responses"
	"github.com/dmarcano/couponhive-backend/internal/entitlements"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
)

type EntitlementService interface {
	Summary(ctx context.Context, accountID uuid.UUID) (*entitlements.Summary, error)
}

// MyEntitlement serves the caller's entitlement summary.
func MyEntitlement(svc EntitlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlement service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.Summary(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func accountIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.AccountIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing account identity")
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account identity")
	}
	return accountID, nil
}
