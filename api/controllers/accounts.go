package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/api/responses"
	"github.com/dmarcano/couponhive-backend/api/validators"
	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
)

type AccountsService interface {
	Register(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
}

type registerAccountRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
}

// RegisterAccount provisions the engine-side account for a marketplace user.
// Called service-to-service by the identity system at signup.
func RegisterAccount(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var body registerAccountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		accountID, err := uuid.Parse(body.AccountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		account, err := svc.Register(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}
