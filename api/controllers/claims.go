package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/api/responses"
	"github.com/dmarcano/couponhive-backend/api/validators"
	"github.com/dmarcano/couponhive-backend/internal/claims"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
)

type ClaimsService interface {
	Claim(ctx context.Context, accountID uuid.UUID, couponRef string) (*claims.ClaimResult, error)
	Boost(ctx context.Context, accountID uuid.UUID, couponRef string) (*claims.SpendResult, error)
	RecordUpload(ctx context.Context, accountID uuid.UUID, couponRef string) (*claims.EarnResult, error)
	DailyBonus(ctx context.Context, accountID uuid.UUID) (*claims.EarnResult, error)
}

type couponRequest struct {
	CouponID string `json:"coupon_id" validate:"required,max=128"`
}

// ClaimCoupon spends points and a quota slot to claim a coupon.
func ClaimCoupon(svc ClaimsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "claims service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Claim(ctx, accountID, body.CouponID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// BoostCoupon spends points to feature a coupon.
func BoostCoupon(svc ClaimsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "claims service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Boost(ctx, accountID, body.CouponID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UploadReward credits the poster for a published coupon upload.
func UploadReward(svc ClaimsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "claims service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.RecordUpload(ctx, accountID, body.CouponID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CollectDailyBonus grants the once-per-day login bonus.
func CollectDailyBonus(svc ClaimsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "claims service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.DailyBonus(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
