package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/api/responses"
	"github.com/dmarcano/couponhive-backend/api/validators"
	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
	"github.com/dmarcano/couponhive-backend/pkg/pagination"
)

type LedgerService interface {
	ListEntries(ctx context.Context, accountID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error)
}

type ledgerPage struct {
	Entries    []models.LedgerEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// MyLedger serves the caller's ledger history, newest first.
func MyLedger(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		entries, nextCursor, err := svc.ListEntries(ctx, accountID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if entries == nil {
			entries = []models.LedgerEntry{}
		}
		responses.WriteSuccess(w, ledgerPage{Entries: entries, NextCursor: nextCursor})
	}
}
