package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
	"github.com/dmarcano/couponhive-backend/pkg/pagination"
)

// Service defines the append-only points ledger operations.
type Service interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error)
	Debit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error)
	Balance(ctx context.Context, accountID uuid.UUID) (int, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires a ledger service with the provided repository and transaction runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Credit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error) {
	return s.apply(ctx, accountID, amount, reason, reference)
}

func (s *service) Debit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error) {
	return s.apply(ctx, accountID, -amount, reason, reference)
}

func (s *service) apply(ctx context.Context, accountID uuid.UUID, delta int, reason enums.LedgerReason, reference string) (int, error) {
	if accountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if delta == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !reason.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger reason %q", reason))
	}

	var balance int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		newBalance, applied, err := repo.ApplyDelta(ctx, accountID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply balance delta")
		}
		if !applied {
			account, err := repo.FindAccount(ctx, accountID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
			}
			if account == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient points").
				WithDetails(map[string]any{
					"balance":   account.Points,
					"required":  -delta,
					"shortfall": -delta - account.Points,
				})
		}

		entry := &models.LedgerEntry{
			ID:               uuid.New(),
			AccountID:        accountID,
			Delta:            delta,
			Reason:           reason,
			ResultingBalance: newBalance,
		}
		if reference != "" {
			entry.Reference = &reference
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append ledger entry")
		}

		balance = newBalance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *service) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	if accountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	if account == nil {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return account.Points, nil
}

func (s *service) ListEntries(ctx context.Context, accountID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error) {
	if accountID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListEntries(ctx, accountID, limit+1, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ledger entries")
	}

	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return entries, nextCursor, nil
}
