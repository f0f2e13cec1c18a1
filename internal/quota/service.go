package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
)

const dayFormat = "2006-01-02"

// Result reports the outcome of a quota consumption attempt.
type Result struct {
	Allowed   bool
	Remaining int
	Bypassed  bool
}

// Service gates free-tier claims behind the daily quota. Entitled accounts
// bypass the counter entirely.
type Service interface {
	TryConsume(ctx context.Context, accountID uuid.UUID) (*Result, error)
	Remaining(ctx context.Context, accountID uuid.UUID) (int, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a quota service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("quota repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) TryConsume(ctx context.Context, accountID uuid.UUID) (*Result, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}

	day := s.today()
	if account.Entitlement.Entitled() {
		// The free counter is left untouched so a downgrade later in the
		// day still sees the unused allowance.
		return &Result{Allowed: true, Bypassed: true, Remaining: remainingOf(account, day)}, nil
	}

	consumed, err := s.repo.ConsumeDaily(ctx, accountID, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume daily quota")
	}
	if !consumed {
		return &Result{Allowed: false, Remaining: 0}, nil
	}

	used, limit, err := s.repo.Usage(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read quota usage")
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &Result{Allowed: true, Remaining: remaining}, nil
}

func (s *service) Remaining(ctx context.Context, accountID uuid.UUID) (int, error) {
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
	return remainingOf(account, s.today()), nil
}

func (s *service) today() string {
	return s.now().UTC().Format(dayFormat)
}

// remainingOf computes today's remaining allowance without mutating the
// counter. A window from a previous day counts as a full allowance.
func remainingOf(account *models.Account, day string) int {
	if account.QuotaWindowStart != day {
		return account.DailyLimit
	}
	remaining := account.DailyLimit - account.DailyUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
