package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/pkg/config"
	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
)

// Service provisions and reads engine accounts.
type Service interface {
	Register(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
}

type grantingLedger interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error)
}

type service struct {
	repo   Repository
	ledger grantingLedger
	cfg    config.EngineConfig
	now    func() time.Time
}

// NewService wires an accounts service with the provided repository and ledger.
func NewService(repo Repository, ledger grantingLedger, cfg config.EngineConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		repo:   repo,
		ledger: ledger,
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// Register creates the engine-side account for a new user. The signup grant is
// credited through the ledger so replaying entries from zero reproduces the
// starting balance.
func (s *service) Register(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	account := &models.Account{
		ID:               accountID,
		Points:           0,
		Level:            1,
		DailyLimit:       s.cfg.DailyClaimLimit,
		QuotaWindowStart: s.now().UTC().Format("2006-01-02"),
		Entitlement:      enums.EntitlementFree,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "create account")
	}

	if s.cfg.StartingPoints > 0 {
		balance, err := s.ledger.Credit(ctx, accountID, s.cfg.StartingPoints, enums.LedgerReasonAdjustment, "signup_grant")
		if err != nil {
			return nil, err
		}
		account.Points = balance
		account.Level = balance/100 + 1
	}
	return account, nil
}

func (s *service) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return account, nil
}
