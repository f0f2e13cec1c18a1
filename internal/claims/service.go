package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/internal/achievements"
	"github.com/dmarcano/couponhive-backend/internal/quota"
	"github.com/dmarcano/couponhive-backend/pkg/config"
	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
	pkgerrors "github.com/dmarcano/couponhive-backend/pkg/errors"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
	"github.com/dmarcano/couponhive-backend/pkg/metrics"
)

const dayFormat = "2006-01-02"

// bonusLatchTTL keeps the redis latch alive well past the UTC day it guards.
const bonusLatchTTL = 48 * time.Hour

// ClaimResult is returned to the client after a successful claim.
type ClaimResult struct {
	Balance   int                  `json:"balance"`
	Remaining int                  `json:"daily_remaining"`
	Bypassed  bool                 `json:"quota_bypassed"`
	Rewards   []models.RewardGrant `json:"rewards,omitempty"`
}

// SpendResult is returned after a plain point spend such as a boost.
type SpendResult struct {
	Balance int `json:"balance"`
}

// EarnResult is returned after a point-earning action.
type EarnResult struct {
	Balance int                  `json:"balance"`
	Rewards []models.RewardGrant `json:"rewards,omitempty"`
}

// Service orchestrates the point-spending and point-earning user actions:
// quota gate, ledger movement, stat counters, then achievement evaluation.
type Service interface {
	Claim(ctx context.Context, accountID uuid.UUID, couponRef string) (*ClaimResult, error)
	Boost(ctx context.Context, accountID uuid.UUID, couponRef string) (*SpendResult, error)
	RecordUpload(ctx context.Context, accountID uuid.UUID, couponRef string) (*EarnResult, error)
	DailyBonus(ctx context.Context, accountID uuid.UUID) (*EarnResult, error)
	Compensate(ctx context.Context, accountID uuid.UUID, amount int, reference string) (int, error)
}

type quotaGate interface {
	TryConsume(ctx context.Context, accountID uuid.UUID) (*quota.Result, error)
}

type pointsLedger interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error)
	Debit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error)
}

type statsRepo interface {
	IncrementClaims(ctx context.Context, accountID uuid.UUID) (int, error)
	IncrementUploads(ctx context.Context, accountID uuid.UUID) (int, error)
}

type rewardEvaluator interface {
	Evaluate(ctx context.Context, accountID uuid.UUID, stat achievements.Stat, previous, current int) ([]models.RewardGrant, error)
}

type bonusLatch interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	DailyBonusKey(accountID, day string) string
}

type service struct {
	quota   quotaGate
	ledger  pointsLedger
	stats   statsRepo
	rewards rewardEvaluator
	latch   bonusLatch
	cfg     config.EngineConfig
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
	now     func() time.Time
}

// NewService wires the claims orchestrator.
func NewService(
	quotaSvc quotaGate,
	ledger pointsLedger,
	stats statsRepo,
	rewards rewardEvaluator,
	latch bonusLatch,
	cfg config.EngineConfig,
	logg *logger.Logger,
	engineMetrics *metrics.EngineMetrics,
) (Service, error) {
	if quotaSvc == nil {
		return nil, fmt.Errorf("quota service required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if stats == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	if rewards == nil {
		return nil, fmt.Errorf("achievements service required")
	}
	if latch == nil {
		return nil, fmt.Errorf("bonus latch required")
	}
	return &service{
		quota:   quotaSvc,
		ledger:  ledger,
		stats:   stats,
		rewards: rewards,
		latch:   latch,
		cfg:     cfg,
		logg:    logg,
		metrics: engineMetrics,
		now:     time.Now,
	}, nil
}

func (s *service) Claim(ctx context.Context, accountID uuid.UUID, couponRef string) (*ClaimResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if couponRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon reference is required")
	}

	gate, err := s.quota.TryConsume(ctx, accountID)
	if err != nil {
		s.metrics.IncClaim("error")
		return nil, err
	}
	if !gate.Allowed {
		s.metrics.IncClaim("quota_exceeded")
		return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "daily claim limit reached").
			WithDetails(map[string]any{"daily_limit": s.cfg.DailyClaimLimit})
	}

	balance, err := s.ledger.Debit(ctx, accountID, s.cfg.ClaimCost, enums.LedgerReasonClaimCost, couponRef)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientPoints) {
			s.metrics.IncClaim("insufficient_points")
		} else {
			s.metrics.IncClaim("error")
		}
		return nil, err
	}

	count, err := s.stats.IncrementClaims(ctx, accountID)
	if err != nil {
		s.warnErr(ctx, "incrementing claim count", err)
		count = 0
	}

	result := &ClaimResult{
		Balance:   balance,
		Remaining: gate.Remaining,
		Bypassed:  gate.Bypassed,
	}
	if count > 0 {
		result.Rewards = s.evaluate(ctx, accountID, achievements.StatClaims, count-1, count)
	}

	s.metrics.IncClaim("granted")
	return result, nil
}

func (s *service) Boost(ctx context.Context, accountID uuid.UUID, couponRef string) (*SpendResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if couponRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon reference is required")
	}

	balance, err := s.ledger.Debit(ctx, accountID, s.cfg.BoostCost, enums.LedgerReasonBoostCost, couponRef)
	if err != nil {
		return nil, err
	}
	return &SpendResult{Balance: balance}, nil
}

func (s *service) RecordUpload(ctx context.Context, accountID uuid.UUID, couponRef string) (*EarnResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if couponRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon reference is required")
	}

	balance, err := s.ledger.Credit(ctx, accountID, s.cfg.UploadReward, enums.LedgerReasonUploadReward, couponRef)
	if err != nil {
		return nil, err
	}

	result := &EarnResult{Balance: balance}

	count, err := s.stats.IncrementUploads(ctx, accountID)
	if err != nil {
		s.warnErr(ctx, "incrementing upload count", err)
	} else {
		result.Rewards = s.evaluate(ctx, accountID, achievements.StatUploads, count-1, count)
	}
	result.Rewards = append(result.Rewards, s.evaluate(ctx, accountID, achievements.StatPoints, balance-s.cfg.UploadReward, balance)...)
	return result, nil
}

// DailyBonus credits the once-per-day login bonus. A redis SETNX latch keyed
// by account and UTC day makes the grant race-safe across instances; the key
// is released if the credit fails so the user can retry.
func (s *service) DailyBonus(ctx context.Context, accountID uuid.UUID) (*EarnResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	day := s.now().UTC().Format(dayFormat)
	key := s.latch.DailyBonusKey(accountID.String(), day)
	set, err := s.latch.SetNX(ctx, key, "1", bonusLatchTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire bonus latch")
	}
	if !set {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "daily bonus already collected")
	}

	balance, err := s.ledger.Credit(ctx, accountID, s.cfg.DailyBonus, enums.LedgerReasonDailyBonus, "daily_bonus:"+day)
	if err != nil {
		if delErr := s.latch.Del(ctx, key); delErr != nil {
			s.warnErr(ctx, "releasing bonus latch", delErr)
		}
		return nil, err
	}

	return &EarnResult{
		Balance: balance,
		Rewards: s.evaluate(ctx, accountID, achievements.StatPoints, balance-s.cfg.DailyBonus, balance),
	}, nil
}

// Compensate credits points back after a downstream failure, e.g. a claim
// whose coupon turned out to be withdrawn.
func (s *service) Compensate(ctx context.Context, accountID uuid.UUID, amount int, reference string) (int, error) {
	if accountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return s.ledger.Credit(ctx, accountID, amount, enums.LedgerReasonAdjustment, reference)
}

// evaluate runs the achievement rules best effort. A failed evaluation never
// fails the triggering operation.
func (s *service) evaluate(ctx context.Context, accountID uuid.UUID, stat achievements.Stat, previous, current int) []models.RewardGrant {
	granted, err := s.rewards.Evaluate(ctx, accountID, stat, previous, current)
	if err != nil {
		s.warnErr(ctx, fmt.Sprintf("evaluating %s achievements", stat), err)
	}
	return granted
}

func (s *service) warnErr(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
