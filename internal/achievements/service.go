package achievements

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/pkg/db"
	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
	"github.com/dmarcano/couponhive-backend/pkg/metrics"
)

// Service evaluates stat changes against the rule table and grants rewards.
type Service interface {
	Evaluate(ctx context.Context, accountID uuid.UUID, stat Stat, previous, current int) ([]models.RewardGrant, error)
	ListGrants(ctx context.Context, accountID uuid.UUID) ([]models.RewardGrant, error)
}

type bonusLedger interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount int, reason enums.LedgerReason, reference string) (int, error)
}

type service struct {
	repo    Repository
	ledger  bonusLedger
	rules   []Rule
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
}

// NewService wires an achievement evaluator with the provided dependencies.
func NewService(repo Repository, ledger bonusLedger, rules []Rule, logg *logger.Logger, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("achievements repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &service{
		repo:    repo,
		ledger:  ledger,
		rules:   rules,
		logg:    logg,
		metrics: engineMetrics,
	}, nil
}

// Evaluate grants every rule whose threshold the stat crossed on this change.
// Grants are idempotent: a replayed crossing hits the unique constraint and
// is skipped without error. Bonus credits are best effort and never fail the
// triggering operation.
func (s *service) Evaluate(ctx context.Context, accountID uuid.UUID, stat Stat, previous, current int) ([]models.RewardGrant, error) {
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}
	if current < previous {
		return nil, nil
	}

	var granted []models.RewardGrant
	for _, rule := range s.rules {
		if rule.Stat != stat {
			continue
		}
		if previous >= rule.Threshold || current < rule.Threshold {
			continue
		}

		grant := &models.RewardGrant{
			ID:            uuid.New(),
			AccountID:     accountID,
			RewardID:      rule.RewardID,
			Kind:          rule.Kind,
			PointsAwarded: rule.BonusPoints,
		}
		if err := s.repo.CreateGrant(ctx, grant); err != nil {
			if db.IsUniqueViolation(err) {
				continue
			}
			return granted, fmt.Errorf("grant reward %s: %w", rule.RewardID, err)
		}
		s.metrics.IncReward()

		if rule.BonusPoints > 0 {
			if _, err := s.ledger.Credit(ctx, accountID, rule.BonusPoints, enums.LedgerReasonAchievementReward, rule.RewardID); err != nil {
				if s.logg != nil {
					s.logg.Error(ctx, fmt.Sprintf("crediting bonus for reward %s", rule.RewardID), err)
				}
			}
		}
		granted = append(granted, *grant)
	}
	return granted, nil
}

func (s *service) ListGrants(ctx context.Context, accountID uuid.UUID) ([]models.RewardGrant, error) {
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}
	return s.repo.ListByAccount(ctx, accountID)
}
