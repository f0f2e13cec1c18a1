package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/pkg/enums"
)

// RewardGrant marks a one-time badge or achievement as granted to an account.
// The (account_id, reward_id) unique constraint is what makes grants idempotent.
type RewardGrant struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	AccountID     uuid.UUID        `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_reward_grants_account_reward"`
	RewardID      string           `gorm:"column:reward_id;not null;uniqueIndex:idx_reward_grants_account_reward"`
	Kind          enums.RewardKind `gorm:"column:kind;not null"`
	PointsAwarded int              `gorm:"column:points_awarded;not null;default:0"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}
