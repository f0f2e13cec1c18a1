package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/pkg/enums"
)

// Account holds the engine-owned balance, quota and entitlement state for one user.
// It is mutated only through the engine's operations, never by callers directly.
type Account struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Points           int                    `gorm:"column:points;not null;default:0"`
	Level            int                    `gorm:"column:level;not null;default:1"`
	UploadsCount     int                    `gorm:"column:uploads_count;not null;default:0"`
	ClaimsCount      int                    `gorm:"column:claims_count;not null;default:0"`
	DailyUsed        int                    `gorm:"column:daily_used;not null;default:0"`
	DailyLimit       int                    `gorm:"column:daily_limit;not null"`
	QuotaWindowStart string                 `gorm:"column:quota_window_start;not null"`
	Entitlement      enums.EntitlementState `gorm:"column:entitlement;not null;default:'free'"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
