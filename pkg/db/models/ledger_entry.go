package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/pkg/enums"
)

// LedgerEntry records one immutable point-balance change and its reason.
// Replaying all entries for an account in order reproduces the current balance.
type LedgerEntry struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	AccountID        uuid.UUID          `gorm:"column:account_id;type:uuid;not null;index"`
	Delta            int                `gorm:"column:delta;not null"`
	Reason           enums.LedgerReason `gorm:"column:reason;not null"`
	ResultingBalance int                `gorm:"column:resulting_balance;not null"`
	Reference        *string            `gorm:"column:reference"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
}
