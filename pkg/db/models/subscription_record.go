package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarcano/couponhive-backend/pkg/enums"
)

// SubscriptionRecord persists provider-reported subscription state per account.
// On a state change the current record is superseded (never deleted) and a new
// one is appended, keeping the full history for audit.
type SubscriptionRecord struct {
	ID                      uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	AccountID               uuid.UUID              `gorm:"column:account_id;type:uuid;not null;index"`
	ExternalCustomerRef     string                 `gorm:"column:external_customer_ref;not null"`
	ExternalSubscriptionRef *string                `gorm:"column:external_subscription_ref"`
	State                   enums.EntitlementState `gorm:"column:state;not null"`
	CurrentPeriodStart      *time.Time             `gorm:"column:current_period_start"`
	CurrentPeriodEnd        *time.Time             `gorm:"column:current_period_end"`
	CancelAtPeriodEnd       bool                   `gorm:"column:cancel_at_period_end;not null;default:false"`
	LastEventID             string                 `gorm:"column:last_event_id"`
	LastEventSeq            int64                  `gorm:"column:last_event_seq;not null;default:0"`
	SupersededAt            *time.Time             `gorm:"column:superseded_at"`
	CreatedAt               time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
