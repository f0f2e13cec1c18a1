package entitlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db/models"
	"github.com/dmarcano/couponhive-backend/pkg/enums"
)

// Repository manages persistence for subscription records. Records are
// append-only: a state change supersedes the active row and inserts a new one.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	FindActiveByAccount(ctx context.Context, accountID uuid.UUID) (*models.SubscriptionRecord, error)
	FindActiveByCustomerRef(ctx context.Context, customerRef string) (*models.SubscriptionRecord, error)
	CreateRecord(ctx context.Context, record *models.SubscriptionRecord) error
	SupersedeRecord(ctx context.Context, recordID uuid.UUID, maxSeq int64) (bool, error)
	TouchRecord(ctx context.Context, record *models.SubscriptionRecord) (bool, error)
	SetAccountEntitlement(ctx context.Context, accountID uuid.UUID, state enums.EntitlementState) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.SubscriptionRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an entitlements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("id = ?", accountID).
		First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindActiveByAccount(ctx context.Context, accountID uuid.UUID) (*models.SubscriptionRecord, error) {
	var record models.SubscriptionRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND superseded_at IS NULL", accountID).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindActiveByCustomerRef(ctx context.Context, customerRef string) (*models.SubscriptionRecord, error) {
	var record models.SubscriptionRecord
	err := r.db.WithContext(ctx).
		Where("external_customer_ref = ? AND superseded_at IS NULL", customerRef).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) CreateRecord(ctx context.Context, record *models.SubscriptionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// SupersedeRecord closes the active row with a compare-and-swap on the last
// applied sequence. A zero row count means another writer got there first.
func (r *repository) SupersedeRecord(ctx context.Context, recordID uuid.UUID, maxSeq int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE subscription_records
		SET superseded_at = ?, updated_at = ?
		WHERE id = ? AND superseded_at IS NULL AND last_event_seq <= ?`,
		time.Now().UTC(), time.Now().UTC(), recordID, maxSeq,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// TouchRecord refreshes period bookkeeping on the active row without a state
// change, guarded by the same sequence compare-and-swap.
func (r *repository) TouchRecord(ctx context.Context, record *models.SubscriptionRecord) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE subscription_records
		SET current_period_start = ?,
		    current_period_end = ?,
		    cancel_at_period_end = ?,
		    last_event_id = ?,
		    last_event_seq = ?,
		    updated_at = ?
		WHERE id = ? AND superseded_at IS NULL AND last_event_seq <= ?`,
		record.CurrentPeriodStart, record.CurrentPeriodEnd, record.CancelAtPeriodEnd,
		record.LastEventID, record.LastEventSeq, time.Now().UTC(),
		record.ID, record.LastEventSeq,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetAccountEntitlement(ctx context.Context, accountID uuid.UUID, state enums.EntitlementState) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE accounts SET entitlement = ?, updated_at = ? WHERE id = ?",
		state, time.Now().UTC(), accountID,
	).Error
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.SubscriptionRecord, error) {
	var records []models.SubscriptionRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
