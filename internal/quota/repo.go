package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db/models"
)

// Repository manages the per-account daily claim counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	ConsumeDaily(ctx context.Context, accountID uuid.UUID, day string) (bool, error)
	Usage(ctx context.Context, accountID uuid.UUID) (used int, limit int, err error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a quota repository bound to the provided database.
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

// ConsumeDaily increments the day's usage in a single guarded UPDATE. A stale
// window resets lazily to 1 in the same statement, so concurrent consumers
// can never exceed the limit and no scheduled reset job is needed.
func (r *repository) ConsumeDaily(ctx context.Context, accountID uuid.UUID, day string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE accounts
		SET daily_used = CASE WHEN quota_window_start = ? THEN daily_used + 1 ELSE 1 END,
		    quota_window_start = ?,
		    updated_at = ?
		WHERE id = ?
		  AND (quota_window_start <> ? OR daily_used < daily_limit)`,
		day, day, time.Now().UTC(), accountID, day,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Usage(ctx context.Context, accountID uuid.UUID) (int, int, error) {
	var row struct {
		DailyUsed  int
		DailyLimit int
	}
	err := r.db.WithContext(ctx).
		Raw("SELECT daily_used, daily_limit FROM accounts WHERE id = ?", accountID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.DailyUsed, row.DailyLimit, nil
}
