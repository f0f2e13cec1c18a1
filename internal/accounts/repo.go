package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db/models"
)

// Repository manages persistence for engine accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	IncrementClaims(ctx context.Context, accountID uuid.UUID) (int, error)
	IncrementUploads(ctx context.Context, accountID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindByID(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
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

func (r *repository) IncrementClaims(ctx context.Context, accountID uuid.UUID) (int, error) {
	return r.incrementCounter(ctx, accountID, "claims_count")
}

func (r *repository) IncrementUploads(ctx context.Context, accountID uuid.UUID) (int, error) {
	return r.incrementCounter(ctx, accountID, "uploads_count")
}

func (r *repository) incrementCounter(ctx context.Context, accountID uuid.UUID, column string) (int, error) {
	res := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("UPDATE accounts SET %s = %s + 1, updated_at = ? WHERE id = ?", column, column),
		time.Now().UTC(), accountID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var count int
	if err := r.db.WithContext(ctx).
		Raw(fmt.Sprintf("SELECT %s FROM accounts WHERE id = ?", column), accountID).
		Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
