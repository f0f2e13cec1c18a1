package achievements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarcano/couponhive-backend/pkg/db/models"
)

// Repository manages persistence for reward grants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateGrant(ctx context.Context, grant *models.RewardGrant) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.RewardGrant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an achievements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateGrant(ctx context.Context, grant *models.RewardGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.RewardGrant, error) {
	var grants []models.RewardGrant
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}
