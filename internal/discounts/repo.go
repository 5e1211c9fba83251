package discounts

import (
	"context"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists discount codes and their usage counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, code *models.DiscountCode) error
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	IncrementUsage(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, code *models.DiscountCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var record models.DiscountCode
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// IncrementUsage bumps used_count only while the code is still below its
// limit. It reports false when the guard matched no row.
func (r *repository) IncrementUsage(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("id = ? AND active = ? AND (usage_limit IS NULL OR used_count < usage_limit)", id, true).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
