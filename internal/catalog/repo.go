package catalog

import (
	"context"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads the catalog rows consulted at settlement time. Products
// are maintained by the back office, never by this service.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
