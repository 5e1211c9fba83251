package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"gorm.io/gorm"
)

// Product is the pricing snapshot a settlement copies onto its line items.
type Product struct {
	Code             string
	Name             string
	UnitPrice        int64
	InventoryTypeKey string
}

// Tracked reports whether the product maps to warehouse stock.
func (p Product) Tracked() bool {
	return p.InventoryTypeKey != ""
}

// Service resolves sellable products.
type Service interface {
	GetActiveProduct(ctx context.Context, code string) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// GetActiveProduct returns the authoritative price for code. Unknown, inactive
// and unpriced products are all reported as unavailable.
func (s *service) GetActiveProduct(ctx context.Context, code string) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product code is required")
	}

	row, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unavailable(code, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !row.Active {
		return nil, unavailable(code, "product is inactive")
	}
	if row.UnitPrice == nil {
		return nil, unavailable(code, "product has no price set")
	}
	if *row.UnitPrice < 0 {
		return nil, unavailable(code, "product price is invalid")
	}

	product := &Product{
		Code:      row.Code,
		Name:      row.Name,
		UnitPrice: *row.UnitPrice,
	}
	if row.InventoryTypeKey != nil {
		product.InventoryTypeKey = strings.TrimSpace(*row.InventoryTypeKey)
	}
	return product, nil
}

func unavailable(code, reason string) error {
	return pkgerrors.New(pkgerrors.CodeProductUnavailable, fmt.Sprintf("%s: %s", code, reason)).
		WithDetails(map[string]any{"product_code": code, "reason": reason})
}
