package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists orders, their refund requests and stock shortages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	FindByCodeForUpdate(ctx context.Context, code string) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	TransitionOrder(ctx context.Context, order *models.Order, from enums.OrderStatus) (bool, error)

	CreateShortages(ctx context.Context, shortages []models.StockShortage) error
	ListShortages(ctx context.Context, orderCode string) ([]models.StockShortage, error)

	CreateRefundRequest(ctx context.Context, refund *models.RefundRequest) error
	FindRefund(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	FindRefundForUpdate(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	FindRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error)
	TransitionRefund(ctx context.Context, refund *models.RefundRequest, from enums.RefundStatus) (bool, error)
	ListRefunds(ctx context.Context, opts RefundListQuery) ([]models.RefundRequest, error)
}

// RefundListQuery filters and pages refund requests, newest first.
type RefundListQuery struct {
	Status          *enums.RefundStatus
	CursorCreatedAt *time.Time
	CursorID        *uuid.UUID
	Limit           int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order header and its line items.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("code = ?", code).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCodeForUpdate(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOrder writes the order's status and audit fields only if the row
// is still in from. It reports false when another writer got there first.
func (r *repository) TransitionOrder(ctx context.Context, order *models.Order, from enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(map[string]any{
			"status":        order.Status,
			"cancelled_by":  order.CancelledBy,
			"cancel_reason": order.CancelReason,
			"cancelled_at":  order.CancelledAt,
			"refunded_by":   order.RefundedBy,
			"refunded_at":   order.RefundedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateShortages(ctx context.Context, shortages []models.StockShortage) error {
	if len(shortages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&shortages).Error
}

func (r *repository) ListShortages(ctx context.Context, orderCode string) ([]models.StockShortage, error) {
	var shortages []models.StockShortage
	if err := r.db.WithContext(ctx).
		Where("order_code = ?", orderCode).
		Order("created_at ASC, id ASC").
		Find(&shortages).Error; err != nil {
		return nil, err
	}
	return shortages, nil
}

func (r *repository) CreateRefundRequest(ctx context.Context, refund *models.RefundRequest) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindRefund(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var refund models.RefundRequest
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) FindRefundForUpdate(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var refund models.RefundRequest
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) FindRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error) {
	var refunds []models.RefundRequest
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// TransitionRefund records a decision only if the request is still in from.
func (r *repository) TransitionRefund(ctx context.Context, refund *models.RefundRequest, from enums.RefundStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefundRequest{}).
		Where("id = ? AND status = ?", refund.ID, from).
		Updates(map[string]any{
			"status":        refund.Status,
			"decided_by":    refund.DecidedBy,
			"decision_note": refund.DecisionNote,
			"decided_at":    refund.DecidedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListRefunds(ctx context.Context, opts RefundListQuery) ([]models.RefundRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.RefundRequest{})
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}
	if opts.CursorCreatedAt != nil && opts.CursorID != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", *opts.CursorCreatedAt, *opts.CursorCreatedAt, *opts.CursorID)
	}

	var refunds []models.RefundRequest
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(opts.Limit).
		Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}
