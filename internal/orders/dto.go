package orders

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/posledger-backend/pkg/db/models"
	"github.com/angelmondragon/posledger-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CancelInput requests cancellation of a completed order.
type CancelInput struct {
	OrderCode string
	Reason    string
}

// CancelResult reports where the cancellation left the order. Refund is set
// when wallet money is waiting on approval.
type CancelResult struct {
	OrderCode string            `json:"order_code"`
	Status    enums.OrderStatus `json:"status"`
	Refund    *RefundDTO        `json:"refund,omitempty"`
}

// ApproveResult reports the credited refund and the customer's new balance.
type ApproveResult struct {
	Refund  RefundDTO `json:"refund"`
	Balance int64     `json:"new_balance"`
}

// OrderDTO is the API shape of a settled order.
type OrderDTO struct {
	ID             uuid.UUID           `json:"id"`
	Code           string              `json:"code"`
	CustomerPhone  *string             `json:"customer_phone,omitempty"`
	Items          []OrderItemDTO      `json:"items"`
	Subtotal       int64               `json:"subtotal"`
	DiscountType   *enums.DiscountType `json:"discount_type,omitempty"`
	DiscountValue  *decimal.Decimal    `json:"discount_value,omitempty"`
	DiscountCode   *string             `json:"discount_code,omitempty"`
	DiscountAmount int64               `json:"discount_amount"`
	ShippingFee    int64               `json:"shipping_fee"`
	Total          int64               `json:"total"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	CashAmount     int64               `json:"cash_amount"`
	TransferAmount int64               `json:"transfer_amount"`
	WalletAmount   int64               `json:"wallet_amount"`
	Status         enums.OrderStatus   `json:"status"`
	Notes          *string             `json:"notes,omitempty"`
	CreatedBy      string              `json:"created_by"`
	CancelledBy    *string             `json:"cancelled_by,omitempty"`
	CancelReason   *string             `json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	RefundedBy     *string             `json:"refunded_by,omitempty"`
	RefundedAt     *time.Time          `json:"refunded_at,omitempty"`
	Shortages      []ShortageDTO       `json:"stock_shortages,omitempty"`
	Refunds        []RefundDTO         `json:"refunds,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

type OrderItemDTO struct {
	ProductCode  string            `json:"product_code"`
	ProductName  string            `json:"product_name"`
	UnitPrice    int64             `json:"unit_price"`
	Quantity     int               `json:"quantity"`
	LineTotal    int64             `json:"line_total"`
	StockStatus  enums.StockStatus `json:"stock_status"`
	AllocatedQty int               `json:"allocated_qty"`
	ShortfallQty int               `json:"shortfall_qty"`
	Allocations  json.RawMessage   `json:"allocations,omitempty"`
}

type ShortageDTO struct {
	ProductCode      string                    `json:"product_code"`
	InventoryTypeKey string                    `json:"inventory_type_key"`
	Requested        int                       `json:"requested"`
	Allocated        int                       `json:"allocated"`
	Shortfall        int                       `json:"shortfall"`
	Reason           enums.StockShortageReason `json:"reason"`
	Detail           string                    `json:"detail,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// RefundDTO is the API shape of a refund request.
type RefundDTO struct {
	ID            uuid.UUID          `json:"id"`
	OrderCode     string             `json:"order_code"`
	CustomerPhone string             `json:"customer_phone"`
	Amount        int64              `json:"amount"`
	Status        enums.RefundStatus `json:"status"`
	Reason        string             `json:"reason"`
	RequestedBy   string             `json:"requested_by"`
	DecidedBy     *string            `json:"decided_by,omitempty"`
	DecisionNote  *string            `json:"decision_note,omitempty"`
	DecidedAt     *time.Time         `json:"decided_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// RefundPage is one page of refund requests, newest first.
type RefundPage struct {
	Items      []RefundDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// ToOrderDTO maps a persisted order, with its items loaded, to the API shape.
func ToOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:             order.ID,
		Code:           order.Code,
		CustomerPhone:  order.CustomerPhone,
		Items:          make([]OrderItemDTO, 0, len(order.Items)),
		Subtotal:       order.Subtotal,
		DiscountType:   order.DiscountType,
		DiscountCode:   order.DiscountCode,
		DiscountAmount: order.DiscountAmount,
		ShippingFee:    order.ShippingFee,
		Total:          order.Total,
		PaymentMethod:  order.PaymentMethod,
		CashAmount:     order.CashAmount,
		TransferAmount: order.TransferAmount,
		WalletAmount:   order.WalletAmount,
		Status:         order.Status,
		Notes:          order.Notes,
		CreatedBy:      order.CreatedBy,
		CancelledBy:    order.CancelledBy,
		CancelReason:   order.CancelReason,
		CancelledAt:    order.CancelledAt,
		RefundedBy:     order.RefundedBy,
		RefundedAt:     order.RefundedAt,
		CreatedAt:      order.CreatedAt,
	}
	if order.DiscountValue.Valid {
		value := order.DiscountValue.Decimal
		dto.DiscountValue = &value
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductCode:  item.ProductCode,
			ProductName:  item.ProductName,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			LineTotal:    item.LineTotal,
			StockStatus:  item.StockStatus,
			AllocatedQty: item.AllocatedQty,
			ShortfallQty: item.ShortfallQty,
			Allocations:  item.Allocations,
		})
	}
	return dto
}

func toShortageDTO(s models.StockShortage) ShortageDTO {
	return ShortageDTO{
		ProductCode:      s.ProductCode,
		InventoryTypeKey: s.InventoryTypeKey,
		Requested:        s.Requested,
		Allocated:        s.Allocated,
		Shortfall:        s.Shortfall,
		Reason:           s.Reason,
		Detail:           s.Detail,
		CreatedAt:        s.CreatedAt,
	}
}

func toRefundDTO(r *models.RefundRequest) RefundDTO {
	return RefundDTO{
		ID:            r.ID,
		OrderCode:     r.OrderCode,
		CustomerPhone: r.CustomerPhone,
		Amount:        r.Amount,
		Status:        r.Status,
		Reason:        r.Reason,
		RequestedBy:   r.RequestedBy,
		DecidedBy:     r.DecidedBy,
		DecisionNote:  r.DecisionNote,
		DecidedAt:     r.DecidedAt,
		CreatedAt:     r.CreatedAt,
	}
}
