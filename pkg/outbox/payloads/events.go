package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// OrderSettledEvent is emitted once an order commits as completed.
type OrderSettledEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderCode      string              `json:"order_code"`
	CustomerPhone  *string             `json:"customer_phone,omitempty"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	Subtotal       int64               `json:"subtotal"`
	DiscountAmount int64               `json:"discount_amount"`
	DiscountCode   *string             `json:"discount_code,omitempty"`
	ShippingFee    int64               `json:"shipping_fee"`
	Total          int64               `json:"total"`
	CashAmount     int64               `json:"cash_amount"`
	TransferAmount int64               `json:"transfer_amount"`
	WalletAmount   int64               `json:"wallet_amount"`
	Items          []SettledItem       `json:"items"`
	SettledAt      time.Time           `json:"settled_at"`
}

type SettledItem struct {
	ProductCode  string            `json:"product_code"`
	Quantity     int               `json:"quantity"`
	LineTotal    int64             `json:"line_total"`
	StockStatus  enums.StockStatus `json:"stock_status"`
	AllocatedQty int               `json:"allocated_qty"`
}

// StockShortageRecordedEvent lists the lines of one order that the
// inventory service could not fully cover.
type StockShortageRecordedEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	OrderCode string          `json:"order_code"`
	Shortages []ShortageEntry `json:"shortages"`
}

type ShortageEntry struct {
	ProductCode      string                    `json:"product_code"`
	InventoryTypeKey string                    `json:"inventory_type_key"`
	Requested        int                       `json:"requested"`
	Allocated        int                       `json:"allocated"`
	Shortfall        int                       `json:"shortfall"`
	Reason           enums.StockShortageReason `json:"reason"`
}

// OrderCancelledEvent is emitted when an order reaches cancelled, either
// directly or after its refund was rejected.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderCode   string    `json:"order_code"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// RefundRequestedEvent is emitted when cancelling a wallet-funded order opens
// a refund request.
type RefundRequestedEvent struct {
	RefundID      uuid.UUID `json:"refund_id"`
	OrderID       uuid.UUID `json:"order_id"`
	OrderCode     string    `json:"order_code"`
	CustomerPhone string    `json:"customer_phone"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
}

// RefundDecidedEvent covers both approval and rejection. Balance is set only
// on approval.
type RefundDecidedEvent struct {
	RefundID      uuid.UUID          `json:"refund_id"`
	OrderID       uuid.UUID          `json:"order_id"`
	OrderCode     string             `json:"order_code"`
	CustomerPhone string             `json:"customer_phone"`
	Amount        int64              `json:"amount"`
	Status        enums.RefundStatus `json:"status"`
	Note          *string            `json:"note,omitempty"`
	Balance       *int64             `json:"balance,omitempty"`
	DecidedAt     time.Time          `json:"decided_at"`
}
