package checkout

import (
	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// LineInput is one cart line as entered at the terminal.
type LineInput struct {
	ProductCode string
	Quantity    int
}

// SettleInput is a cart ready to be turned into an order. CustomerPhone is
// nil for walk-in sales. The per-method amounts are read only for mixed
// payments; single-method payments put the whole total on that method.
type SettleInput struct {
	CustomerPhone  *string
	Items          []LineInput
	PaymentMethod  enums.PaymentMethod
	CashAmount     int64
	TransferAmount int64
	WalletAmount   int64
	DiscountCode   *string
	ShippingFee    int64
	Notes          *string
}

// Split is the per-method breakdown of an order total.
type Split struct {
	Cash     int64
	Transfer int64
	Wallet   int64
}
