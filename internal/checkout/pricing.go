package checkout

import (
	"fmt"
	"math"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
)

// MaxLineQuantity bounds the quantity of a single cart line.
const MaxLineQuantity = 1_000_000

// LineTotal multiplies a unit price by quantity, reporting false when the
// product does not fit in an int64.
func LineTotal(unitPrice int64, quantity int) (int64, bool) {
	if unitPrice < 0 || quantity < 0 {
		return 0, false
	}
	if unitPrice != 0 && int64(quantity) > math.MaxInt64/unitPrice {
		return 0, false
	}
	return unitPrice * int64(quantity), true
}

// AddAmounts sums two non-negative amounts, reporting false on overflow.
func AddAmounts(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}

// Total applies the discount, floors at zero and adds shipping.
func Total(subtotal, discount, shippingFee int64) int64 {
	net := subtotal - discount
	if net < 0 {
		net = 0
	}
	return net + shippingFee
}

// ResolveSplit decides how much of total each payment method carries.
func ResolveSplit(method enums.PaymentMethod, total int64, input SettleInput) (Split, error) {
	switch method {
	case enums.PaymentMethodCash:
		return Split{Cash: total}, nil
	case enums.PaymentMethodTransfer:
		return Split{Transfer: total}, nil
	case enums.PaymentMethodWallet:
		return Split{Wallet: total}, nil
	case enums.PaymentMethodMixed:
		split := Split{Cash: input.CashAmount, Transfer: input.TransferAmount, Wallet: input.WalletAmount}
		if split.Cash < 0 || split.Transfer < 0 || split.Wallet < 0 {
			return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amounts cannot be negative")
		}
		if sum := split.Cash + split.Transfer + split.Wallet; sum != total {
			return Split{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("mixed payment amounts sum to %d, order total is %d", sum, total)).
				WithDetails(map[string]any{
					"cash_amount":     split.Cash,
					"transfer_amount": split.Transfer,
					"wallet_amount":   split.Wallet,
					"total":           total,
				})
		}
		return split, nil
	default:
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}
}
