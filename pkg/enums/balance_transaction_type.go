package enums

import "fmt"

// BalanceTransactionType classifies an entry in the wallet transaction log.
type BalanceTransactionType string

const (
	BalanceTransactionTypeTopup        BalanceTransactionType = "topup"
	BalanceTransactionTypePayment      BalanceTransactionType = "payment"
	BalanceTransactionTypeRefund       BalanceTransactionType = "refund"
	BalanceTransactionTypeAdjust       BalanceTransactionType = "adjust"
	BalanceTransactionTypeCompensation BalanceTransactionType = "compensation"
)

var validBalanceTransactionTypes = []BalanceTransactionType{
	BalanceTransactionTypeTopup,
	BalanceTransactionTypePayment,
	BalanceTransactionTypeRefund,
	BalanceTransactionTypeAdjust,
	BalanceTransactionTypeCompensation,
}

// String implements fmt.Stringer.
func (b BalanceTransactionType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BalanceTransactionType.
func (b BalanceTransactionType) IsValid() bool {
	for _, candidate := range validBalanceTransactionTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBalanceTransactionType converts raw input into a BalanceTransactionType.
func ParseBalanceTransactionType(value string) (BalanceTransactionType, error) {
	for _, candidate := range validBalanceTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid balance transaction type %q", value)
}

// IsCredit reports whether entries of this type add money to a wallet.
// Adjustments are signed and therefore neither.
func (b BalanceTransactionType) IsCredit() bool {
	switch b {
	case BalanceTransactionTypeTopup, BalanceTransactionTypeRefund, BalanceTransactionTypeCompensation:
		return true
	}
	return false
}
