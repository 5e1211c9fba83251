package enums

import "fmt"

// TopupMethod records how a customer funded a wallet topup.
type TopupMethod string

const (
	TopupMethodCash     TopupMethod = "cash"
	TopupMethodTransfer TopupMethod = "transfer"
	TopupMethodQRIS     TopupMethod = "qris"
)

var validTopupMethods = []TopupMethod{
	TopupMethodCash,
	TopupMethodTransfer,
	TopupMethodQRIS,
}

// String implements fmt.Stringer.
func (t TopupMethod) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TopupMethod.
func (t TopupMethod) IsValid() bool {
	for _, candidate := range validTopupMethods {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTopupMethod converts raw input into a TopupMethod.
func ParseTopupMethod(value string) (TopupMethod, error) {
	for _, candidate := range validTopupMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid topup method %q", value)
}
