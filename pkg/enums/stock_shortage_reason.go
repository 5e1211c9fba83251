package enums

import "fmt"

// StockShortageReason explains why a line item could not be fully withdrawn.
type StockShortageReason string

const (
	StockShortageReasonInsufficient   StockShortageReason = "insufficient"
	StockShortageReasonUnavailable    StockShortageReason = "unavailable"
	StockShortageReasonPartialFailure StockShortageReason = "partial_failure"
)

var validStockShortageReasons = []StockShortageReason{
	StockShortageReasonInsufficient,
	StockShortageReasonUnavailable,
	StockShortageReasonPartialFailure,
}

// String implements fmt.Stringer.
func (s StockShortageReason) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockShortageReason.
func (s StockShortageReason) IsValid() bool {
	for _, candidate := range validStockShortageReasons {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockShortageReason converts raw input into a StockShortageReason.
func ParseStockShortageReason(value string) (StockShortageReason, error) {
	for _, candidate := range validStockShortageReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock shortage reason %q", value)
}
