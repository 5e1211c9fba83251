package enums

import "fmt"

// StockStatus summarizes the inventory outcome of a settled line item.
type StockStatus string

const (
	StockStatusAllocated StockStatus = "allocated"
	StockStatusPartial   StockStatus = "partial"
	StockStatusShortage  StockStatus = "shortage"
	StockStatusUntracked StockStatus = "untracked"
)

var validStockStatuses = []StockStatus{
	StockStatusAllocated,
	StockStatusPartial,
	StockStatusShortage,
	StockStatusUntracked,
}

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockStatus.
func (s StockStatus) IsValid() bool {
	for _, candidate := range validStockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockStatus converts raw input into a StockStatus.
func ParseStockStatus(value string) (StockStatus, error) {
	for _, candidate := range validStockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock status %q", value)
}
