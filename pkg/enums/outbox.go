package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateRefundRequest OutboxAggregateType = "refund_request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateRefundRequest,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the kind of order lifecycle event published downstream.
type OutboxEventType string

const (
	EventOrderSettled          OutboxEventType = "order_settled"
	EventStockShortageRecorded OutboxEventType = "stock_shortage_recorded"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventRefundRequested       OutboxEventType = "refund_requested"
	EventRefundApproved        OutboxEventType = "refund_approved"
	EventRefundRejected        OutboxEventType = "refund_rejected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderSettled,
	EventStockShortageRecorded,
	EventOrderCancelled,
	EventRefundRequested,
	EventRefundApproved,
	EventRefundRejected,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
