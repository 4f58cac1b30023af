package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateTransaction OutboxAggregateType = "transaction"
	AggregateCustomer    OutboxAggregateType = "customer"
	AggregateProduct     OutboxAggregateType = "product"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTransaction,
	AggregateCustomer,
	AggregateProduct,
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

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventSaleCompleted       OutboxEventType = "sale_completed"
	EventCustomerDeviceReady OutboxEventType = "customer_device_ready"
	EventLowStockDetected    OutboxEventType = "low_stock_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSaleCompleted,
	EventCustomerDeviceReady,
	EventLowStockDetected,
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
