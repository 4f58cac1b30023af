package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/payloads"
)

// Decoder turns the data field of an envelope into a typed payload pointer.
type Decoder func(data json.RawMessage) (any, error)

type topicKind string

const (
	salesTopic        topicKind = "sales"
	notificationTopic topicKind = "notification"
)

// route is one row of the event catalog: who emits the event, where it is
// published and how each version of its payload decodes.
type route struct {
	event     enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	topic     topicKind
	version   int
	decode    Decoder
}

var catalog = []route{
	{enums.EventSaleCompleted, enums.AggregateTransaction, salesTopic, 1, decodeInto[payloads.SaleCompletedEvent]},
	{enums.EventCustomerDeviceReady, enums.AggregateCustomer, notificationTopic, 1, decodeInto[payloads.CustomerDeviceReadyEvent]},
	{enums.EventLowStockDetected, enums.AggregateProduct, notificationTopic, 1, decodeInto[payloads.LowStockDetectedEvent]},
}

type decoderKey struct {
	event   enums.OutboxEventType
	version int
}

// DecoderRegistry holds payload decoders by event type and envelope version.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]Decoder{}}
}

// DefaultDecoders knows every event version the outbox emits today.
func DefaultDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for _, r := range catalog {
		reg.Register(r.event, r.version, r.decode)
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode Decoder) {
	r.mu.Lock()
	r.decoders[decoderKey{eventType, version}] = decode
	r.mu.Unlock()
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[decoderKey{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", eventType, version)
	}
	return decode(data)
}

func decodeInto[T any](data json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
