package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
)

// NonRetryableError marks a failure a retry cannot fix. The publisher moves
// such rows to the dead-letter table and consumers ack such messages.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// IsNonRetryable reports whether err wraps a NonRetryableError.
func IsNonRetryable(err error) bool {
	var nr NonRetryableError
	return errors.As(err, &nr)
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventDescriptor is the publishing side of a catalog entry.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation, ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry routes outbox rows to topics and checks their payloads
// decode before anything leaves the database.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]EventDescriptor
	decoders *DecoderRegistry
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[topicKind]string{
		salesTopic:        strings.TrimSpace(cfg.SalesTopic),
		notificationTopic: strings.TrimSpace(cfg.NotificationTopic),
	}
	for _, kind := range []topicKind{salesTopic, notificationTopic} {
		if topics[kind] == "" {
			return nil, fmt.Errorf("%s topic is required", kind)
		}
	}

	reg := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]EventDescriptor, len(catalog)),
		decoders: DefaultDecoders(),
	}
	for _, r := range catalog {
		reg.routes[r.event] = EventDescriptor{EventType: r.event, AggregateType: r.aggregate, Topic: topics[r.topic]}
	}
	return reg, nil
}

// Topics lists the distinct topics events are published to, sorted.
func (r *EventRegistry) Topics() []string {
	topics := make([]string, 0, len(r.routes))
	for _, desc := range r.routes {
		topics = append(topics, desc.Topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Resolve validates a row against the catalog and decodes its payload. Every
// error it returns is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("%s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("%s has no aggregate id", event.EventType)
	}

	env, err := outbox.Open(event.Payload)
	if err != nil {
		return nil, nonRetryable("%s: %w", event.EventType, err)
	}
	payload, err := r.decoders.Decode(event.EventType, env.Version, env.Data)
	if err != nil {
		return nil, nonRetryable("decode %s: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
