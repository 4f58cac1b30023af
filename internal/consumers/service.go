// Package consumers runs Pub/Sub subscriptions that carry outbox events and
// hands each decoded event to a domain handler exactly once.
package consumers

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/registry"
)

// Event is a decoded outbox message.
type Event struct {
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Payload       any
}

// Handler processes one event. Returning registry.NonRetryableError acks the
// message without retry.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (fn HandlerFunc) Handle(ctx context.Context, event Event) error { return fn(ctx, event) }

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type decoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

type ServiceParams struct {
	// Name scopes idempotency keys; two services on one topic need distinct names.
	Name         string
	Subscription receiver
	Handler      Handler
	Idempotency  idempotencyChecker
	Decoders     decoder
	Logger       *logger.Logger
}

// Service consumes one subscription.
type Service struct {
	name         string
	subscription receiver
	handler      Handler
	manager      idempotencyChecker
	decoders     decoder
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	name := strings.TrimSpace(params.Name)
	switch {
	case name == "":
		return nil, errors.New("consumer name is required")
	case params.Subscription == nil:
		return nil, errors.New("subscription is required")
	case params.Handler == nil:
		return nil, errors.New("handler is required")
	case params.Idempotency == nil:
		return nil, errors.New("idempotency manager is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	}
	svc := &Service{
		name:         name,
		subscription: params.Subscription,
		handler:      params.Handler,
		manager:      params.Idempotency,
		decoders:     params.Decoders,
		logg:         params.Logger,
	}
	if svc.decoders == nil {
		svc.decoders = registry.DefaultDecoders()
	}
	return svc, nil
}

func (s *Service) Name() string { return s.name }

// disposition is what happens to a message once process returns.
type disposition int

const (
	ack disposition = iota
	nack
)

// Run receives messages until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		switch s.process(ctx, msg) {
		case nack:
			msg.Nack()
		default:
			msg.Ack()
		}
	})
}

// process acks poison messages and duplicates, and nacks anything a redelivery
// could fix. A failed handler releases its idempotency mark first.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) disposition {
	ctx = s.logg.WithFields(ctx, map[string]any{"consumer": s.name, "message_id": msg.ID})

	event, err := s.decode(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping undecodable message")
		return ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     event.EventID.String(),
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID,
	})

	seen, err := s.manager.CheckAndMarkProcessed(ctx, s.name, event.EventID)
	switch {
	case err != nil:
		s.logg.Error(ctx, "idempotency check failed", err)
		return nack
	case seen:
		s.logg.Info(ctx, "duplicate delivery skipped")
		return ack
	}

	err = s.handler.Handle(ctx, *event)
	switch {
	case err == nil:
		return ack
	case registry.IsNonRetryable(err):
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "event rejected without retry")
		return ack
	}
	s.logg.Error(ctx, "event handler failed", err)
	if delErr := s.manager.Delete(ctx, s.name, event.EventID); delErr != nil {
		s.logg.Error(ctx, "release idempotency mark", delErr)
	}
	return nack
}

// decode trusts the envelope for the event id and version and the
// attributes for routing; a message missing either is poison.
func (s *Service) decode(msg *gcppubsub.Message) (*Event, error) {
	env, err := outbox.Open(msg.Data)
	if err != nil {
		return nil, err
	}
	attr := func(name string) string { return strings.TrimSpace(msg.Attributes[name]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	rawID := cmp.Or(strings.TrimSpace(env.EventID), attr("event_id"))
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("event_id: %w", err)
	}
	payload, err := s.decoders.Decode(eventType, env.Version, env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}

	return &Event{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   attr("aggregate_id"),
		OccurredAt:    env.OccurredAt.UTC(),
		Actor:         env.Actor,
		Payload:       payload,
	}, nil
}
