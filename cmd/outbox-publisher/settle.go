package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/registry"
)

// result is the decision for one row: what happened on the wire and, when it
// failed, why and whether the row is finished.
type result struct {
	outcome string
	reason  enums.OutboxDLQErrorReason
	cause   error
	topic   string
	version int
}

var errUnrouted = errors.New("no publisher for topic")

// attempt resolves and publishes one row. It never touches the database.
func (s *Service) attempt(ctx context.Context, event models.OutboxEvent) result {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return result{outcome: metrics.OutboxDeadLettered, reason: enums.OutboxDLQReasonUndecodable, cause: err}
	}
	res := result{topic: resolved.Descriptor.Topic, version: resolved.Envelope.Version}

	err = s.publish(ctx, res.topic, messageFor(event, resolved))
	switch {
	case err == nil:
		res.outcome = metrics.OutboxPublished
	case errors.Is(err, errUnrouted):
		res.outcome, res.reason, res.cause = metrics.OutboxDeadLettered, enums.OutboxDLQReasonUnrouted, err
	case registry.IsNonRetryable(err):
		res.outcome, res.reason, res.cause = metrics.OutboxDeadLettered, enums.OutboxDLQReasonNonRetryable, err
	case event.AttemptCount+1 >= s.maxAttempts:
		res.outcome, res.reason = metrics.OutboxDeadLettered, enums.OutboxDLQReasonMaxAttempts
		res.cause = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		res.outcome, res.cause = metrics.OutboxRetry, err
	}
	return res
}

func (s *Service) publish(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := s.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("%w %s", errUnrouted, topic))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	started := time.Now()
	pending := pub.Publish(ctx, msg)
	if pending == nil {
		return registry.NewNonRetryableError(fmt.Errorf("%w for topic %s", errNilResult, topic))
	}
	_, err := pending.Get(ctx)
	if err == nil {
		s.metrics.ObservePublish(topic, time.Since(started))
	}
	return err
}

// record writes the decision back inside the claim transaction. Only
// bookkeeping failures are returned; they abort the whole batch.
func (s *Service) record(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, res result) error {
	logCtx := s.logg.WithFields(ctx, logFields(event, res))

	switch res.outcome {
	case metrics.OutboxPublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox event published")
	case metrics.OutboxRetry:
		if err := s.repo.MarkFailedTx(tx, event.ID, res.cause); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.logg.Warn(logCtx, "outbox publish failed, will retry")
	default:
		msg := res.cause.Error()
		entry := models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   res.reason,
			ErrorMessage:  &msg,
			AttemptCount:  event.AttemptCount,
			FailedAt:      time.Now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, res.cause, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.logg.Warn(logCtx, "outbox event dead-lettered")
	}
	return nil
}

// messageFor forwards the stored envelope bytes untouched; consumers route on
// the attributes.
func messageFor(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"event_version":  strconv.Itoa(resolved.Envelope.Version),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func logFields(event models.OutboxEvent, res result) map[string]any {
	fields := map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
		"outcome":       res.outcome,
	}
	if res.topic != "" {
		fields["topic"] = res.topic
		fields["event_version"] = res.version
	}
	if res.reason != "" {
		fields["error_reason"] = res.reason
	}
	if res.cause != nil {
		fields["error"] = res.cause.Error()
	}
	return fields
}
