package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// DomainEvent is what services hand to Emit.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("unknown event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("unknown aggregate type %q", e.AggregateType)
	case e.AggregateID == uuid.Nil:
		return errors.New("aggregate id required")
	case e.Data == nil:
		return errors.New("event data required")
	}
	return nil
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit writes event on tx. It reaches Pub/Sub only if tx commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if err := event.validate(); err != nil {
		return err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	id := uuid.New()
	payload, err := Seal(id, event.Version, event.OccurredAt, event.Actor, event.Data)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":     id.String(),
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// EmitIfNotExists is Emit for one-shot events: nothing is written when the
// aggregate already has an event of this type.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || exists {
		return err
	}
	return s.Emit(ctx, tx, event)
}
