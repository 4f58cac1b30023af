package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
)

const maxDLQErrorLen = 1024

// ErrNotDeadLettered is returned when requeueing an event the DLQ does not hold.
var ErrNotDeadLettered = errors.New("event is not in the dead letter queue")

// DLQRepository stores outbox events the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errTxRequired
	}
	if entry.ErrorMessage != nil {
		msg := truncateUTF8(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil, nil when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var row models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns the most recent failures first.
func (r *DLQRepository) List(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Requeue hands a dead-lettered event back to the publisher with a fresh
// attempt budget. If retention already pruned the outbox row it is rebuilt
// from the DLQ copy under the same id, so consumers still dedupe it.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dead models.OutboxDLQ
		if err := tx.Where("event_id = ?", eventID).Take(&dead).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotDeadLettered
			}
			return err
		}

		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			event := models.OutboxEvent{
				ID:            dead.EventID,
				EventType:     dead.EventType,
				AggregateType: dead.AggregateType,
				AggregateID:   dead.AggregateID,
				Payload:       dead.Payload,
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&dead).Error
	})
}

// DeleteFailedBefore drops dead letters older than cutoff.
func (r *DLQRepository) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
