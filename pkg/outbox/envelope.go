package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the envelope layout written by Seal.
const CurrentVersion = 1

var errEmptyData = errors.New("envelope has no data")

// ActorRef identifies the staff member who caused the event.
type ActorRef struct {
	StaffID uuid.UUID `json:"staffId"`
	Role    string    `json:"role,omitempty"`
}

// PayloadEnvelope is what outbox_events.payload holds and what goes out on
// Pub/Sub unchanged. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Seal marshals data into an envelope for the row id.
func Seal(id uuid.UUID, version int, occurredAt time.Time, actor *ActorRef, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode event data: %w", err)
	}
	if version <= 0 {
		version = CurrentVersion
	}
	return json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       raw,
	})
}

// Open parses a stored or delivered envelope. A missing version reads as 1 and
// empty or null data is an error.
func Open(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version == 0 {
		env.Version = CurrentVersion
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, errEmptyData
	}
	return env, nil
}
