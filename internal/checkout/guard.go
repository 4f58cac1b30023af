package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/redis"
)

// ErrAlreadySubmitting is returned while another submission for the same
// session is still in flight.
var ErrAlreadySubmitting = errors.New("checkout already submitting")

// ErrAlreadyCompleted is returned when the session already produced a sale.
var ErrAlreadyCompleted = errors.New("checkout already completed")

// Status is the last known state of a session's checkout.
type Status struct {
	SessionID     string              `json:"session_id"`
	State         enums.CheckoutState `json:"state"`
	TransactionID *uuid.UUID          `json:"transaction_id,omitempty"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	Error         string              `json:"error,omitempty"`
	UpdatedAt     *time.Time          `json:"updated_at,omitempty"`
}

type guardStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CompareAndSwap(ctx context.Context, key, prev, next string, ttl time.Duration) (bool, error)
	CheckoutKey(staffID, sessionID string) string
}

// Guard serialises submissions per staff cart session with a Redis SETNX key.
// The key expires after ttl so a crashed submission does not block the
// session forever.
type Guard struct {
	store guardStore
	ttl   time.Duration
	now   func() time.Time
}

func NewGuard(store guardStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("checkout guard requires redis")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("checkout guard ttl must be positive")
	}
	return &Guard{store: store, ttl: ttl, now: time.Now}, nil
}

// acquireAttempts bounds retries when the key expires between SETNX and GET.
const acquireAttempts = 3

// Acquire moves the session into submitting. Only an idle or failed session
// can be taken; a failed one is swapped atomically so two retries cannot both
// win. A completed session stays completed until its key expires.
func (g *Guard) Acquire(ctx context.Context, staffID, sessionID string) error {
	key := g.store.CheckoutKey(staffID, sessionID)
	payload, err := g.encode(Status{SessionID: sessionID, State: enums.CheckoutStateSubmitting})
	if err != nil {
		return err
	}

	for range acquireAttempts {
		ok, err := g.store.SetNX(ctx, key, payload, g.ttl)
		if err != nil {
			return fmt.Errorf("acquire checkout guard: %w", err)
		}
		if ok {
			return nil
		}

		raw, err := g.store.Get(ctx, key)
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read checkout guard: %w", err)
		}
		current, err := decodeStatus(raw)
		if err != nil {
			return err
		}
		switch current.State {
		case enums.CheckoutStateCompleted:
			return ErrAlreadyCompleted
		case enums.CheckoutStateFailed:
			swapped, err := g.store.CompareAndSwap(ctx, key, raw, payload, g.ttl)
			if err != nil {
				return fmt.Errorf("retake checkout guard: %w", err)
			}
			if !swapped {
				return ErrAlreadySubmitting
			}
			return nil
		default:
			return ErrAlreadySubmitting
		}
	}
	return ErrAlreadySubmitting
}

func (g *Guard) Complete(ctx context.Context, staffID, sessionID string, transactionID uuid.UUID, invoiceNumber string) error {
	return g.record(ctx, staffID, Status{
		SessionID:     sessionID,
		State:         enums.CheckoutStateCompleted,
		TransactionID: &transactionID,
		InvoiceNumber: invoiceNumber,
	})
}

func (g *Guard) Fail(ctx context.Context, staffID, sessionID string, cause error) error {
	st := Status{SessionID: sessionID, State: enums.CheckoutStateFailed}
	if cause != nil {
		st.Error = cause.Error()
	}
	return g.record(ctx, staffID, st)
}

// Status reports idle when nothing was ever submitted or the key expired.
func (g *Guard) Status(ctx context.Context, staffID, sessionID string) (Status, error) {
	raw, err := g.store.Get(ctx, g.store.CheckoutKey(staffID, sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Status{SessionID: sessionID, State: enums.CheckoutStateIdle}, nil
		}
		return Status{}, fmt.Errorf("read checkout guard: %w", err)
	}
	return decodeStatus(raw)
}

func decodeStatus(raw string) (Status, error) {
	var st Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return Status{}, fmt.Errorf("decode checkout guard: %w", err)
	}
	return st, nil
}

func (g *Guard) record(ctx context.Context, staffID string, st Status) error {
	payload, err := g.encode(st)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, g.store.CheckoutKey(staffID, st.SessionID), payload, g.ttl)
}

func (g *Guard) encode(st Status) (string, error) {
	now := g.now().UTC()
	st.UpdatedAt = &now
	payload, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encode checkout guard: %w", err)
	}
	return string(payload), nil
}
