// Package pagination implements newest-first keyset paging over
// (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrInvalidCursor marks a cursor the client tampered with or truncated.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is the ?limit and ?cursor pair a list endpoint accepts.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Page is one page of rows and, when more exist, the cursor for the next.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer asks for one extra row so BuildPage can tell whether a next
// page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Keyset is a gorm scope that orders newest first, skips past params.Cursor
// and applies the buffered limit. A bad cursor surfaces from Find as
// ErrInvalidCursor.
func Keyset(params Params) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		cursor, err := ParseCursor(params.Cursor)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		if cursor != nil {
			db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order("created_at DESC").Order("id DESC").Limit(LimitWithBuffer(params.Limit))
	}
}

// BuildPage drops the buffered extra row and derives the next cursor from the
// last row kept.
func BuildPage[T any](rows []T, limit int, cursorOf func(T) Cursor) Page[T] {
	limit = NormalizeLimit(limit)
	if rows == nil {
		rows = []T{}
	}
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}
	kept := rows[:limit]
	return Page[T]{Items: kept, NextCursor: EncodeCursor(cursorOf(kept[len(kept)-1]))}
}

func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for an empty value.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	at, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	rowID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: rowID}, nil
}
