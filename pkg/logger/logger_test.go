package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithInvoiceNumber(ctx, "INV-000042")
	log.Error(ctx, "boom", errors.New("boom"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "INV-000042", entry["invoice_number"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestLoggerWarnStackToggle(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")

	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, WarnStack: true}).Warn(context.Background(), "warny")
	assert.Contains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf}).Warn(context.Background(), "warny")
	assert.NotContains(t, decodeLine(t, buf), "stack")
}

func TestLoggerRespectsLevel(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.WarnLevel, Output: buf})

	log.Info(context.Background(), "hidden")
	log.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}

func TestContextFieldsStack(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	base := log.WithStaff(context.Background(), "staff-1", "cashier")
	child := log.WithFields(base, map[string]any{"cart_items": 3, "payment_type": "card"})
	log.Info(child, "checkout started")
	log.Info(base, "parent unchanged")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "staff-1", first["user_id"])
	assert.Equal(t, "cashier", first["actor_role"])
	assert.EqualValues(t, 3, first["cart_items"])
	assert.Equal(t, "staff-1", second["user_id"])
	assert.NotContains(t, second, "cart_items")
}

func TestErrorWithoutCause(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Output: buf}).Error(context.Background(), "no cause", nil)

	entry := decodeLine(t, buf)
	assert.NotContains(t, entry, "error")
	assert.Equal(t, "no cause", entry["message"])
}
