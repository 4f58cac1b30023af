package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

func newBufferedQueryLogger(slow time.Duration) (gormlogger.Interface, *bytes.Buffer) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})
	return newQueryLogger(logg, slow), &buf
}

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	ql, buf := newBufferedQueryLogger(time.Millisecond)
	sql := func() (string, int64) { return "SELECT * FROM products", 3 }

	ql.Trace(context.Background(), time.Now(), sql, nil)
	assert.Zero(t, buf.Len(), "fast statements stay quiet")

	ql.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), "SELECT * FROM products")
}

func TestQueryLoggerSkipsNotFound(t *testing.T) {
	ql, buf := newBufferedQueryLogger(0)
	sql := func() (string, int64) { return "SELECT * FROM customers", 0 }

	ql.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Zero(t, buf.Len())

	ql.Trace(context.Background(), time.Now(), sql, errors.New("relation does not exist"))
	assert.Contains(t, buf.String(), "query failed")
}

func TestQueryLoggerWithoutLoggerDiscards(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
