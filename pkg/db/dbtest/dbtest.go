// Package dbtest opens throwaway sqlite databases for repository tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
)

var seq atomic.Int64

// AllModels lists every table the service owns.
func AllModels() []any {
	return []any{
		&models.Product{},
		&models.Customer{},
		&models.Transaction{},
		&models.TransactionLine{},
		&models.InvoiceCounter{},
		&models.StoreInfo{},
		&models.Note{},
		&models.StaffUser{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// Open returns an isolated in-memory database migrated with the given models,
// or every model when none are passed.
func Open(t testing.TB, migrate ...any) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(migrate) == 0 {
		migrate = AllModels()
	}
	if err := conn.AutoMigrate(migrate...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}
