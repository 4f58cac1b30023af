// Package invoices issues gapless invoice numbers from a database counter.
package invoices

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
)

const digits = 6

// Allocator hands out invoice numbers for one series. Next must run inside
// the transaction that persists the document so a rollback releases the number.
type Allocator struct {
	db     *gorm.DB
	prefix string
	series string
}

func NewAllocator(conn *gorm.DB, cfg config.InvoiceConfig) (*Allocator, error) {
	if conn == nil {
		return nil, fmt.Errorf("invoice allocator requires db")
	}
	series := strings.TrimSpace(cfg.Series)
	if series == "" {
		series = "default"
	}
	return &Allocator{db: conn, prefix: cfg.Prefix, series: series}, nil
}

// Next increments the counter row and returns the formatted number. The
// UPDATE holds the row lock until tx commits, serialising concurrent sales.
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("invoice allocation requires a transaction")
	}
	tx = tx.WithContext(ctx)

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.InvoiceCounter{Series: a.series}).Error; err != nil {
		return "", fmt.Errorf("ensure invoice series: %w", err)
	}

	if err := tx.Model(&models.InvoiceCounter{}).
		Where("series = ?", a.series).
		Update("last_value", gorm.Expr("last_value + 1")).Error; err != nil {
		return "", fmt.Errorf("increment invoice counter: %w", err)
	}

	var counter models.InvoiceCounter
	if err := tx.First(&counter, "series = ?", a.series).Error; err != nil {
		return "", fmt.Errorf("read invoice counter: %w", err)
	}
	return Format(a.prefix, counter.LastValue), nil
}

// Peek returns the number the next allocation would issue without reserving it.
func (a *Allocator) Peek(ctx context.Context) (string, error) {
	var counter models.InvoiceCounter
	res := a.db.WithContext(ctx).Where("series = ?", a.series).Limit(1).Find(&counter)
	if res.Error != nil {
		return "", fmt.Errorf("peek invoice counter: %w", res.Error)
	}
	return Format(a.prefix, counter.LastValue+1), nil
}

// Format renders n with prefix and at least six zero-padded digits.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, digits, n)
}
