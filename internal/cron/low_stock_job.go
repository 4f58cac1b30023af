package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/payloads"
)

const lowStockScanLimit = 200

// lowStockNamespace derives alert ids so one set of products alerts once per day.
var lowStockNamespace = uuid.MustParse("7d4c1c1e-2f7a-4b57-9a43-1f0c6f1b9a01")

type LowStockJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Products lowStockLister
	Outbox   outboxEmitter
}

type lowStockLister interface {
	ListLowStock(ctx context.Context, limit int) ([]models.Product, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NewLowStockJob emits low_stock_detected when products sit at or under their
// threshold.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &lowStockJob{
		logg:     params.Logger,
		db:       params.DB,
		products: params.Products,
		outbox:   params.Outbox,
		now:      time.Now,
	}, nil
}

type lowStockJob struct {
	logg     *logger.Logger
	db       txRunner
	products lowStockLister
	outbox   outboxEmitter
	now      func() time.Time
}

func (j *lowStockJob) Name() string { return "low-stock" }

func (j *lowStockJob) Run(ctx context.Context) error {
	products, err := j.products.ListLowStock(ctx, lowStockScanLimit)
	if err != nil {
		return fmt.Errorf("query low stock: %w", err)
	}
	if len(products) == 0 {
		j.logg.Info(ctx, "no products under threshold")
		return nil
	}

	now := j.now().UTC()
	items := make([]payloads.LowStockItem, 0, len(products))
	for _, p := range products {
		items = append(items, payloads.LowStockItem{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Quantity:  p.Quantity,
			Threshold: p.LowStockThreshold,
		})
	}

	alertID := lowStockAlertID(now, items)
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLowStockDetected,
			AggregateType: enums.AggregateProduct,
			AggregateID:   alertID,
			Data: payloads.LowStockDetectedEvent{
				Products:   items,
				DetectedAt: now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return fmt.Errorf("queue low stock event: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"count":    len(items),
		"alert_id": alertID.String(),
	})
	j.logg.Info(logCtx, "low stock scan complete")
	return nil
}

// lowStockAlertID is stable for the same UTC day and product set.
func lowStockAlertID(now time.Time, items []payloads.LowStockItem) uuid.UUID {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID.String())
	}
	sort.Strings(ids)
	return uuid.NewSHA1(lowStockNamespace, []byte(now.Format("2006-01-02")+":"+strings.Join(ids, ",")))
}
