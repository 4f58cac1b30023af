package analytics

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/angelmondragon/repairshop-backend/internal/consumers"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/registry"
)

// ConsumerName scopes idempotency keys for the sales warehouse feed.
const ConsumerName = "analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Consumer streams completed sales into BigQuery, one row per sold line.
type Consumer struct {
	client tableInserter
	table  string
	logg   *logger.Logger
}

// NewConsumer builds a new analytics consumer.
func NewConsumer(client tableInserter, table string, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client: client,
		table:  strings.TrimSpace(table),
		logg:   logg,
	}, nil
}

var _ consumers.Handler = (*Consumer)(nil)

// Handle ingests sale_completed events and ignores everything else.
func (c *Consumer) Handle(ctx context.Context, event consumers.Event) error {
	if event.EventType != enums.EventSaleCompleted {
		c.logg.Info(ctx, "event not handled by analytics consumer")
		return nil
	}
	sale, ok := event.Payload.(*payloads.SaleCompletedEvent)
	if !ok || sale == nil {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T", event.Payload))
	}

	rows := buildRows(event, sale)
	if len(rows) == 0 {
		c.logg.Warn(ctx, "sale has no lines")
		return nil
	}
	if err := c.client.InsertRows(ctx, c.table, rows); err != nil {
		return fmt.Errorf("insert sale lines: %w", err)
	}

	c.logg.Info(c.logg.WithField(ctx, "rows", len(rows)), "sale ingested")
	return nil
}

type saleLineRow struct {
	EventID       string    `bigquery:"event_id"`
	TransactionID string    `bigquery:"transaction_id"`
	InvoiceNumber string    `bigquery:"invoice_number"`
	LineNumber    int       `bigquery:"line_number"`
	ProductID     string    `bigquery:"product_id"`
	ProductName   string    `bigquery:"product_name"`
	Quantity      int       `bigquery:"quantity"`
	UnitPrice     *big.Rat  `bigquery:"unit_price"`
	LineTotal     *big.Rat  `bigquery:"line_total"`
	SaleTotal     *big.Rat  `bigquery:"sale_total"`
	Currency      string    `bigquery:"currency"`
	PaymentType   string    `bigquery:"payment_type"`
	StaffID       *string   `bigquery:"staff_id"`
	CompletedAt   time.Time `bigquery:"completed_at"`
	IngestedAt    time.Time `bigquery:"ingested_at"`
}

func buildRows(event consumers.Event, sale *payloads.SaleCompletedEvent) []any {
	var staffID *string
	if sale.StaffID != nil {
		id := sale.StaffID.String()
		staffID = &id
	}
	completedAt := sale.CompletedAt.UTC()
	if completedAt.IsZero() {
		completedAt = event.OccurredAt
	}
	now := time.Now().UTC()

	rows := make([]any, 0, len(sale.Lines))
	for i, line := range sale.Lines {
		rows = append(rows, &saleLineRow{
			EventID:       event.EventID.String(),
			TransactionID: sale.TransactionID.String(),
			InvoiceNumber: sale.InvoiceNumber,
			LineNumber:    i + 1,
			ProductID:     line.ProductID.String(),
			ProductName:   line.ProductName,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice.Rat(),
			LineTotal:     line.LineTotal.Rat(),
			SaleTotal:     sale.Total.Rat(),
			Currency:      sale.Currency,
			PaymentType:   string(sale.PaymentType),
			StaffID:       staffID,
			CompletedAt:   completedAt,
			IngestedAt:    now,
		})
	}
	return rows
}
