package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{SalesTopic: "rs-sales", NotificationTopic: " rs-notify "})
	require.NoError(t, err)
	return reg
}

func sealed(t *testing.T, version int, data any) json.RawMessage {
	t.Helper()
	raw, err := outbox.Seal(uuid.New(), version, time.Now(), nil, data)
	require.NoError(t, err)
	return raw
}

func TestResolveDecodesSale(t *testing.T) {
	reg := testRegistry(t)
	txID := uuid.New()
	row := models.OutboxEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txID,
		Payload: sealed(t, 1, payloads.SaleCompletedEvent{
			TransactionID: txID,
			InvoiceNumber: "INV-000007",
			PaymentType:   enums.PaymentTypeCash,
			Total:         decimal.RequireFromString("49.90"),
			Lines:         []payloads.SaleLine{{ProductID: uuid.New(), Quantity: 2}},
		}),
	}

	resolved, err := reg.Resolve(row)
	require.NoError(t, err)
	assert.Equal(t, EventDescriptor{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateTransaction,
		Topic:         "rs-sales",
	}, resolved.Descriptor)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())

	sale, ok := resolved.Payload.(*payloads.SaleCompletedEvent)
	require.True(t, ok, "payload is %T", resolved.Payload)
	assert.Equal(t, "INV-000007", sale.InvoiceNumber)
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("49.90")))
	assert.Len(t, sale.Lines, 1)
}

func TestResolveRoutesNotificationsAndTrimsTopics(t *testing.T) {
	reg := testRegistry(t)
	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventCustomerDeviceReady,
		AggregateType: enums.AggregateCustomer,
		AggregateID:   uuid.New(),
		Payload:       sealed(t, 1, map[string]string{"name": "Ana", "device_model": "iPhone 12"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "rs-notify", resolved.Descriptor.Topic)
	assert.Equal(t, []string{"rs-notify", "rs-sales"}, reg.Topics())
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg := testRegistry(t)
	good := func() models.OutboxEvent {
		return models.OutboxEvent{
			EventType:     enums.EventLowStockDetected,
			AggregateType: enums.AggregateProduct,
			AggregateID:   uuid.New(),
			Payload:       sealed(t, 1, payloads.LowStockDetectedEvent{}),
		}
	}

	cases := map[string]func(*models.OutboxEvent){
		"unknown type":       func(e *models.OutboxEvent) { e.EventType = "device_scrapped" },
		"wrong aggregate":    func(e *models.OutboxEvent) { e.AggregateType = enums.AggregateCustomer },
		"no aggregate id":    func(e *models.OutboxEvent) { e.AggregateID = uuid.Nil },
		"not an envelope":    func(e *models.OutboxEvent) { e.Payload = json.RawMessage(`[1,2]`) },
		"null data":          func(e *models.OutboxEvent) { e.Payload = json.RawMessage(`{"version":1,"data":null}`) },
		"unknown version":    func(e *models.OutboxEvent) { e.Payload = sealed(t, 7, payloads.LowStockDetectedEvent{}) },
		"data of wrong type": func(e *models.OutboxEvent) { e.Payload = sealed(t, 1, map[string]string{"products": "nope"}) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			row := good()
			mutate(&row)
			_, err := reg.Resolve(row)
			require.Error(t, err)
			assert.True(t, IsNonRetryable(err), "got %T: %v", err, err)
		})
	}
}

func TestNewEventRegistryRequiresBothTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"})
	assert.EqualError(t, err, "sales topic is required")
	_, err = NewEventRegistry(config.PubSubConfig{SalesTopic: "s", NotificationTopic: "  "})
	assert.EqualError(t, err, "notification topic is required")
}

func TestDecoderRegistryIsVersioned(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventCustomerDeviceReady, 2, func(data json.RawMessage) (any, error) {
		return string(data), nil
	})

	out, err := reg.Decode(enums.EventCustomerDeviceReady, 2, json.RawMessage(`"v2"`))
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, out)

	_, err = reg.Decode(enums.EventCustomerDeviceReady, 1, json.RawMessage(`{}`))
	assert.EqualError(t, err, "no decoder for customer_device_ready v1")
}

func TestDefaultDecodersCoverTheCatalog(t *testing.T) {
	reg := DefaultDecoders()
	for _, r := range catalog {
		_, err := reg.Decode(r.event, r.version, json.RawMessage(`{}`))
		assert.NoError(t, err, r.event)
	}
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	cause := errors.New("customer has no email")
	err := NewNonRetryableError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "customer has no email", err.Error())
	assert.Equal(t, "non-retryable error", NonRetryableError{}.Error())
	assert.False(t, IsNonRetryable(cause))
}
