package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/repairshop-backend/internal/consumers"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/mail"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/registry"
)

// ConsumerName scopes idempotency keys for e-mail delivery.
const ConsumerName = "mail-notifications"

type ConsumerParams struct {
	Sender     mail.Sender
	Store      storeReader
	ShopName   string
	OwnerEmail string
	Currency   string
	Logger     *logger.Logger
}

// Consumer turns outbox events into e-mails.
type Consumer struct {
	sender     mail.Sender
	store      storeReader
	shopName   string
	ownerEmail string
	currency   string
	logg       *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		sender:     params.Sender,
		store:      params.Store,
		shopName:   strings.TrimSpace(params.ShopName),
		ownerEmail: strings.TrimSpace(params.OwnerEmail),
		currency:   params.Currency,
		logg:       params.Logger,
	}, nil
}

var _ consumers.Handler = (*Consumer)(nil)

func (c *Consumer) Handle(ctx context.Context, event consumers.Event) error {
	msg, ok, err := c.compose(ctx, event)
	if err != nil {
		return registry.NewNonRetryableError(err)
	}
	if !ok {
		c.logg.Info(ctx, "no recipient for event")
		return nil
	}

	ctx = c.logg.WithField(ctx, "subject", msg.Subject)
	if err := c.sender.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrDisabled) {
			return nil
		}
		var status *mail.StatusError
		if errors.As(err, &status) && !status.Retryable() {
			return registry.NewNonRetryableError(err)
		}
		return err
	}
	c.logg.Info(ctx, "notification e-mail sent")
	return nil
}

func (c *Consumer) compose(ctx context.Context, event consumers.Event) (mail.Message, bool, error) {
	shop := c.resolveShopName(ctx)
	switch event.EventType {
	case enums.EventCustomerDeviceReady:
		p, ok := event.Payload.(*payloads.CustomerDeviceReadyEvent)
		if !ok || p == nil {
			return mail.Message{}, false, fmt.Errorf("unexpected payload %T", event.Payload)
		}
		msg, ok := DeviceReadyEmail(shop, c.currency, *p)
		return msg, ok, nil
	case enums.EventSaleCompleted:
		p, ok := event.Payload.(*payloads.SaleCompletedEvent)
		if !ok || p == nil {
			return mail.Message{}, false, fmt.Errorf("unexpected payload %T", event.Payload)
		}
		msg, ok := SaleReceiptEmail(shop, *p)
		return msg, ok, nil
	case enums.EventLowStockDetected:
		p, ok := event.Payload.(*payloads.LowStockDetectedEvent)
		if !ok || p == nil {
			return mail.Message{}, false, fmt.Errorf("unexpected payload %T", event.Payload)
		}
		msg, ok := LowStockEmail(shop, c.ownerEmail, *p)
		return msg, ok, nil
	default:
		return mail.Message{}, false, nil
	}
}

func (c *Consumer) resolveShopName(ctx context.Context) string {
	if c.store != nil {
		info, err := c.store.Get(ctx)
		if err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "store info lookup failed")
		} else if info != nil && strings.TrimSpace(info.Name) != "" {
			return strings.TrimSpace(info.Name)
		}
	}
	return c.shopName
}
