// Package notifications tells customers and the owner what happened to a
// repair or a sale. Phone contact is handed to the client as prefilled SMS and
// WhatsApp links; e-mail is sent by the worker from outbox events.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/internal/customers"
	"github.com/angelmondragon/repairshop-backend/internal/storeinfo"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
)

// ContactLinks are intents the client opens on the shop phone. Nothing is
// sent by the server and delivery is never confirmed.
type ContactLinks struct {
	CustomerID uuid.UUID          `json:"customer_id"`
	Phone      string             `json:"phone"`
	Status     enums.RepairStatus `json:"status"`
	Message    string             `json:"message"`
	SMS        string             `json:"sms"`
	WhatsApp   string             `json:"whatsapp"`
}

type customerReader interface {
	Get(ctx context.Context, id uuid.UUID) (*customers.CustomerDTO, error)
}

type storeReader interface {
	Get(ctx context.Context) (*storeinfo.StoreInfoDTO, error)
}

// ContactService builds contact links for a customer.
type ContactService interface {
	Contact(ctx context.Context, customerID uuid.UUID) (*ContactLinks, error)
}

type contactService struct {
	customers customerReader
	store     storeReader
	currency  string
}

func NewContactService(customers customerReader, store storeReader, currency string) (ContactService, error) {
	if customers == nil {
		return nil, errors.New("customer service required")
	}
	if store == nil {
		return nil, errors.New("store info service required")
	}
	return &contactService{customers: customers, store: store, currency: currency}, nil
}

func (s *contactService) Contact(ctx context.Context, customerID uuid.UUID) (*ContactLinks, error) {
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	store, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return BuildContactLinks(store.Name, s.currency, *customer)
}

// BuildContactLinks prefills the status message for the customer's current
// repair state.
func BuildContactLinks(shopName, currency string, customer customers.CustomerDTO) (*ContactLinks, error) {
	dial := dialable(customer.Phone)
	digits := strings.TrimPrefix(dial, "+")
	if digits == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone has no digits")
	}

	message := StatusMessage(shopName, currency, customer)
	return &ContactLinks{
		CustomerID: customer.ID,
		Phone:      dial,
		Status:     customer.Status,
		Message:    message,
		SMS:        "sms:" + dial + "?body=" + escape(message),
		WhatsApp:   "https://wa.me/" + digits + "?text=" + escape(message),
	}, nil
}

// StatusMessage is the text sent to a customer about their device.
func StatusMessage(shopName, currency string, customer customers.CustomerDTO) string {
	name := firstName(customer.Name)
	device := deviceLabel(customer)
	shop := strings.TrimSpace(shopName)
	if shop == "" {
		shop = "the shop"
	}

	switch customer.Status {
	case enums.RepairStatusReceived:
		return fmt.Sprintf("Hi %s, %s has received your %s (ticket %s). We will keep you posted.", name, shop, device, customer.InvoiceNumber)
	case enums.RepairStatusDiagnosing:
		return fmt.Sprintf("Hi %s, we are diagnosing your %s (ticket %s).", name, device, customer.InvoiceNumber)
	case enums.RepairStatusInRepair:
		return fmt.Sprintf("Hi %s, your %s is being repaired (ticket %s).", name, device, customer.InvoiceNumber)
	case enums.RepairStatusReady:
		msg := fmt.Sprintf("Hi %s, your %s is ready for pickup at %s (ticket %s).", name, device, shop, customer.InvoiceNumber)
		if customer.BalanceDue.IsPositive() {
			msg += fmt.Sprintf(" Balance due: %s %s.", customer.BalanceDue.StringFixed(2), currency)
		}
		return msg
	case enums.RepairStatusDelivered:
		return fmt.Sprintf("Hi %s, thank you for choosing %s. Your %s has been delivered (ticket %s).", name, shop, device, customer.InvoiceNumber)
	case enums.RepairStatusCancelled:
		return fmt.Sprintf("Hi %s, the repair of your %s was cancelled (ticket %s). Please collect it at %s.", name, device, customer.InvoiceNumber, shop)
	default:
		return fmt.Sprintf("Hi %s, this is %s about ticket %s.", name, shop, customer.InvoiceNumber)
	}
}

// dialable keeps digits and a leading plus.
func dialable(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escape percent-encodes spaces as %20; messaging apps show a literal '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

func deviceLabel(customer customers.CustomerDTO) string {
	label := strings.TrimSpace(strings.TrimSpace(customer.DeviceBrand) + " " + strings.TrimSpace(customer.DeviceModel))
	if label == "" {
		return "device"
	}
	return label
}
