package notifications

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/repairshop-backend/pkg/mail"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/payloads"
)

// DeviceReadyEmail returns false when the customer left no address.
func DeviceReadyEmail(shop, currency string, p payloads.CustomerDeviceReadyEvent) (mail.Message, bool) {
	to := strings.TrimSpace(p.Email)
	if to == "" {
		return mail.Message{}, false
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", firstName(p.Name))
	fmt.Fprintf(&body, "Your %s is ready for pickup at %s.\n", orDefault(p.DeviceModel, "device"), shop)
	fmt.Fprintf(&body, "Ticket: %s\n", p.InvoiceNumber)
	if p.BalanceDue.IsPositive() {
		fmt.Fprintf(&body, "Balance due: %s %s\n", p.BalanceDue.StringFixed(2), currency)
	}
	fmt.Fprintf(&body, "\n%s\n", shop)

	return mail.Message{
		To:      to,
		ToName:  p.Name,
		Subject: fmt.Sprintf("Your %s is ready (%s)", orDefault(p.DeviceModel, "device"), p.InvoiceNumber),
		Text:    body.String(),
	}, true
}

// SaleReceiptEmail returns false for walk-in sales without an address.
func SaleReceiptEmail(shop string, p payloads.SaleCompletedEvent) (mail.Message, bool) {
	to := strings.TrimSpace(p.CustomerEmail)
	if to == "" {
		return mail.Message{}, false
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\nThank you for your purchase at %s.\n\n", firstName(p.CustomerName), shop)
	fmt.Fprintf(&body, "Invoice: %s\n", p.InvoiceNumber)
	for _, line := range p.Lines {
		fmt.Fprintf(&body, "%d x %s  %s\n", line.Quantity, line.ProductName, line.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&body, "Total: %s %s\n", p.Total.StringFixed(2), p.Currency)
	fmt.Fprintf(&body, "Paid by: %s\n", p.PaymentType.Label())

	return mail.Message{
		To:      to,
		ToName:  p.CustomerName,
		Subject: fmt.Sprintf("Receipt %s from %s", p.InvoiceNumber, shop),
		Text:    body.String(),
	}, true
}

// LowStockEmail alerts the owner. It returns false without an owner address
// or an empty product list.
func LowStockEmail(shop, owner string, p payloads.LowStockDetectedEvent) (mail.Message, bool) {
	if strings.TrimSpace(owner) == "" || len(p.Products) == 0 {
		return mail.Message{}, false
	}
	var body strings.Builder
	fmt.Fprintf(&body, "%d product(s) at %s are at or below their reorder threshold:\n\n", len(p.Products), shop)
	for _, item := range p.Products {
		fmt.Fprintf(&body, "- %s (%s): %d left, threshold %d\n", item.Name, orDefault(item.SKU, "no sku"), item.Quantity, item.Threshold)
	}
	return mail.Message{
		To:      strings.TrimSpace(owner),
		Subject: fmt.Sprintf("Low stock: %d product(s)", len(p.Products)),
		Text:    body.String(),
	}, true
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
