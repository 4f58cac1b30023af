// Package receipts renders sale receipts and repair intake slips as
// fixed-width text for thermal printers.
package receipts

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/internal/customers"
	"github.com/angelmondragon/repairshop-backend/internal/storeinfo"
	"github.com/angelmondragon/repairshop-backend/internal/transactions"
)

const (
	DefaultWidth = 32
	minWidth     = 24

	dateLayout     = "2006-01-02 15:04"
	dayLayout      = "2006-01-02"
	receiptTitle   = "SALES RECEIPT"
	intakeTitle    = "REPAIR INTAKE"
	intakeDisclaim = "Keep this slip to collect your device."
)

// Formatter lays text out for a printer of a given column width.
type Formatter struct {
	width int
	loc   *time.Location
}

// NewFormatter clamps width to something a receipt can be laid out in and
// prints times in loc (UTC when nil).
func NewFormatter(width int, loc *time.Location) Formatter {
	if width < minWidth {
		width = DefaultWidth
	}
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{width: width, loc: loc}
}

// Sale renders a receipt for a committed transaction.
func (f Formatter) Sale(store storeinfo.StoreInfoDTO, sale transactions.TransactionDTO, currency string) string {
	var b builder
	f.header(&b, store)
	b.line(f.centered(receiptTitle))
	b.line(f.rule())
	f.field(&b, "Invoice", sale.InvoiceNumber)
	f.field(&b, "Date", sale.CreatedAt.In(f.loc).Format(dateLayout))
	f.field(&b, "Customer", sale.CustomerName)
	f.field(&b, "Phone", sale.CustomerPhone)
	b.line(f.rule())

	for _, line := range sale.Lines {
		for _, part := range f.wrap(line.ProductName) {
			b.line(part)
		}
		qty := "  " + strconv.Itoa(line.Quantity) + " x " + money(line.UnitPrice)
		b.line(f.columns(qty, money(line.LineTotal))...)
	}

	b.line(f.rule())
	total := money(sale.Total)
	if currency != "" {
		total = currency + " " + total
	}
	b.line(f.columns("TOTAL", total)...)
	f.field(&b, "Payment", sale.PaymentType.Label())
	f.footer(&b, store)
	return b.String()
}

// Intake renders the slip handed to the customer at drop-off. Unlock
// credentials are never printed.
func (f Formatter) Intake(store storeinfo.StoreInfoDTO, c customers.CustomerDTO) string {
	var b builder
	f.header(&b, store)
	b.line(f.centered(intakeTitle))
	b.line(f.rule())
	f.field(&b, "Ticket", c.InvoiceNumber)
	f.field(&b, "Date", c.CreatedAt.In(f.loc).Format(dateLayout))
	b.line(f.rule())
	f.field(&b, "Customer", c.Name)
	f.field(&b, "Phone", c.Phone)
	f.field(&b, "Device", strings.TrimSpace(c.DeviceBrand+" "+c.DeviceModel))
	if c.IMEI != nil {
		f.field(&b, "IMEI", *c.IMEI)
	}
	if c.IssueDescription != "" {
		b.line("Issue:")
		for _, part := range f.wrap(c.IssueDescription) {
			b.line(part)
		}
	}
	if c.ExpectedDeliveryAt != nil {
		f.field(&b, "Expected", c.ExpectedDeliveryAt.In(f.loc).Format(dayLayout))
	}
	b.line(f.rule())
	b.line(f.columns("Estimate", money(c.EstimatedCost))...)
	b.line(f.columns("Advance", money(c.AdvancePaid))...)
	b.line(f.columns("Balance due", money(c.BalanceDue))...)
	b.line(f.rule())
	for _, part := range f.wrap(intakeDisclaim) {
		b.line(f.centered(part))
	}
	f.footer(&b, store)
	return b.String()
}

// TestPage prints the column ruler so the configured width can be checked
// against the paper.
func (f Formatter) TestPage(shop string, at time.Time) string {
	var b builder
	f.header(&b, storeinfo.StoreInfoDTO{Name: shop})
	b.line(f.centered("PRINTER TEST"))
	f.field(&b, "Date", at.In(f.loc).Format(dateLayout))
	f.field(&b, "Columns", strconv.Itoa(f.width))
	b.line(f.rule())
	var ruler strings.Builder
	for i := 1; i <= f.width; i++ {
		ruler.WriteByte(byte('0' + i%10))
	}
	b.line(ruler.String())
	b.line(f.rule())
	return b.String()
}

func (f Formatter) header(b *builder, store storeinfo.StoreInfoDTO) {
	for _, text := range []string{store.Name, store.Address, store.Phone, store.Email} {
		for _, part := range f.wrap(text) {
			b.line(f.centered(part))
		}
	}
	if store.TaxID != "" {
		for _, part := range f.wrap("Tax ID " + store.TaxID) {
			b.line(f.centered(part))
		}
	}
	b.line(f.rule())
}

func (f Formatter) footer(b *builder, store storeinfo.StoreInfoDTO) {
	if strings.TrimSpace(store.ReceiptFooter) == "" {
		return
	}
	b.line(f.rule())
	for _, part := range f.wrap(store.ReceiptFooter) {
		b.line(f.centered(part))
	}
}

func (f Formatter) field(b *builder, label, value string) {
	if value == "" {
		return
	}
	for _, part := range f.wrap(label + ": " + value) {
		b.line(part)
	}
}

func (f Formatter) rule() string {
	return strings.Repeat("-", f.width)
}

func (f Formatter) centered(text string) string {
	n := utf8.RuneCountInString(text)
	if n >= f.width {
		return text
	}
	return strings.Repeat(" ", (f.width-n)/2) + text
}

// columns puts left and right on one line, or right-aligns right on its own
// line when both do not fit.
func (f Formatter) columns(left, right string) []string {
	l, r := utf8.RuneCountInString(left), utf8.RuneCountInString(right)
	if l+r+1 <= f.width {
		return []string{left + strings.Repeat(" ", f.width-l-r) + right}
	}
	out := f.wrap(left)
	if r < f.width {
		right = strings.Repeat(" ", f.width-r) + right
	}
	return append(out, right)
}

// wrap breaks text on spaces; words longer than the width are split.
func (f Formatter) wrap(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var (
		lines   []string
		current []rune
	)
	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > f.width {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = current[:0]
			}
			lines = append(lines, string(runes[:f.width]))
			runes = runes[f.width:]
		}
		switch {
		case len(current) == 0:
			current = append(current, runes...)
		case len(current)+1+len(runes) <= f.width:
			current = append(current, ' ')
			current = append(current, runes...)
		default:
			lines = append(lines, string(current))
			current = append(current[:0], runes...)
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type builder struct {
	strings.Builder
}

func (b *builder) line(parts ...string) {
	for _, p := range parts {
		b.WriteString(strings.TrimRight(p, " "))
		b.WriteByte('\n')
	}
}
