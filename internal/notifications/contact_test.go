package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/internal/customers"
	"github.com/angelmondragon/repairshop-backend/internal/storeinfo"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
)

func readyCustomer() customers.CustomerDTO {
	return customers.CustomerDTO{
		ID:            uuid.New(),
		InvoiceNumber: "INV-000031",
		Name:          "Dana Reyes",
		Phone:         "+1 (555) 010-2030",
		DeviceBrand:   "Google",
		DeviceModel:   "Pixel 7",
		EstimatedCost: decimal.RequireFromString("120"),
		AdvancePaid:   decimal.RequireFromString("40"),
		BalanceDue:    decimal.RequireFromString("80"),
		Status:        enums.RepairStatusReady,
	}
}

func TestBuildContactLinks(t *testing.T) {
	links, err := BuildContactLinks("Fix It Corner", "USD", readyCustomer())
	require.NoError(t, err)

	assert.Equal(t, "+15550102030", links.Phone)
	assert.Equal(t, "Hi Dana, your Google Pixel 7 is ready for pickup at Fix It Corner (ticket INV-000031). Balance due: 80.00 USD.", links.Message)
	assert.Equal(t, "sms:+15550102030?body=Hi%20Dana%2C%20your%20Google%20Pixel%207%20is%20ready%20for%20pickup%20at%20Fix%20It%20Corner%20%28ticket%20INV-000031%29.%20Balance%20due%3A%2080.00%20USD.", links.SMS)
	assert.Contains(t, links.WhatsApp, "https://wa.me/15550102030?text=Hi%20Dana")
	assert.NotContains(t, links.WhatsApp, "+")
}

func TestStatusMessageCoversEveryStatus(t *testing.T) {
	customer := readyCustomer()
	seen := map[string]bool{}
	for _, status := range []enums.RepairStatus{
		enums.RepairStatusReceived,
		enums.RepairStatusDiagnosing,
		enums.RepairStatusInRepair,
		enums.RepairStatusReady,
		enums.RepairStatusDelivered,
		enums.RepairStatusCancelled,
	} {
		customer.Status = status
		msg := StatusMessage("Fix It Corner", "USD", customer)
		assert.Contains(t, msg, "INV-000031", status)
		assert.False(t, seen[msg], "duplicate message for %s", status)
		seen[msg] = true
	}
}

func TestStatusMessageOmitsSettledBalance(t *testing.T) {
	customer := readyCustomer()
	customer.BalanceDue = decimal.Zero
	assert.NotContains(t, StatusMessage("Shop", "USD", customer), "Balance due")
}

func TestBuildContactLinksRejectsPhoneWithoutDigits(t *testing.T) {
	customer := readyCustomer()
	customer.Phone = "n/a"
	_, err := BuildContactLinks("Shop", "USD", customer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestContactServiceUsesStoreName(t *testing.T) {
	customer := readyCustomer()
	svc, err := NewContactService(
		fakeCustomers{customer: &customer},
		fakeStore{info: &storeinfo.StoreInfoDTO{Name: "Corner Repairs"}},
		"EUR",
	)
	require.NoError(t, err)

	links, err := svc.Contact(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Contains(t, links.Message, "Corner Repairs")
	assert.Contains(t, links.Message, "80.00 EUR")
}

func TestContactServicePropagatesNotFound(t *testing.T) {
	svc, err := NewContactService(fakeCustomers{}, fakeStore{info: &storeinfo.StoreInfoDTO{}}, "USD")
	require.NoError(t, err)

	_, err = svc.Contact(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

type fakeCustomers struct {
	customer *customers.CustomerDTO
}

func (f fakeCustomers) Get(_ context.Context, id uuid.UUID) (*customers.CustomerDTO, error) {
	if f.customer == nil || f.customer.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return f.customer, nil
}

type fakeStore struct {
	info *storeinfo.StoreInfoDTO
	err  error
}

func (f fakeStore) Get(context.Context) (*storeinfo.StoreInfoDTO, error) {
	return f.info, f.err
}
