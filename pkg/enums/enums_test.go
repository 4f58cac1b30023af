package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentType(t *testing.T) {
	got, err := ParsePaymentType(" Cash ")
	require.NoError(t, err)
	assert.Equal(t, PaymentTypeCash, got)

	_, err = ParsePaymentType("crypto")
	assert.Error(t, err)
}

func TestPaymentTypeLabel(t *testing.T) {
	assert.Equal(t, "Cash", PaymentTypeCash.Label())
	assert.Equal(t, "Card", PaymentTypeCard.Label())
	assert.Equal(t, "Bank transfer", PaymentTypeBankTransfer.Label())
	assert.Equal(t, "Mobile wallet", PaymentTypeMobileWallet.Label())
}

func TestRepairStatusTransitions(t *testing.T) {
	assert.True(t, RepairStatusReceived.CanTransitionTo(RepairStatusInRepair))
	assert.True(t, RepairStatusInRepair.CanTransitionTo(RepairStatusReady))
	assert.True(t, RepairStatusReady.CanTransitionTo(RepairStatusDelivered))
	assert.False(t, RepairStatusReceived.CanTransitionTo(RepairStatusDelivered))
	assert.False(t, RepairStatusDelivered.CanTransitionTo(RepairStatusReady))
	assert.False(t, RepairStatusCancelled.CanTransitionTo(RepairStatusReceived))
	assert.True(t, RepairStatusCancelled.IsTerminal())
}

func TestParseOutboxEventType(t *testing.T) {
	got, err := ParseOutboxEventType("sale_completed")
	require.NoError(t, err)
	assert.Equal(t, EventSaleCompleted, got)

	_, err = ParseOutboxEventType("order_created")
	assert.Error(t, err)
}

func TestParseStaffRoleAndCheckoutState(t *testing.T) {
	role, err := ParseStaffRole("cashier")
	require.NoError(t, err)
	assert.True(t, role.IsValid())

	_, err = ParseStaffRole("admin")
	assert.Error(t, err)

	state, err := ParseCheckoutState("submitting")
	require.NoError(t, err)
	assert.Equal(t, CheckoutStateSubmitting, state)
}

func TestOutboxDLQErrorReasonIsValid(t *testing.T) {
	for _, r := range []OutboxDLQErrorReason{
		OutboxDLQReasonMaxAttempts,
		OutboxDLQReasonNonRetryable,
		OutboxDLQReasonUndecodable,
		OutboxDLQReasonUnrouted,
	} {
		assert.True(t, r.IsValid(), r.String())
	}
	assert.False(t, OutboxDLQErrorReason("gave_up").IsValid())
}
