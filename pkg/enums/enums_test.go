package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{OrderStatusCompleted, OrderStatusCancelled, true},
		{OrderStatusCompleted, OrderStatusRefundPending, true},
		{OrderStatusCompleted, OrderStatusRefunded, false},
		{OrderStatusRefundPending, OrderStatusRefunded, true},
		{OrderStatusRefundPending, OrderStatusCancelled, true},
		{OrderStatusRefundPending, OrderStatusCompleted, false},
		{OrderStatusCancelled, OrderStatusRefundPending, false},
		{OrderStatusCancelled, OrderStatusCompleted, false},
		{OrderStatusRefunded, OrderStatusCancelled, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusRefunded.IsTerminal())
	assert.False(t, OrderStatusCompleted.IsTerminal())
	assert.False(t, OrderStatus("bogus").IsTerminal())
}

func TestRefundStatusTransitions(t *testing.T) {
	assert.True(t, RefundStatusPending.CanTransitionTo(RefundStatusApproved))
	assert.True(t, RefundStatusPending.CanTransitionTo(RefundStatusRejected))
	assert.False(t, RefundStatusApproved.CanTransitionTo(RefundStatusApproved))
	assert.False(t, RefundStatusApproved.CanTransitionTo(RefundStatusRejected))
	assert.False(t, RefundStatusRejected.CanTransitionTo(RefundStatusApproved))
}

func TestActorRolePrivileges(t *testing.T) {
	assert.False(t, ActorRoleCashier.IsPrivileged())
	assert.True(t, ActorRoleAdmin.IsPrivileged())
	assert.True(t, ActorRoleOwner.IsPrivileged())
	assert.False(t, ActorRole("").IsPrivileged())
}

func TestParsePaymentMethod(t *testing.T) {
	method, err := ParsePaymentMethod("mixed")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodMixed, method)

	_, err = ParsePaymentMethod("credit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid payment method")
}

func TestBalanceTransactionTypeIsCredit(t *testing.T) {
	assert.True(t, BalanceTransactionTypeTopup.IsCredit())
	assert.True(t, BalanceTransactionTypeRefund.IsCredit())
	assert.True(t, BalanceTransactionTypeCompensation.IsCredit())
	assert.False(t, BalanceTransactionTypePayment.IsCredit())
	assert.False(t, BalanceTransactionTypeAdjust.IsCredit())
}

func TestOutboxEnums(t *testing.T) {
	eventType, err := ParseOutboxEventType("refund_approved")
	require.NoError(t, err)
	assert.Equal(t, EventRefundApproved, eventType)
	_, err = ParseOutboxEventType("order_created")
	require.Error(t, err)

	aggregate, err := ParseOutboxAggregateType("order")
	require.NoError(t, err)
	assert.True(t, aggregate.IsValid())
	assert.False(t, OutboxAggregateType("vendor_order").IsValid())

	assert.True(t, OutboxDLQReasonMaxAttempts.IsValid())
	assert.False(t, OutboxDLQErrorReason("timeout").IsValid())
}

func TestOutboxDLQErrorReason(t *testing.T) {
	r, err := ParseOutboxDLQErrorReason("unroutable")
	require.NoError(t, err)
	assert.Equal(t, OutboxDLQReasonUnroutable, r)
	assert.True(t, OutboxDLQReasonMaxAttempts.IsValid())

	_, err = ParseOutboxDLQErrorReason("gave_up")
	assert.Error(t, err)
}
