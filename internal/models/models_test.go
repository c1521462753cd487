package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[TransactionStatus][]TransactionStatus{
		TransactionPending:  {TransactionAwaiting, TransactionExpired},
		TransactionAwaiting: {TransactionVerified, TransactionRejected, TransactionExpired},
	}

	all := []TransactionStatus{
		TransactionPending, TransactionAwaiting, TransactionVerified,
		TransactionRejected, TransactionExpired,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransactionStatusTerminal(t *testing.T) {
	assert.False(t, TransactionPending.Terminal())
	assert.False(t, TransactionAwaiting.Terminal())
	assert.True(t, TransactionVerified.Terminal())
	assert.True(t, TransactionRejected.Terminal())
	assert.True(t, TransactionExpired.Terminal())
}

func TestCanFulfillDelivery(t *testing.T) {
	cases := []struct {
		from, to FulfillmentStatus
		want     bool
	}{
		{FulfillmentPending, FulfillmentShipped, true},
		{FulfillmentPending, FulfillmentCancelled, true},
		{FulfillmentPending, FulfillmentDelivered, false},
		{FulfillmentPending, FulfillmentCompleted, false},
		{FulfillmentShipped, FulfillmentDelivered, true},
		{FulfillmentShipped, FulfillmentCancelled, false},
		{FulfillmentShipped, FulfillmentCompleted, false},
		{FulfillmentDelivered, FulfillmentCompleted, true},
		{FulfillmentDelivered, FulfillmentShipped, false},
		{FulfillmentCompleted, FulfillmentCancelled, false},
		{FulfillmentCancelled, FulfillmentPending, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanFulfill(DeliveryShipping, tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanFulfillDirect(t *testing.T) {
	cases := []struct {
		from, to FulfillmentStatus
		want     bool
	}{
		{FulfillmentPending, FulfillmentCompleted, true},
		{FulfillmentPending, FulfillmentCancelled, true},
		{FulfillmentPending, FulfillmentShipped, false},
		{FulfillmentPending, FulfillmentDelivered, false},
		{FulfillmentCompleted, FulfillmentCancelled, false},
		{FulfillmentCancelled, FulfillmentCompleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanFulfill(DeliveryDirect, tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransactionLapsed(t *testing.T) {
	now := time.Now()

	fresh := &Transaction{Status: TransactionAwaiting, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, fresh.Lapsed(now))

	stale := &Transaction{Status: TransactionAwaiting, ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, stale.Lapsed(now))

	// Terminal transactions never lapse, however old.
	verified := &Transaction{Status: TransactionVerified, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, verified.Lapsed(now))

	rejected := &Transaction{Status: TransactionRejected, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, rejected.Lapsed(now))
}

func TestItemsTotal(t *testing.T) {
	assert.Equal(t, int64(0), ItemsTotal(nil))

	items := []TransactionItem{
		{Quantity: 2, UnitPrice: 1000},
		{Quantity: 1, UnitPrice: 500},
		{Quantity: 3, UnitPrice: 250},
	}
	assert.Equal(t, int64(2*1000+500+3*250), ItemsTotal(items))
}
