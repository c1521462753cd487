package service

import (
	"context"
	"testing"
	"time"

	"verification-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(st *memStore, id string, mode models.DeliveryMode, status models.FulfillmentStatus) {
	st.orders[id] = &models.Order{
		ID:              id,
		OrderNumber:     "ORD-20240101000000-" + id,
		TransactionID:   txnID,
		TenantID:        tenantID,
		CustomerID:      customerUser,
		ProductID:       "product-a",
		Quantity:        2,
		PriceAtPurchase: 1000,
		TotalAmount:     2000,
		Status:          status,
		DeliveryMode:    mode,
		CreatedAt:       time.Now(),
	}
	st.sales[id] = &models.Sale{
		ID:            id + "-sale",
		SaleNumber:    "SAL-20240101000000-" + id,
		OrderID:       id,
		TransactionID: txnID,
		TenantID:      tenantID,
		ProductID:     "product-a",
		CustomerID:    customerUser,
		Quantity:      2,
		PricePerUnit:  1000,
		TotalAmount:   2000,
		Status:        status,
	}
}

func newFulfillmentFixture(t *testing.T) (*memStore, *fakeNotifier, *FulfillmentService) {
	t.Helper()

	st := newMemStore()
	st.tenants[tenantID] = &models.Tenant{
		ID: tenantID, IsVerified: true, VerificationStatus: models.VerificationPhysical,
	}
	st.tenants[gatedTenant] = &models.Tenant{
		ID: gatedTenant, IsVerified: true, VerificationStatus: models.VerificationPending,
	}
	st.actors[tenantActor] = &models.Actor{ID: tenantActor, Role: models.RoleTenant, TenantID: tenantID}
	st.actors[gatedActor] = &models.Actor{ID: gatedActor, Role: models.RoleTenant, TenantID: gatedTenant}
	st.actors[adminActor] = &models.Actor{ID: adminActor, Role: models.RoleSuperAdmin}
	st.actors[customerUser] = &models.Actor{ID: customerUser, Role: models.RoleCustomer}

	notifier := &fakeNotifier{}
	return st, notifier, NewFulfillmentService(st, notifier)
}

func assertSaleParity(t *testing.T, st *memStore, orderID string) {
	t.Helper()
	order, _ := st.GetOrder(context.Background(), orderID)
	sale, _ := st.GetSaleByOrderID(context.Background(), orderID)
	require.NotNil(t, order)
	require.NotNil(t, sale)
	assert.Equal(t, order.Status, sale.Status)
}

func TestDeliveryFulfillmentFlow(t *testing.T) {
	st, notifier, svc := newFulfillmentFixture(t)
	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)
	ctx := context.Background()

	order, err := svc.UpdateOrderStatus(ctx, "order-1", tenantActor, models.FulfillmentShipped)
	require.NoError(t, err)
	assert.Equal(t, models.FulfillmentShipped, order.Status)
	assert.NotNil(t, order.ShippedAt)
	assertSaleParity(t, st, "order-1")

	order, err = svc.UpdateOrderStatus(ctx, "order-1", tenantActor, models.FulfillmentDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.FulfillmentDelivered, order.Status)
	assert.NotNil(t, order.DeliveredAt)
	assertSaleParity(t, st, "order-1")

	// Receipt confirmation comes from the customer and sets the flag.
	order, err = svc.UpdateOrderStatus(ctx, "order-1", customerUser, models.FulfillmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.FulfillmentCompleted, order.Status)
	assert.True(t, order.Received)
	assert.NotNil(t, order.CompletedAt)
	assertSaleParity(t, st, "order-1")

	assert.Len(t, notifier.orders, 3)
}

func TestFulfillmentSkipShipped(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)

	_, err := svc.UpdateOrderStatus(context.Background(), "order-1", tenantActor, models.FulfillmentDelivered)

	var fulfillmentErr *InvalidFulfillmentTransitionError
	require.ErrorAs(t, err, &fulfillmentErr)
	assert.Equal(t, models.FulfillmentPending, fulfillmentErr.Current)

	order, _ := st.GetOrder(context.Background(), "order-1")
	assert.Equal(t, models.FulfillmentPending, order.Status)
}

func TestDirectPickupCompletion(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	ctx := context.Background()

	seedOrder(st, "order-pickup", models.DeliveryDirect, models.FulfillmentPending)
	order, err := svc.UpdateOrderStatus(ctx, "order-pickup", customerUser, models.FulfillmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.FulfillmentCompleted, order.Status)
	assert.True(t, order.Received)
	assertSaleParity(t, st, "order-pickup")

	// The tenant may also confirm a pickup, without the received flag.
	seedOrder(st, "order-pickup2", models.DeliveryDirect, models.FulfillmentPending)
	order, err = svc.UpdateOrderStatus(ctx, "order-pickup2", tenantActor, models.FulfillmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.FulfillmentCompleted, order.Status)
	assert.False(t, order.Received)

	// Shipping stages do not exist for direct pickup.
	seedOrder(st, "order-pickup3", models.DeliveryDirect, models.FulfillmentPending)
	_, err = svc.UpdateOrderStatus(ctx, "order-pickup3", tenantActor, models.FulfillmentShipped)
	var fulfillmentErr *InvalidFulfillmentTransitionError
	assert.ErrorAs(t, err, &fulfillmentErr)
}

func TestFulfillmentAuthorization(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	ctx := context.Background()
	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)

	// Customers cannot ship.
	_, err := svc.UpdateOrderStatus(ctx, "order-1", customerUser, models.FulfillmentShipped)
	assert.ErrorIs(t, err, ErrForbidden)

	// A tenant failing the gate cannot act even on its own orders.
	seedOrder(st, "order-gated", models.DeliveryShipping, models.FulfillmentPending)
	st.orders["order-gated"].TenantID = gatedTenant
	_, err = svc.UpdateOrderStatus(ctx, "order-gated", gatedActor, models.FulfillmentShipped)
	assert.ErrorIs(t, err, ErrForbidden)

	// The tenant cannot confirm delivery receipt on the customer's behalf.
	seedOrder(st, "order-2", models.DeliveryShipping, models.FulfillmentDelivered)
	_, err = svc.UpdateOrderStatus(ctx, "order-2", tenantActor, models.FulfillmentCompleted)
	assert.ErrorIs(t, err, ErrForbidden)

	// Super-admin can drive any transition.
	_, err = svc.UpdateOrderStatus(ctx, "order-1", adminActor, models.FulfillmentShipped)
	assert.NoError(t, err)
}

func TestFulfillmentCancel(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	ctx := context.Background()

	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)
	order, err := svc.UpdateOrderStatus(ctx, "order-1", customerUser, models.FulfillmentCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.FulfillmentCancelled, order.Status)
	assertSaleParity(t, st, "order-1")

	// Cancellation is only reachable from pending.
	seedOrder(st, "order-2", models.DeliveryShipping, models.FulfillmentShipped)
	_, err = svc.UpdateOrderStatus(ctx, "order-2", tenantActor, models.FulfillmentCancelled)
	var fulfillmentErr *InvalidFulfillmentTransitionError
	assert.ErrorAs(t, err, &fulfillmentErr)

	// Terminal states accept nothing further.
	_, err = svc.UpdateOrderStatus(ctx, "order-1", tenantActor, models.FulfillmentShipped)
	assert.ErrorAs(t, err, &fulfillmentErr)
}

func TestFulfillmentUnknownStatus(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)

	_, err := svc.UpdateOrderStatus(context.Background(), "order-1", tenantActor, "teleported")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestFulfillmentNotFound(t *testing.T) {
	_, _, svc := newFulfillmentFixture(t)

	_, err := svc.UpdateOrderStatus(context.Background(), "missing", tenantActor, models.FulfillmentShipped)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrderAccess(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	ctx := context.Background()
	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)

	order, sale, err := svc.GetOrder(ctx, "order-1", customerUser)
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	require.NotNil(t, sale)
	assert.Equal(t, order.Status, sale.Status)

	_, _, err = svc.GetOrder(ctx, "order-1", gatedActor)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListTransactionOrders(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	ctx := context.Background()
	st.txns[txnID] = &models.Transaction{
		ID: txnID, TenantID: tenantID, CustomerID: customerUser,
		Status: models.TransactionVerified, ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)
	seedOrder(st, "order-2", models.DeliveryShipping, models.FulfillmentPending)

	orders, err := svc.ListTransactionOrders(ctx, txnID, customerUser)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = svc.ListTransactionOrders(ctx, txnID, tenantActor)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	_, err = svc.ListTransactionOrders(ctx, txnID, gatedActor)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ListTransactionOrders(ctx, "missing", customerUser)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCustomerOrders(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	ctx := context.Background()
	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)

	orders, err := svc.ListCustomerOrders(ctx, customerUser, customerUser)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = svc.ListCustomerOrders(ctx, customerUser, adminActor)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// Tenants cannot browse a customer's order history.
	_, err = svc.ListCustomerOrders(ctx, customerUser, tenantActor)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListTenantSalesGate(t *testing.T) {
	st, _, svc := newFulfillmentFixture(t)
	ctx := context.Background()
	seedOrder(st, "order-1", models.DeliveryShipping, models.FulfillmentPending)

	sales, err := svc.ListTenantSales(ctx, tenantID, tenantActor)
	require.NoError(t, err)
	assert.Len(t, sales, 1)

	_, err = svc.ListTenantSales(ctx, gatedTenant, gatedActor)
	assert.ErrorIs(t, err, ErrForbidden)
}
