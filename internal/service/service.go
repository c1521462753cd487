package service

import (
	"context"
	"time"

	"verification-service/internal/models"
)

// Store is the persistence surface the services depend on. *store.Store
// satisfies it; tests substitute an in-memory implementation. Conditional
// mutations return applied=false when the row was not in the expected state,
// which the services translate into the race-safety error taxonomy.
type Store interface {
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
	GetActor(ctx context.Context, id string) (*models.Actor, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)

	CreateTransaction(ctx context.Context, txn *models.Transaction, items []models.TransactionItem) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionItems(ctx context.Context, transactionID string) ([]models.TransactionItem, error)
	ListTenantTransactions(ctx context.Context, tenantID string, now time.Time) ([]models.Transaction, error)
	MarkTransactionsViewed(ctx context.Context, tenantID string) error

	SubmitInstrument(ctx context.Context, id, instrumentID string) (bool, error)
	MarkExpired(ctx context.Context, id string) (bool, error)
	VerifyAndFanOut(ctx context.Context, transactionID, actorID string, now time.Time, orders []models.Order, sales []models.Sale) (bool, error)
	RejectTransaction(ctx context.Context, transactionID, actorID, reason string) (bool, error)

	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByTransaction(ctx context.Context, transactionID string) ([]models.Order, error)
	GetSaleByOrderID(ctx context.Context, orderID string) (*models.Sale, error)
	ListTenantSales(ctx context.Context, tenantID string) ([]models.Sale, error)
	ListCustomerOrders(ctx context.Context, customerID string) ([]models.Order, error)
	UpdateOrderFulfillment(ctx context.Context, orderID string, from, to models.FulfillmentStatus, now time.Time, received bool) (bool, error)
}

// Notifier is the fire-and-forget notification side channel. Implementations
// never return errors to the caller: delivery failure is logged and swallowed,
// and must never roll back or fail the transition that triggered it.
type Notifier interface {
	TransactionSubmitted(ctx context.Context, txn *models.Transaction)
	TransactionVerified(ctx context.Context, txn *models.Transaction, ordersCreated int)
	TransactionRejected(ctx context.Context, txn *models.Transaction)
	OrderStatusChanged(ctx context.Context, order *models.Order)
}
