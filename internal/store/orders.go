package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"verification-service/internal/models"
)

// GetOrder retrieves an order by ID. Returns nil if not found.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByTransaction retrieves the orders fanned out from one transaction,
// in creation order.
func (s *Store) GetOrdersByTransaction(ctx context.Context, transactionID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE transaction_id = $1 ORDER BY order_number", transactionID)
	return orders, err
}

// GetSaleByOrderID retrieves the sale paired with an order.
func (s *Store) GetSaleByOrderID(ctx context.Context, orderID string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListTenantSales retrieves a tenant's sales, newest first.
func (s *Store) ListTenantSales(ctx context.Context, tenantID string) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.SelectContext(ctx, &sales,
		"SELECT * FROM sales WHERE tenant_id = $1 ORDER BY created_at DESC", tenantID)
	return sales, err
}

// ListCustomerOrders retrieves a customer's orders, newest first.
func (s *Store) ListCustomerOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return orders, err
}

// UpdateOrderFulfillment applies one fulfillment transition and propagates the
// identical status to the paired sale inside the same database transaction, so
// order and sale can never be observed in different states. The conditional
// WHERE on the current status makes concurrent transitions race-safe: false
// means the order was no longer in the expected state.
func (s *Store) UpdateOrderFulfillment(ctx context.Context, orderID string, from, to models.FulfillmentStatus, now time.Time, received bool) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var stampCol string
	switch to {
	case models.FulfillmentShipped:
		stampCol = "shipped_at"
	case models.FulfillmentDelivered:
		stampCol = "delivered_at"
	case models.FulfillmentCompleted:
		stampCol = "completed_at"
	}

	query := `UPDATE orders SET status = $1, received = received OR $2, updated_at = NOW()`
	if stampCol != "" {
		query += fmt.Sprintf(", %s = $5", stampCol)
	}
	query += ` WHERE id = $3 AND status = $4`

	args := []interface{}{to, received, orderID, from}
	if stampCol != "" {
		args = append(args, now)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sales SET status = $1, updated_at = NOW() WHERE order_id = $2", to, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to sync sale status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
