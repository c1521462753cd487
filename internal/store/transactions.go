package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"verification-service/internal/models"
)

// CreateTransaction inserts a transaction together with its line items in a
// single database transaction.
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction, items []models.TransactionItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO transactions (
			id, payment_ref, tenant_id, customer_id, customer_name, customer_email,
			customer_phone, delivery_mode, shipping_address, status, total_amount, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err = tx.GetContext(ctx, txn, query,
		txn.ID, txn.PaymentRef, txn.TenantID, txn.CustomerID, txn.CustomerName,
		txn.CustomerEmail, txn.CustomerPhone, txn.DeliveryMode, txn.ShippingAddress,
		txn.Status, txn.TotalAmount, txn.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transaction_items (id, transaction_id, product_id, quantity, unit_price, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.TransactionID, item.ProductID, item.Quantity, item.UnitPrice, item.Position)
		if err != nil {
			return fmt.Errorf("failed to insert transaction item: %w", err)
		}
	}

	return tx.Commit()
}

// GetTransaction retrieves a transaction by ID. Returns nil if not found.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.GetContext(ctx, &txn, "SELECT * FROM transactions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetTransactionItems retrieves the line items of a transaction in submission order.
func (s *Store) GetTransactionItems(ctx context.Context, transactionID string) ([]models.TransactionItem, error) {
	var items []models.TransactionItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM transaction_items WHERE transaction_id = $1 ORDER BY position", transactionID)
	return items, err
}

// ListTenantTransactions retrieves a tenant's transactions, newest first.
// Lapsed rows the sweep has not flipped yet are filtered at query time.
func (s *Store) ListTenantTransactions(ctx context.Context, tenantID string, now time.Time) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.SelectContext(ctx, &txns, `
		SELECT * FROM transactions
		WHERE tenant_id = $1
		  AND (status IN ('verified', 'rejected') OR expires_at > $2)
		ORDER BY created_at DESC`, tenantID, now)
	return txns, err
}

// SubmitInstrument attaches the customer-reported payment instrument id and
// moves the transaction to awaiting_verification. The conditional WHERE makes
// the transition race-safe: false means the row was not in pending.
func (s *Store) SubmitInstrument(ctx context.Context, id, instrumentID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, instrument_id = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.TransactionAwaiting, instrumentID, id, models.TransactionPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkExpired flips a lapsed transaction to expired. Only non-terminal rows
// are eligible; false means another path already settled the transaction.
func (s *Store) MarkExpired(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)`,
		models.TransactionExpired, id, models.TransactionPending, models.TransactionAwaiting)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExpireLapsed flips every transaction past its expiry window that is still
// non-terminal. Used by the background sweep for list freshness only.
func (s *Store) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE status IN ($2, $3) AND expires_at < $4`,
		models.TransactionExpired, models.TransactionPending, models.TransactionAwaiting, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// VerifyAndFanOut performs the verification fan-out as one atomic unit: the
// conditional status flip runs first, and zero rows affected aborts the whole
// operation before any order or sale is written. A losing concurrent caller
// therefore never creates orphan records.
func (s *Store) VerifyAndFanOut(ctx context.Context, transactionID, actorID string, now time.Time, orders []models.Order, sales []models.Sale) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, verified_by = $2, verified_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		models.TransactionVerified, actorID, now, transactionID, models.TransactionAwaiting)
	if err != nil {
		return false, fmt.Errorf("failed to flip transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Someone else won the transition; abort with nothing written.
		return false, nil
	}

	for i := range orders {
		o := &orders[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (
				id, order_number, transaction_id, tenant_id, customer_id, product_id,
				quantity, price_at_purchase, total_amount, status, delivery_mode
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			o.ID, o.OrderNumber, o.TransactionID, o.TenantID, o.CustomerID, o.ProductID,
			o.Quantity, o.PriceAtPurchase, o.TotalAmount, o.Status, o.DeliveryMode)
		if err != nil {
			return false, fmt.Errorf("failed to insert order: %w", err)
		}

		sl := &sales[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sales (
				id, sale_number, order_id, transaction_id, tenant_id, product_id,
				customer_id, customer_name, customer_email, quantity, price_per_unit,
				total_amount, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			sl.ID, sl.SaleNumber, sl.OrderID, sl.TransactionID, sl.TenantID, sl.ProductID,
			sl.CustomerID, sl.CustomerName, sl.CustomerEmail, sl.Quantity, sl.PricePerUnit,
			sl.TotalAmount, sl.Status)
		if err != nil {
			return false, fmt.Errorf("failed to insert sale: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit fan-out: %w", err)
	}
	return true, nil
}

// RejectTransaction records a rejection. No orders or sales are ever written
// on this path. False means the transaction was not awaiting verification.
func (s *Store) RejectTransaction(ctx context.Context, transactionID, actorID, reason string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, rejection_reason = $2, verified_by = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		models.TransactionRejected, reason, actorID, transactionID, models.TransactionAwaiting)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkTransactionsViewed flags a tenant's transactions as seen, typically when
// the tenant opens the verification queue.
func (s *Store) MarkTransactionsViewed(ctx context.Context, tenantID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET viewed_by_tenant = TRUE, updated_at = NOW()
		WHERE tenant_id = $1 AND viewed_by_tenant = FALSE`, tenantID)
	return err
}
