package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"verification-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		verification_status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS actors (
		id UUID PRIMARY KEY,
		role TEXT NOT NULL,
		tenant_id UUID
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		name TEXT NOT NULL,
		price BIGINT NOT NULL,
		stock INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		payment_ref TEXT NOT NULL UNIQUE,
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		customer_id UUID NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL DEFAULT '',
		delivery_mode TEXT NOT NULL,
		shipping_address TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		total_amount BIGINT NOT NULL,
		instrument_id TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		viewed_by_tenant BOOLEAN NOT NULL DEFAULT FALSE,
		verified_by TEXT NOT NULL DEFAULT '',
		verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_tenant_status ON transactions (tenant_id, status)`,
	`CREATE TABLE IF NOT EXISTS transaction_items (
		id UUID PRIMARY KEY,
		transaction_id UUID NOT NULL REFERENCES transactions(id),
		product_id UUID NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 1),
		unit_price BIGINT NOT NULL,
		position INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		transaction_id UUID NOT NULL REFERENCES transactions(id),
		tenant_id UUID NOT NULL,
		customer_id UUID NOT NULL,
		product_id UUID NOT NULL,
		quantity INT NOT NULL,
		price_at_purchase BIGINT NOT NULL,
		total_amount BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		delivery_mode TEXT NOT NULL,
		received BOOLEAN NOT NULL DEFAULT FALSE,
		shipped_at TIMESTAMPTZ,
		delivered_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id UUID PRIMARY KEY,
		sale_number TEXT NOT NULL UNIQUE,
		order_id UUID NOT NULL UNIQUE REFERENCES orders(id),
		transaction_id UUID NOT NULL,
		tenant_id UUID NOT NULL,
		product_id UUID NOT NULL,
		customer_id UUID NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		quantity INT NOT NULL,
		price_per_unit BIGINT NOT NULL,
		total_amount BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}

// GetTenant retrieves a tenant by ID
func (s *Store) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.GetContext(ctx, &tenant, "SELECT * FROM tenants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetActor retrieves an actor by ID
func (s *Store) GetActor(ctx context.Context, id string) (*models.Actor, error) {
	var actor models.Actor
	err := s.db.GetContext(ctx, &actor, "SELECT * FROM actors WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &actor, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}
