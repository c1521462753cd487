package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"verification-service/internal/models"
)

// memStore is an in-memory Store with the same conditional-write semantics as
// the Postgres store: terminal flips check the current status under a lock, so
// concurrent callers exercise the real race behavior.
type memStore struct {
	mu       sync.Mutex
	tenants  map[string]*models.Tenant
	actors   map[string]*models.Actor
	products map[string]*models.Product
	txns     map[string]*models.Transaction
	items    map[string][]models.TransactionItem
	orders   map[string]*models.Order
	sales    map[string]*models.Sale // keyed by order id
}

func newMemStore() *memStore {
	return &memStore{
		tenants:  make(map[string]*models.Tenant),
		actors:   make(map[string]*models.Actor),
		products: make(map[string]*models.Product),
		txns:     make(map[string]*models.Transaction),
		items:    make(map[string][]models.TransactionItem),
		orders:   make(map[string]*models.Order),
		sales:    make(map[string]*models.Sale),
	}
}

func (m *memStore) GetTenant(_ context.Context, id string) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenants[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetActor(_ context.Context, id string) (*models.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actors[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetProductsByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	seen := make(map[string]bool)
	for _, id := range ids {
		if p, ok := m.products[id]; ok && !seen[id] {
			out = append(out, *p)
			seen[id] = true
		}
	}
	return out, nil
}

func (m *memStore) CreateTransaction(_ context.Context, txn *models.Transaction, items []models.TransactionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *txn
	m.txns[txn.ID] = &cp
	m.items[txn.ID] = append([]models.TransactionItem(nil), items...)
	return nil
}

func (m *memStore) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.txns[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetTransactionItems(_ context.Context, transactionID string) ([]models.TransactionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TransactionItem(nil), m.items[transactionID]...), nil
}

func (m *memStore) ListTenantTransactions(_ context.Context, tenantID string, now time.Time) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.txns {
		if t.TenantID != tenantID {
			continue
		}
		if t.Status == models.TransactionVerified || t.Status == models.TransactionRejected || t.ExpiresAt.After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) MarkTransactionsViewed(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.TenantID == tenantID {
			t.ViewedByTenant = true
		}
	}
	return nil
}

func (m *memStore) SubmitInstrument(_ context.Context, id, instrumentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok || t.Status != models.TransactionPending {
		return false, nil
	}
	t.Status = models.TransactionAwaiting
	t.InstrumentID = instrumentID
	return true, nil
}

func (m *memStore) MarkExpired(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok || t.Status.Terminal() {
		return false, nil
	}
	t.Status = models.TransactionExpired
	return true, nil
}

func (m *memStore) VerifyAndFanOut(_ context.Context, transactionID, actorID string, now time.Time, orders []models.Order, sales []models.Sale) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[transactionID]
	if !ok || t.Status != models.TransactionAwaiting {
		return false, nil
	}
	t.Status = models.TransactionVerified
	t.VerifiedBy = actorID
	t.VerifiedAt = &now
	for i := range orders {
		o := orders[i]
		m.orders[o.ID] = &o
		sl := sales[i]
		m.sales[o.ID] = &sl
	}
	return true, nil
}

func (m *memStore) RejectTransaction(_ context.Context, transactionID, actorID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[transactionID]
	if !ok || t.Status != models.TransactionAwaiting {
		return false, nil
	}
	t.Status = models.TransactionRejected
	t.RejectionReason = reason
	t.VerifiedBy = actorID
	return true, nil
}

func (m *memStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetOrdersByTransaction(_ context.Context, transactionID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.TransactionID == transactionID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

func (m *memStore) GetSaleByOrderID(_ context.Context, orderID string) (*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sales[orderID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListTenantSales(_ context.Context, tenantID string) ([]models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Sale
	for _, s := range m.sales {
		if s.TenantID == tenantID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) ListCustomerOrders(_ context.Context, customerID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) UpdateOrderFulfillment(_ context.Context, orderID string, from, to models.FulfillmentStatus, now time.Time, received bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.Received = o.Received || received
	switch to {
	case models.FulfillmentShipped:
		o.ShippedAt = &now
	case models.FulfillmentDelivered:
		o.DeliveredAt = &now
	case models.FulfillmentCompleted:
		o.CompletedAt = &now
	}
	if s, ok := m.sales[orderID]; ok {
		s.Status = to
	}
	return true, nil
}

// ordersByTransaction is a test helper for inspecting fan-out results.
func (m *memStore) ordersByTransaction(transactionID string) []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.TransactionID == transactionID {
			out = append(out, *o)
		}
	}
	return out
}

func (m *memStore) salesByTransaction(transactionID string) []models.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Sale
	for _, s := range m.sales {
		if s.TransactionID == transactionID {
			out = append(out, *s)
		}
	}
	return out
}

// fakeNotifier records dispatched notifications.
type fakeNotifier struct {
	mu        sync.Mutex
	submitted []string
	verified  []string
	rejected  []string
	orders    []string
}

func (f *fakeNotifier) TransactionSubmitted(_ context.Context, txn *models.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, txn.ID)
}

func (f *fakeNotifier) TransactionVerified(_ context.Context, txn *models.Transaction, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, txn.ID)
}

func (f *fakeNotifier) TransactionRejected(_ context.Context, txn *models.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, txn.ID)
}

func (f *fakeNotifier) OrderStatusChanged(_ context.Context, order *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order.ID)
}
