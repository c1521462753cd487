package service

import (
	"context"
	"fmt"
	"time"

	"verification-service/internal/models"
	"verification-service/internal/util"

	"go.uber.org/zap"
)

// FulfillmentService drives orders through their post-verification lifecycle
// and keeps the paired sale's status in lockstep.
type FulfillmentService struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewFulfillmentService creates a new fulfillment service.
func NewFulfillmentService(store Store, notifier Notifier) *FulfillmentService {
	return &FulfillmentService{
		store:    store,
		notifier: notifier,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

var knownFulfillmentStatuses = map[models.FulfillmentStatus]bool{
	models.FulfillmentPending:   true,
	models.FulfillmentShipped:   true,
	models.FulfillmentDelivered: true,
	models.FulfillmentCompleted: true,
	models.FulfillmentCancelled: true,
}

// UpdateOrderStatus applies one fulfillment transition. Out-of-sequence
// requests fail with InvalidFulfillmentTransitionError rather than being
// coerced; the transition and the sale sync commit as one write.
func (s *FulfillmentService) UpdateOrderStatus(ctx context.Context, orderID, actorID string, newStatus models.FulfillmentStatus) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.UpdateOrderStatus")
	defer span.End()

	if !knownFulfillmentStatuses[newStatus] {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown fulfillment status %q", newStatus)}
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, ErrNotFound
	}

	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if err := s.authorizeTransition(ctx, actor, order, newStatus); err != nil {
		util.FulfillmentFailedTotal.WithLabelValues("forbidden").Inc()
		return nil, err
	}

	if !models.CanFulfill(order.DeliveryMode, order.Status, newStatus) {
		util.FulfillmentFailedTotal.WithLabelValues("invalid_transition").Inc()
		return nil, &InvalidFulfillmentTransitionError{Current: order.Status, Attempted: newStatus}
	}

	// The received flag records the customer's own confirmation of receipt.
	received := newStatus == models.FulfillmentCompleted &&
		actor != nil && actor.Role == models.RoleCustomer

	now := s.now()
	applied, err := s.store.UpdateOrderFulfillment(ctx, orderID, order.Status, newStatus, now, received)
	if err != nil {
		return nil, fmt.Errorf("failed to apply fulfillment transition: %w", err)
	}
	if !applied {
		// The order moved underneath us; report the conflict distinctly so
		// the caller refreshes instead of erroring.
		util.FulfillmentFailedTotal.WithLabelValues("conflict").Inc()
		return nil, ErrAlreadyProcessed
	}

	order.Status = newStatus
	order.Received = order.Received || received
	switch newStatus {
	case models.FulfillmentShipped:
		order.ShippedAt = &now
	case models.FulfillmentDelivered:
		order.DeliveredAt = &now
	case models.FulfillmentCompleted:
		order.CompletedAt = &now
	}

	util.FulfillmentTransitionsTotal.WithLabelValues(string(newStatus)).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(newStatus)))

	s.notifier.OrderStatusChanged(ctx, order)

	return order, nil
}

// GetOrder returns an order with its paired sale, enforcing owner access.
func (s *FulfillmentService) GetOrder(ctx context.Context, orderID, actorID string) (*models.Order, *models.Sale, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, nil, ErrNotFound
	}

	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if !s.mayRead(ctx, actor, order) {
		return nil, nil, ErrForbidden
	}

	sale, err := s.store.GetSaleByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sale: %w", err)
	}
	return order, sale, nil
}

// ListTransactionOrders returns the orders fanned out from a transaction,
// under the same read access rules as the transaction itself.
func (s *FulfillmentService) ListTransactionOrders(ctx context.Context, transactionID, actorID string) ([]models.Order, error) {
	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil {
		return nil, ErrNotFound
	}

	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if !s.mayReadTransaction(ctx, actor, txn) {
		return nil, ErrForbidden
	}

	return s.store.GetOrdersByTransaction(ctx, transactionID)
}

// ListCustomerOrders returns a customer's orders across tenants. Only the
// customer themself or a super-admin may list them.
func (s *FulfillmentService) ListCustomerOrders(ctx context.Context, customerID, actorID string) ([]models.Order, error) {
	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if actor == nil {
		return nil, ErrForbidden
	}
	if actor.Role != models.RoleSuperAdmin &&
		!(actor.Role == models.RoleCustomer && actor.ID == customerID) {
		return nil, ErrForbidden
	}
	return s.store.ListCustomerOrders(ctx, customerID)
}

// ListTenantSales returns the tenant's sales ledger, gate-enforced.
func (s *FulfillmentService) ListTenantSales(ctx context.Context, tenantID, actorID string) ([]models.Sale, error) {
	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if err := authorizeTenantActor(ctx, s.store, actor, tenantID); err != nil {
		return nil, err
	}
	return s.store.ListTenantSales(ctx, tenantID)
}

// authorizeTransition applies the per-trigger actor rules: the tenant drives
// shipping and delivery, the customer confirms receipt, direct pickup can be
// confirmed by either side, and cancellation is open to both while pending.
func (s *FulfillmentService) authorizeTransition(ctx context.Context, actor *models.Actor, order *models.Order, newStatus models.FulfillmentStatus) error {
	if actor == nil {
		return ErrForbidden
	}
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}

	isOwningCustomer := actor.Role == models.RoleCustomer && actor.ID == order.CustomerID
	isOwningTenant := func() bool {
		if actor.Role != models.RoleTenant || actor.TenantID != order.TenantID {
			return false
		}
		tenant, err := s.store.GetTenant(ctx, order.TenantID)
		if err != nil {
			s.logger.Warn("Failed to load tenant for gate check",
				zap.String("tenant_id", order.TenantID), zap.Error(err))
			return false
		}
		return CanReceiveOrders(tenant)
	}

	switch newStatus {
	case models.FulfillmentShipped, models.FulfillmentDelivered:
		if isOwningTenant() {
			return nil
		}
	case models.FulfillmentCompleted:
		if order.DeliveryMode == models.DeliveryDirect {
			if isOwningCustomer || isOwningTenant() {
				return nil
			}
		} else if isOwningCustomer {
			return nil
		}
	case models.FulfillmentCancelled:
		if isOwningCustomer || isOwningTenant() {
			return nil
		}
	}
	return ErrForbidden
}

func (s *FulfillmentService) mayReadTransaction(ctx context.Context, actor *models.Actor, txn *models.Transaction) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleCustomer:
		return actor.ID == txn.CustomerID
	case models.RoleTenant:
		return authorizeTenantActor(ctx, s.store, actor, txn.TenantID) == nil
	}
	return false
}

func (s *FulfillmentService) mayRead(ctx context.Context, actor *models.Actor, order *models.Order) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleCustomer:
		return actor.ID == order.CustomerID
	case models.RoleTenant:
		return authorizeTenantActor(ctx, s.store, actor, order.TenantID) == nil
	}
	return false
}
