package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"verification-service/internal/models"
	"verification-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService owns the transaction record and its pre-verification
// transitions: creation by the checkout collaborator and the customer's
// payment instrument submission.
type LedgerService struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewLedgerService creates a new ledger service. ttl is the fixed verification
// window applied at creation.
func NewLedgerService(store Store, notifier Notifier, ttl time.Duration) *LedgerService {
	return &LedgerService{
		store:    store,
		notifier: notifier,
		logger:   util.GetLogger(),
		ttl:      ttl,
		now:      time.Now,
	}
}

// CreateTransactionRequest represents a checkout handing over a cart.
type CreateTransactionRequest struct {
	TenantID        string              `json:"tenant_id" binding:"required"`
	CustomerID      string              `json:"customer_id" binding:"required"`
	CustomerName    string              `json:"customer_name" binding:"required"`
	CustomerEmail   string              `json:"customer_email" binding:"required"`
	CustomerPhone   string              `json:"customer_phone"`
	DeliveryMode    models.DeliveryMode `json:"delivery_mode" binding:"required"`
	ShippingAddress string              `json:"shipping_address"`
	Items           []LineItemRequest   `json:"items" binding:"required,min=1"`
}

// LineItemRequest represents one cart line.
type LineItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CreateTransaction snapshots the cart into a pending transaction. Prices are
// captured here and never re-validated later; the expiry window is fixed at
// creation and never extended.
func (s *LedgerService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*models.Transaction, []models.TransactionItem, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.CreateTransaction")
	defer span.End()

	switch req.DeliveryMode {
	case models.DeliveryDirect:
	case models.DeliveryShipping:
		if strings.TrimSpace(req.ShippingAddress) == "" {
			return nil, nil, &ValidationError{Msg: "shipping address is required for delivery mode"}
		}
	default:
		return nil, nil, &ValidationError{Msg: fmt.Sprintf("unknown delivery mode %q", req.DeliveryMode)}
	}

	productIDs := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return nil, nil, &ValidationError{Msg: "quantity must be at least 1"}
		}
		productIDs[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load products: %w", err)
	}
	productMap := make(map[string]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	now := s.now()
	txnID := uuid.New().String()
	items := make([]models.TransactionItem, 0, len(req.Items))
	for i, item := range req.Items {
		product, ok := productMap[item.ProductID]
		if !ok {
			return nil, nil, &ValidationError{Msg: fmt.Sprintf("product %s not found", item.ProductID)}
		}
		if product.TenantID != req.TenantID {
			return nil, nil, &ValidationError{Msg: fmt.Sprintf("product %s does not belong to tenant", item.ProductID)}
		}
		items = append(items, models.TransactionItem{
			ID:            uuid.New().String(),
			TransactionID: txnID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     product.Price,
			Position:      i,
		})
	}

	txn := &models.Transaction{
		ID:              txnID,
		PaymentRef:      models.NewPaymentReference(),
		TenantID:        req.TenantID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryMode:    req.DeliveryMode,
		ShippingAddress: req.ShippingAddress,
		Status:          models.TransactionPending,
		TotalAmount:     models.ItemsTotal(items),
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}

	if err := s.store.CreateTransaction(ctx, txn, items); err != nil {
		return nil, nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	util.TransactionsCreatedTotal.Inc()
	s.logger.Info("Transaction created",
		zap.String("transaction_id", txn.ID),
		zap.String("payment_ref", txn.PaymentRef),
		zap.Int64("total_amount", txn.TotalAmount))

	return txn, items, nil
}

// SubmitPaymentInstrument attaches the customer-reported payment instrument id
// and moves the transaction from pending to awaiting_verification.
func (s *LedgerService) SubmitPaymentInstrument(ctx context.Context, transactionID, instrumentID string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.SubmitPaymentInstrument")
	defer span.End()

	if strings.TrimSpace(instrumentID) == "" {
		return nil, &ValidationError{Msg: "instrument id must not be empty"}
	}

	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil {
		return nil, ErrNotFound
	}

	if cur, lapsed, err := s.expireIfLapsed(ctx, txn); err != nil {
		return nil, err
	} else if lapsed {
		return nil, &InvalidStateTransitionError{Current: cur, Attempted: models.TransactionAwaiting}
	}

	applied, err := s.store.SubmitInstrument(ctx, transactionID, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to submit instrument: %w", err)
	}
	if !applied {
		current, err := s.store.GetTransaction(ctx, transactionID)
		if err != nil || current == nil {
			return nil, &InvalidStateTransitionError{Current: txn.Status, Attempted: models.TransactionAwaiting}
		}
		return nil, &InvalidStateTransitionError{Current: current.Status, Attempted: models.TransactionAwaiting}
	}

	txn.Status = models.TransactionAwaiting
	txn.InstrumentID = instrumentID

	util.TransactionsSubmittedTotal.Inc()
	s.logger.Info("Payment instrument submitted",
		zap.String("transaction_id", txn.ID),
		zap.String("payment_ref", txn.PaymentRef),
		zap.String("instrument_id", instrumentID))

	s.notifier.TransactionSubmitted(ctx, txn)

	return txn, nil
}

// GetTransaction returns a transaction with its line items, enforcing owner or
// gate-passing tenant access. Reads lazily flip lapsed transactions to expired.
func (s *LedgerService) GetTransaction(ctx context.Context, transactionID, actorID string) (*models.Transaction, []models.TransactionItem, error) {
	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil {
		return nil, nil, ErrNotFound
	}

	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if !s.mayRead(ctx, actor, txn) {
		return nil, nil, ErrForbidden
	}

	if _, _, err := s.expireIfLapsed(ctx, txn); err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetTransactionItems(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transaction items: %w", err)
	}
	return txn, items, nil
}

// ListTenantTransactions returns the tenant's verification queue and marks it
// viewed. Gate-enforced; lapsed rows are excluded at query time.
func (s *LedgerService) ListTenantTransactions(ctx context.Context, tenantID, actorID string) ([]models.Transaction, error) {
	actor, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if err := s.authorizeTenantAccess(ctx, actor, tenantID); err != nil {
		return nil, err
	}

	txns, err := s.store.ListTenantTransactions(ctx, tenantID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	if err := s.store.MarkTransactionsViewed(ctx, tenantID); err != nil {
		s.logger.Warn("Failed to mark transactions viewed",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}

	return txns, nil
}

// expireIfLapsed lazily flips a lapsed transaction to expired. Returns the
// effective current status and whether the transaction is past its window.
func (s *LedgerService) expireIfLapsed(ctx context.Context, txn *models.Transaction) (models.TransactionStatus, bool, error) {
	if !txn.Lapsed(s.now()) {
		return txn.Status, false, nil
	}
	applied, err := s.store.MarkExpired(ctx, txn.ID)
	if err != nil {
		return txn.Status, true, fmt.Errorf("failed to expire transaction: %w", err)
	}
	if applied {
		util.TransactionsExpiredTotal.Inc()
		s.logger.Info("Transaction expired", zap.String("transaction_id", txn.ID))
	}
	txn.Status = models.TransactionExpired
	return models.TransactionExpired, true, nil
}

func (s *LedgerService) mayRead(ctx context.Context, actor *models.Actor, txn *models.Transaction) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleCustomer:
		return actor.ID == txn.CustomerID
	case models.RoleTenant:
		return s.authorizeTenantAccess(ctx, actor, txn.TenantID) == nil
	}
	return false
}

func (s *LedgerService) authorizeTenantAccess(ctx context.Context, actor *models.Actor, tenantID string) error {
	return authorizeTenantActor(ctx, s.store, actor, tenantID)
}
