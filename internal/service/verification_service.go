package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"verification-service/internal/models"
	"verification-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MinRejectionReasonLen is the default minimum length of a rejection reason.
// Rejections must always be auditable.
const MinRejectionReasonLen = 10

// VerificationService decides whether a verification or rejection is permitted
// and, on approval, performs the atomic fan-out into orders and sales.
type VerificationService struct {
	store     Store
	notifier  Notifier
	logger    *zap.Logger
	minReason int
	now       func() time.Time
}

// NewVerificationService creates a new verification service. minReasonLen
// bounds the rejection reason; values below 1 fall back to the default.
func NewVerificationService(store Store, notifier Notifier, minReasonLen int) *VerificationService {
	if minReasonLen < 1 {
		minReasonLen = MinRejectionReasonLen
	}
	return &VerificationService{
		store:     store,
		notifier:  notifier,
		logger:    util.GetLogger(),
		minReason: minReasonLen,
		now:       time.Now,
	}
}

// VerifyTransaction verifies an awaiting transaction and fans it out into one
// order and one sale per line item, in submission order. The status flip and
// the fan-out commit as one unit; a concurrent caller that loses the flip gets
// ErrAlreadyProcessed and writes nothing. Returns the number of orders created.
func (s *VerificationService) VerifyTransaction(ctx context.Context, transactionID, actorID string) (int, error) {
	ctx, span := util.StartSpan(ctx, "VerificationService.VerifyTransaction")
	defer span.End()

	start := time.Now()
	defer func() {
		util.VerificationLatency.Observe(time.Since(start).Seconds())
	}()

	txn, err := s.guardTerminalTransition(ctx, transactionID, actorID, models.TransactionVerified)
	if err != nil {
		return 0, err
	}

	items, err := s.store.GetTransactionItems(ctx, transactionID)
	if err != nil {
		return 0, fmt.Errorf("failed to load transaction items: %w", err)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("transaction %s has no line items", transactionID)
	}

	now := s.now()
	orders := make([]models.Order, 0, len(items))
	sales := make([]models.Sale, 0, len(items))
	for _, item := range items {
		orderID := uuid.New().String()
		orders = append(orders, models.Order{
			ID:              orderID,
			OrderNumber:     models.NewOrderNumber(now),
			TransactionID:   txn.ID,
			TenantID:        txn.TenantID,
			CustomerID:      txn.CustomerID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.UnitPrice,
			TotalAmount:     int64(item.Quantity) * item.UnitPrice,
			Status:          models.FulfillmentPending,
			DeliveryMode:    txn.DeliveryMode,
		})
		// Customer fields come from the transaction snapshot, not a live user
		// lookup, so the sale stays historically accurate.
		sales = append(sales, models.Sale{
			ID:            uuid.New().String(),
			SaleNumber:    models.NewSaleNumber(now),
			OrderID:       orderID,
			TransactionID: txn.ID,
			TenantID:      txn.TenantID,
			ProductID:     item.ProductID,
			CustomerID:    txn.CustomerID,
			CustomerName:  txn.CustomerName,
			CustomerEmail: txn.CustomerEmail,
			Quantity:      item.Quantity,
			PricePerUnit:  item.UnitPrice,
			TotalAmount:   int64(item.Quantity) * item.UnitPrice,
			Status:        models.FulfillmentPending,
		})
	}

	applied, err := s.store.VerifyAndFanOut(ctx, transactionID, actorID, now, orders, sales)
	if err != nil {
		util.VerificationsFailedTotal.WithLabelValues("db_error").Inc()
		return 0, fmt.Errorf("verification fan-out failed: %w", err)
	}
	if !applied {
		util.VerificationConflictsTotal.Inc()
		s.logger.Info("Verification lost to concurrent actor",
			zap.String("transaction_id", transactionID),
			zap.String("actor_id", actorID))
		return 0, ErrAlreadyProcessed
	}

	txn.Status = models.TransactionVerified
	txn.VerifiedBy = actorID
	txn.VerifiedAt = &now

	util.TransactionsVerifiedTotal.Inc()
	util.FanOutOrdersCreatedTotal.Add(float64(len(orders)))
	s.logger.Info("Transaction verified",
		zap.String("transaction_id", txn.ID),
		zap.String("payment_ref", txn.PaymentRef),
		zap.String("actor_id", actorID),
		zap.Int("orders_created", len(orders)))

	s.notifier.TransactionVerified(ctx, txn, len(orders))

	return len(orders), nil
}

// RejectTransaction rejects an awaiting transaction with an auditable reason.
// No orders or sales are ever created on this path.
func (s *VerificationService) RejectTransaction(ctx context.Context, transactionID, actorID, reason string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "VerificationService.RejectTransaction")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < s.minReason {
		return nil, &ValidationError{Msg: fmt.Sprintf("rejection reason must be at least %d characters", s.minReason)}
	}

	txn, err := s.guardTerminalTransition(ctx, transactionID, actorID, models.TransactionRejected)
	if err != nil {
		return nil, err
	}

	applied, err := s.store.RejectTransaction(ctx, transactionID, actorID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to reject transaction: %w", err)
	}
	if !applied {
		util.VerificationConflictsTotal.Inc()
		return nil, ErrAlreadyProcessed
	}

	txn.Status = models.TransactionRejected
	txn.RejectionReason = reason

	util.TransactionsRejectedTotal.Inc()
	s.logger.Info("Transaction rejected",
		zap.String("transaction_id", txn.ID),
		zap.String("actor_id", actorID),
		zap.String("reason", reason))

	s.notifier.TransactionRejected(ctx, txn)

	return txn, nil
}

// guardTerminalTransition runs the shared pre-flight checks for verify and
// reject: existence, actor authorization through the tenant gate, lazy expiry
// (expiry takes precedence over any terminal transition), and the state guard.
func (s *VerificationService) guardTerminalTransition(ctx context.Context, transactionID, actorID string, attempted models.TransactionStatus) (*models.Transaction, error) {
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
	if err := authorizeTenantActor(ctx, s.store, actor, txn.TenantID); err != nil {
		util.VerificationsFailedTotal.WithLabelValues("forbidden").Inc()
		return nil, err
	}

	if txn.Lapsed(s.now()) {
		applied, err := s.store.MarkExpired(ctx, txn.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to expire transaction: %w", err)
		}
		if applied {
			util.TransactionsExpiredTotal.Inc()
			s.logger.Info("Transaction expired", zap.String("transaction_id", txn.ID))
		}
		util.VerificationsFailedTotal.WithLabelValues("expired").Inc()
		return nil, &InvalidStateTransitionError{Current: models.TransactionExpired, Attempted: attempted}
	}

	if txn.Status == attempted {
		// The transition already happened; distinct from a hard state error
		// so the caller can simply refresh its view.
		return nil, ErrAlreadyProcessed
	}
	if !models.CanTransition(txn.Status, attempted) {
		util.VerificationsFailedTotal.WithLabelValues("invalid_state").Inc()
		return nil, &InvalidStateTransitionError{Current: txn.Status, Attempted: attempted}
	}

	return txn, nil
}
