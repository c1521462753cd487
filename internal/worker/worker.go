package worker

import (
	"context"
	"fmt"
	"time"

	"verification-service/internal/broker"
	"verification-service/internal/models"
	"verification-service/internal/push"
	"verification-service/internal/redisclient"
	"verification-service/internal/store"
	"verification-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes transaction events and performs the best-effort
// delivery side: push notifications to the tenant plus the unviewed counter in
// Redis. Every failure here is logged and swallowed; the ledger has already
// committed by the time an event reaches this worker.
type NotificationWorker struct {
	consumer *broker.Consumer
	handler  *broker.EventHandler
	pusher   *push.Client
	redis    *redisclient.Client
	logger   *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, pusher *push.Client, redis *redisclient.Client) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		handler:  broker.NewEventHandler(),
		pusher:   pusher,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	w.handler.OnTransactionSubmitted(w.handleSubmitted)
	w.handler.OnTransactionVerified(w.handleVerified)
	w.handler.OnTransactionRejected(w.handleRejected)

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleSubmitted(ctx context.Context, event *models.TransactionSubmittedEvent) error {
	w.deliver(ctx, event.TenantID, &push.Payload{
		TenantID: event.TenantID,
		Title:    "Payment submitted for review",
		Body:     fmt.Sprintf("Reference %s reported instrument %s", event.PaymentRef, event.InstrumentID),
		Ref:      event.PaymentRef,
	})
	return nil
}

func (w *NotificationWorker) handleVerified(ctx context.Context, event *models.TransactionVerifiedEvent) error {
	w.deliver(ctx, event.TenantID, &push.Payload{
		TenantID: event.TenantID,
		Title:    "Payment verified",
		Body:     fmt.Sprintf("Reference %s verified, %d order(s) created for %d", event.PaymentRef, event.OrdersCreated, event.Amount),
		Ref:      event.PaymentRef,
	})
	return nil
}

func (w *NotificationWorker) handleRejected(ctx context.Context, event *models.TransactionRejectedEvent) error {
	w.deliver(ctx, event.TenantID, &push.Payload{
		TenantID: event.TenantID,
		Title:    "Payment rejected",
		Body:     fmt.Sprintf("Reference %s rejected: %s", event.PaymentRef, event.Reason),
		Ref:      event.PaymentRef,
	})
	return nil
}

// deliver pushes a payload and bumps the unviewed counter. Errors never
// propagate: returning one would trigger a redeliver loop for a side effect
// that is explicitly best-effort.
func (w *NotificationWorker) deliver(ctx context.Context, tenantID string, payload *push.Payload) {
	if err := w.pusher.Send(ctx, payload); err != nil {
		util.NotificationFailuresTotal.WithLabelValues("push").Inc()
		w.logger.Error("Push delivery failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}

	if _, err := w.redis.IncrUnviewed(ctx, tenantID); err != nil {
		util.NotificationFailuresTotal.WithLabelValues("counter").Inc()
		w.logger.Error("Failed to bump unviewed counter",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// ExpiryWorker periodically flips lapsed transactions to expired so list views
// stay fresh. Correctness never depends on it: every read and mutation path
// checks expiry lazily before acting.
type ExpiryWorker struct {
	store    *store.Store
	interval time.Duration
	logger   *zap.Logger
}

// NewExpiryWorker creates a new expiry sweep worker
func NewExpiryWorker(st *store.Store, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		store:    st,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start runs the sweep until the context ends.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting expiry worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.store.ExpireLapsed(ctx, time.Now())
			if err != nil {
				w.logger.Error("Expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				util.TransactionsExpiredTotal.Add(float64(n))
				w.logger.Info("Expired lapsed transactions", zap.Int64("count", n))
			}
		}
	}
}
