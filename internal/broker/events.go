package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"verification-service/internal/models"
	"verification-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NotificationPublisher is the fire-and-forget notification side channel over
// Kafka. It satisfies service.Notifier: publish failures are counted, logged
// and swallowed, never surfaced to the transition that triggered them.
type NotificationPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewNotificationPublisher creates a new notification publisher
func NewNotificationPublisher(producer *Producer) *NotificationPublisher {
	return &NotificationPublisher{producer: producer, logger: util.GetLogger()}
}

func (np *NotificationPublisher) publish(ctx context.Context, key string, event interface{}) {
	if err := np.producer.PublishEvent(ctx, key, event); err != nil {
		util.NotificationFailuresTotal.WithLabelValues("publish").Inc()
		np.logger.Error("Failed to publish notification event",
			zap.String("key", key), zap.Error(err))
		return
	}
	util.NotificationsPublishedTotal.Inc()
}

func baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// TransactionSubmitted alerts the tenant that a payment report needs review.
func (np *NotificationPublisher) TransactionSubmitted(ctx context.Context, txn *models.Transaction) {
	np.publish(ctx, "txn-"+txn.ID, &models.TransactionSubmittedEvent{
		BaseEvent:     baseEvent(models.EventTypeTransactionSubmitted),
		TransactionID: txn.ID,
		TenantID:      txn.TenantID,
		PaymentRef:    txn.PaymentRef,
		InstrumentID:  txn.InstrumentID,
	})
}

// TransactionVerified announces a completed verification fan-out.
func (np *NotificationPublisher) TransactionVerified(ctx context.Context, txn *models.Transaction, ordersCreated int) {
	np.publish(ctx, "txn-"+txn.ID, &models.TransactionVerifiedEvent{
		BaseEvent:     baseEvent(models.EventTypeTransactionVerified),
		TransactionID: txn.ID,
		TenantID:      txn.TenantID,
		PaymentRef:    txn.PaymentRef,
		Amount:        txn.TotalAmount,
		OrdersCreated: ordersCreated,
	})
}

// TransactionRejected announces a rejection.
func (np *NotificationPublisher) TransactionRejected(ctx context.Context, txn *models.Transaction) {
	np.publish(ctx, "txn-"+txn.ID, &models.TransactionRejectedEvent{
		BaseEvent:     baseEvent(models.EventTypeTransactionRejected),
		TransactionID: txn.ID,
		TenantID:      txn.TenantID,
		PaymentRef:    txn.PaymentRef,
		Reason:        txn.RejectionReason,
	})
}

// OrderStatusChanged announces a fulfillment transition for reporting.
func (np *NotificationPublisher) OrderStatusChanged(ctx context.Context, order *models.Order) {
	np.publish(ctx, "txn-"+order.TransactionID, &models.OrderStatusChangedEvent{
		BaseEvent:   baseEvent(models.EventTypeOrderStatusChanged),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TenantID:    order.TenantID,
		CustomerID:  order.CustomerID,
		Status:      order.Status,
	})
}

// EventHandler routes consumed transaction events to registered callbacks.
type EventHandler struct {
	onSubmitted func(context.Context, *models.TransactionSubmittedEvent) error
	onVerified  func(context.Context, *models.TransactionVerifiedEvent) error
	onRejected  func(context.Context, *models.TransactionRejectedEvent) error
	logger      *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnTransactionSubmitted registers a handler for submission events.
func (eh *EventHandler) OnTransactionSubmitted(h func(context.Context, *models.TransactionSubmittedEvent) error) {
	eh.onSubmitted = h
}

// OnTransactionVerified registers a handler for verification events.
func (eh *EventHandler) OnTransactionVerified(h func(context.Context, *models.TransactionVerifiedEvent) error) {
	eh.onVerified = h
}

// OnTransactionRejected registers a handler for rejection events.
func (eh *EventHandler) OnTransactionRejected(h func(context.Context, *models.TransactionRejectedEvent) error) {
	eh.onRejected = h
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch base.EventType {
	case models.EventTypeTransactionSubmitted:
		if eh.onSubmitted != nil {
			var event models.TransactionSubmittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal submitted event: %w", err)
			}
			return eh.onSubmitted(ctx, &event)
		}

	case models.EventTypeTransactionVerified:
		if eh.onVerified != nil {
			var event models.TransactionVerifiedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal verified event: %w", err)
			}
			return eh.onVerified(ctx, &event)
		}

	case models.EventTypeTransactionRejected:
		if eh.onRejected != nil {
			var event models.TransactionRejectedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal rejected event: %w", err)
			}
			return eh.onRejected(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", base.EventType))
	}

	return nil
}
