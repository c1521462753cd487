package models

import "time"

// Event types published on the transaction event stream.
const (
	EventTypeTransactionSubmitted = "TRANSACTION_SUBMITTED"
	EventTypeTransactionVerified  = "TRANSACTION_VERIFIED"
	EventTypeTransactionRejected  = "TRANSACTION_REJECTED"
	EventTypeTransactionExpired   = "TRANSACTION_EXPIRED"
	EventTypeOrderStatusChanged   = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionSubmittedEvent published when a customer attaches a payment
// instrument id, alerting the tenant that a submission needs review.
type TransactionSubmittedEvent struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	TenantID      string `json:"tenant_id"`
	PaymentRef    string `json:"payment_ref"`
	InstrumentID  string `json:"instrument_id"`
}

// TransactionVerifiedEvent published after a successful verification fan-out.
type TransactionVerifiedEvent struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	TenantID      string `json:"tenant_id"`
	PaymentRef    string `json:"payment_ref"`
	Amount        int64  `json:"amount"`
	OrdersCreated int    `json:"orders_created"`
}

// TransactionRejectedEvent published after a rejection.
type TransactionRejectedEvent struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	TenantID      string `json:"tenant_id"`
	PaymentRef    string `json:"payment_ref"`
	Reason        string `json:"reason"`
}

// OrderStatusChangedEvent published on every fulfillment transition for
// downstream reporting.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID     string            `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	TenantID    string            `json:"tenant_id"`
	CustomerID  string            `json:"customer_id"`
	Status      FulfillmentStatus `json:"status"`
}
