package models

import "time"

// TransactionStatus is the payment verification state of a transaction.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionAwaiting TransactionStatus = "awaiting_verification"
	TransactionVerified TransactionStatus = "verified"
	TransactionRejected TransactionStatus = "rejected"
	TransactionExpired  TransactionStatus = "expired"
)

// Terminal reports whether no further transition is legal from s.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionVerified, TransactionRejected, TransactionExpired:
		return true
	}
	return false
}

// transactionTransitions encodes the monotonic ledger state machine.
// Terminal states have no outgoing edges.
var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending:  {TransactionAwaiting, TransactionExpired},
	TransactionAwaiting: {TransactionVerified, TransactionRejected, TransactionExpired},
}

// CanTransition reports whether from -> to is a legal ledger transition.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range transactionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DeliveryMode distinguishes on-site pickup from shipped delivery.
type DeliveryMode string

const (
	DeliveryDirect   DeliveryMode = "direct"
	DeliveryShipping DeliveryMode = "delivery"
)

// FulfillmentStatus is the post-verification state of an order.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentCompleted FulfillmentStatus = "completed"
	FulfillmentCancelled FulfillmentStatus = "cancelled"
)

// Terminal reports whether no further fulfillment transition is legal.
func (s FulfillmentStatus) Terminal() bool {
	return s == FulfillmentCompleted || s == FulfillmentCancelled
}

// CanFulfill reports whether from -> to is legal for the given delivery mode.
// Direct pickup skips the shipped/delivered stages entirely.
func CanFulfill(mode DeliveryMode, from, to FulfillmentStatus) bool {
	if mode == DeliveryDirect {
		if from == FulfillmentPending {
			return to == FulfillmentCompleted || to == FulfillmentCancelled
		}
		return false
	}
	switch from {
	case FulfillmentPending:
		return to == FulfillmentShipped || to == FulfillmentCancelled
	case FulfillmentShipped:
		return to == FulfillmentDelivered
	case FulfillmentDelivered:
		return to == FulfillmentCompleted
	}
	return false
}

// VerificationStatus is the tenant's document/physical verification stage,
// owned by the admin verification workflow and read-only here.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationDocument VerificationStatus = "document_verified"
	VerificationPhysical VerificationStatus = "physically_verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Role identifies what kind of account an actor holds.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTenant     Role = "tenant"
	RoleSuperAdmin Role = "super_admin"
)

// Tenant is the seller account a transaction belongs to.
type Tenant struct {
	ID                 string             `db:"id" json:"id"`
	Name               string             `db:"name" json:"name"`
	IsVerified         bool               `db:"is_verified" json:"is_verified"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
}

// Actor is the authenticated principal invoking an operation. It is always
// passed explicitly; the core never reads an ambient identity.
type Actor struct {
	ID       string `db:"id" json:"id"`
	Role     Role   `db:"role" json:"role"`
	TenantID string `db:"tenant_id" json:"tenant_id,omitempty"`
}

// Product is a catalog entry, consulted only at transaction creation for the
// price snapshot. Price is in minor currency units.
type Product struct {
	ID       string `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"tenant_id"`
	Name     string `db:"name" json:"name"`
	Price    int64  `db:"price" json:"price"`
	Stock    int    `db:"stock" json:"stock"`
}

// Transaction is one customer payment attempt, possibly spanning several
// products of one tenant. Customer fields are snapshots taken at creation,
// not live references.
type Transaction struct {
	ID              string            `db:"id" json:"id"`
	PaymentRef      string            `db:"payment_ref" json:"payment_ref"`
	TenantID        string            `db:"tenant_id" json:"tenant_id"`
	CustomerID      string            `db:"customer_id" json:"customer_id"`
	CustomerName    string            `db:"customer_name" json:"customer_name"`
	CustomerEmail   string            `db:"customer_email" json:"customer_email"`
	CustomerPhone   string            `db:"customer_phone" json:"customer_phone"`
	DeliveryMode    DeliveryMode      `db:"delivery_mode" json:"delivery_mode"`
	ShippingAddress string            `db:"shipping_address" json:"shipping_address,omitempty"`
	Status          TransactionStatus `db:"status" json:"status"`
	TotalAmount     int64             `db:"total_amount" json:"total_amount"`
	InstrumentID    string            `db:"instrument_id" json:"instrument_id,omitempty"`
	RejectionReason string            `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ViewedByTenant  bool              `db:"viewed_by_tenant" json:"viewed_by_tenant"`
	VerifiedBy      string            `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time        `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	ExpiresAt       time.Time         `db:"expires_at" json:"expires_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// Lapsed reports whether the transaction has outlived its verification window
// without reaching a terminal state. The stored status may still lag behind;
// read paths flip it lazily.
func (t *Transaction) Lapsed(now time.Time) bool {
	return !t.Status.Terminal() && now.After(t.ExpiresAt)
}

// TransactionItem is one ordered line of a transaction. Position preserves
// submission order so fan-out order numbers reflect it.
type TransactionItem struct {
	ID            string `db:"id" json:"id"`
	TransactionID string `db:"transaction_id" json:"transaction_id"`
	ProductID     string `db:"product_id" json:"product_id"`
	Quantity      int    `db:"quantity" json:"quantity"`
	UnitPrice     int64  `db:"unit_price" json:"unit_price"`
	Position      int    `db:"position" json:"position"`
}

// ItemsTotal sums quantity x unit price across line items.
func ItemsTotal(items []TransactionItem) int64 {
	var total int64
	for _, it := range items {
		total += int64(it.Quantity) * it.UnitPrice
	}
	return total
}

// Order is the per-line-item fulfillment record created exactly once during
// verification fan-out.
type Order struct {
	ID              string            `db:"id" json:"id"`
	OrderNumber     string            `db:"order_number" json:"order_number"`
	TransactionID   string            `db:"transaction_id" json:"transaction_id"`
	TenantID        string            `db:"tenant_id" json:"tenant_id"`
	CustomerID      string            `db:"customer_id" json:"customer_id"`
	ProductID       string            `db:"product_id" json:"product_id"`
	Quantity        int               `db:"quantity" json:"quantity"`
	PriceAtPurchase int64             `db:"price_at_purchase" json:"price_at_purchase"`
	TotalAmount     int64             `db:"total_amount" json:"total_amount"`
	Status          FulfillmentStatus `db:"status" json:"status"`
	DeliveryMode    DeliveryMode      `db:"delivery_mode" json:"delivery_mode"`
	Received        bool              `db:"received" json:"received"`
	ShippedAt       *time.Time        `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time        `db:"delivered_at" json:"delivered_at,omitempty"`
	CompletedAt     *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// Sale is the tenant-facing reporting mirror of an Order. Its status is never
// mutated independently; the fulfillment path keeps it equal to the order's.
type Sale struct {
	ID            string            `db:"id" json:"id"`
	SaleNumber    string            `db:"sale_number" json:"sale_number"`
	OrderID       string            `db:"order_id" json:"order_id"`
	TransactionID string            `db:"transaction_id" json:"transaction_id"`
	TenantID      string            `db:"tenant_id" json:"tenant_id"`
	ProductID     string            `db:"product_id" json:"product_id"`
	CustomerID    string            `db:"customer_id" json:"customer_id"`
	CustomerName  string            `db:"customer_name" json:"customer_name"`
	CustomerEmail string            `db:"customer_email" json:"customer_email"`
	Quantity      int               `db:"quantity" json:"quantity"`
	PricePerUnit  int64             `db:"price_per_unit" json:"price_per_unit"`
	TotalAmount   int64             `db:"total_amount" json:"total_amount"`
	Status        FulfillmentStatus `db:"status" json:"status"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}
