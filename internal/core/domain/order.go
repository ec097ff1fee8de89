package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderPaymentStatus is the payment-side state of an order.
type OrderPaymentStatus string

const (
	OrderPaymentPending OrderPaymentStatus = "pending"
	OrderPaymentPaid    OrderPaymentStatus = "paid"
	OrderPaymentFailed  OrderPaymentStatus = "failed"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// Order is owned by the order-management system. This core only updates
// payment_status and status as a cascade of transaction completion/failure.
type Order struct {
	ID            uuid.UUID          `json:"id"`
	StoreID       uuid.UUID          `json:"store_id"`
	PaymentStatus OrderPaymentStatus `json:"payment_status"`
	Status        OrderStatus        `json:"status"`
	TotalAmount   int64              `json:"total_amount"`
	Currency      string             `json:"currency"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// PaymentStatus is the state of the platform-internal payment record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is the platform-internal payment record tied to a transaction.
// Mutated in lockstep with Transaction status.
type Payment struct {
	ID        uuid.UUID     `json:"id"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
