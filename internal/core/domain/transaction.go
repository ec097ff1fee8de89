package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the lifecycle state of a payment attempt.
type TransactionStatus string

const (
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// Transaction records one payment attempt at the external gateway.
// It is mutated exclusively by webhook ingestion; rows are never deleted.
type Transaction struct {
	ID                 uuid.UUID         `json:"id"`
	ProviderToken      string            `json:"provider_token"` // gateway invoice/token, lookup key for inbound webhooks
	Provider           string            `json:"provider"`
	Amount             int64             `json:"amount"` // smallest currency unit
	Currency           string            `json:"currency"`
	Status             TransactionStatus `json:"status"`
	OrderID            *uuid.UUID        `json:"order_id,omitempty"`
	PaymentID          *uuid.UUID        `json:"payment_id,omitempty"`
	StoreID            uuid.UUID         `json:"store_id"`
	RetryCount         int               `json:"retry_count"`
	WebhookAttempts    int               `json:"webhook_attempts"`
	LastWebhookPayload []byte            `json:"-"` // raw snapshot of the latest inbound payload
	ErrorMessage       *string           `json:"error_message,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	FailedAt           *time.Time        `json:"failed_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IsTerminal returns true once the transaction has reached a final state.
// A completed transaction is never reverted to processing by a late duplicate webhook.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusCancelled
}
