package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents whether a webhook subscription receives events.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionDisabled SubscriptionStatus = "disabled"
)

// Webhook is an externally registered delivery target. Managed elsewhere;
// consumed read-only by the dispatcher.
type Webhook struct {
	ID             uuid.UUID          `json:"id"`
	StoreID        uuid.UUID          `json:"store_id"`
	URL            string             `json:"url"`
	Secret         *string            `json:"-"` // HMAC signing key, nil = unsigned deliveries
	CustomHeaders  map[string]string  `json:"custom_headers,omitempty"`
	VerifySSL      bool               `json:"verify_ssl"`
	TimeoutSeconds int                `json:"timeout_seconds"` // 0 = dispatcher default
	Status         SubscriptionStatus `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// IsActive returns true if the subscription should receive deliveries.
func (w *Webhook) IsActive() bool {
	return w.Status == SubscriptionActive
}
