package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the state of one event delivery.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusRetrying  DeliveryStatus = "retrying"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Delivery error classifications.
const (
	ErrorTypeConfiguration = "configuration_error" // webhook missing or disabled, permanent
	ErrorTypeNetwork       = "network_error"       // transport failure or timeout
	ErrorTypeHTTP          = "http_error"          // non-2xx subscriber response
)

const (
	// MaxResponseBodyLen bounds stored subscriber response bodies.
	MaxResponseBodyLen = 10000
	truncationMarker   = "...[truncated]"
)

// WebhookDelivery is one attempted delivery of one event to one subscription.
// Rows are never deleted; they form the delivery audit trail.
type WebhookDelivery struct {
	ID                 uuid.UUID      `json:"id"`
	WebhookID          uuid.UUID      `json:"webhook_id"`
	EventType          string         `json:"event_type"`
	EventID            uuid.UUID      `json:"event_id"`
	EventData          []byte         `json:"event_data"` // opaque JSON payload
	Status             DeliveryStatus `json:"status"`
	URL                string         `json:"url"` // denormalized from Webhook at enqueue time
	AttemptNumber      int            `json:"attempt_number"`
	MaxAttempts        int            `json:"max_attempts"`
	NextRetryAt        *time.Time     `json:"next_retry_at,omitempty"`
	ResponseStatusCode *int           `json:"response_status_code,omitempty"`
	ResponseBody       *string        `json:"response_body,omitempty"`
	ErrorMessage       *string        `json:"error_message,omitempty"`
	ErrorType          *string        `json:"error_type,omitempty"`
	DurationMS         *int64         `json:"duration_ms,omitempty"`
	TriggeredAt        time.Time      `json:"triggered_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// IsTerminal returns true once the delivery may never transition again.
func (d *WebhookDelivery) IsTerminal() bool {
	return d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusFailed
}

// Processable returns true if a dispatch run may act on this delivery.
// Terminal rows re-selected by a buggy query must be skipped.
func (d *WebhookDelivery) Processable() bool {
	return d.Status == DeliveryStatusPending || d.Status == DeliveryStatusRetrying
}

// RetryDelay computes the backoff before retry attempt n: min(2^n, 60) minutes.
// The sequence for attempts 1..6 is 2, 4, 8, 16, 32, 60 minutes.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// 2^6 already exceeds the cap; clamping here also keeps huge attempt
	// values from overflowing the shift.
	if attempt > 6 {
		return 60 * time.Minute
	}
	minutes := int64(1) << attempt
	if minutes > 60 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

// TruncateBody caps an untrusted subscriber response body at
// MaxResponseBodyLen characters, appending an explicit marker.
func TruncateBody(body string) string {
	if len(body) <= MaxResponseBodyLen {
		return body
	}
	return body[:MaxResponseBodyLen] + truncationMarker
}
