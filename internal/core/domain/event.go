package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Business event types emitted by payment reconciliation.
const (
	EventOrderCompleted   = "order.completed"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
)

// PayloadVersion is stamped into every delivery envelope.
const PayloadVersion = "1.0"

// DeliveryEnvelope is the JSON body POSTed to a subscriber URL.
type DeliveryEnvelope struct {
	ID        string           `json:"id"`
	Event     string           `json:"event"`
	Timestamp string           `json:"timestamp"`
	Data      json.RawMessage  `json:"data"`
	Metadata  EnvelopeMetadata `json:"metadata"`
}

type EnvelopeMetadata struct {
	Version string `json:"version"`
}

// NewDeliveryEnvelope builds the outbound payload for a delivery.
func NewDeliveryEnvelope(d *WebhookDelivery, now time.Time) DeliveryEnvelope {
	return DeliveryEnvelope{
		ID:        d.ID.String(),
		Event:     d.EventType,
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      json.RawMessage(d.EventData),
		Metadata:  EnvelopeMetadata{Version: PayloadVersion},
	}
}

// GatewayEventOutcome classifies how an inbound gateway webhook was handled.
type GatewayEventOutcome string

const (
	GatewayOutcomeProcessed GatewayEventOutcome = "processed"
	GatewayOutcomeNotFound  GatewayEventOutcome = "not_found"
	GatewayOutcomeDuplicate GatewayEventOutcome = "duplicate"
	GatewayOutcomeRejected  GatewayEventOutcome = "rejected"
)

// GatewayEvent is the audit row written for every inbound gateway webhook,
// regardless of outcome.
type GatewayEvent struct {
	ID            uuid.UUID           `json:"id"`
	Provider      string              `json:"provider"`
	ProviderToken string              `json:"provider_token"`
	RawPayload    []byte              `json:"-"`
	MappedStatus  TransactionStatus   `json:"mapped_status"`
	TransactionID *uuid.UUID          `json:"transaction_id,omitempty"`
	Outcome       GatewayEventOutcome `json:"outcome"`
	CreatedAt     time.Time           `json:"created_at"`
}
