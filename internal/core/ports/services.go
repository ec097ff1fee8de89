package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SignatureService handles HMAC-SHA256 signing of outbound payloads and
// verification of inbound ones.
type SignatureService interface {
	Sign(secretKey string, payload []byte) string
	Verify(secretKey string, payload []byte, signature string) bool
	// SignatureHeader renders the wire form: "sha256=<hex>".
	SignatureHeader(secretKey string, payload []byte) string
}

// TokenService validates the service JWT presented by the dispatch trigger.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (string, error) // returns subject
}

// ProcessedMarker is the atomic idempotency guard for inbound webhooks.
type ProcessedMarker interface {
	// Claim atomically marks (transaction, status, provider) as processed.
	// Returns true if this caller won the claim, false if the combination
	// was already fully processed.
	Claim(ctx context.Context, txID uuid.UUID, status string, provider string, ttl time.Duration) (bool, error)
}

// --- Service Ports (Business Logic) ---

// IngestOutcome classifies the result of one inbound gateway webhook.
type IngestOutcome string

const (
	IngestProcessed     IngestOutcome = "processed"
	IngestNoTransaction IngestOutcome = "no_transaction"
	IngestDuplicate     IngestOutcome = "duplicate"
)

// IngestResult is reported back to the HTTP layer.
type IngestResult struct {
	Outcome       IngestOutcome
	TransactionID uuid.UUID
	Status        string
}

// IngestService reconciles inbound payment gateway webhooks.
type IngestService interface {
	Ingest(ctx context.Context, provider string, raw []byte) (*IngestResult, error)
}

// DispatchStats aggregates one dispatch run.
type DispatchStats struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// DispatchService delivers due webhook deliveries to their subscribers.
type DispatchService interface {
	DispatchDue(ctx context.Context) (*DispatchStats, error)
	DispatchOne(ctx context.Context, deliveryID uuid.UUID) (*DispatchStats, error)
}

// EventEnqueuer writes delivery rows for a business event, one per active
// subscription of the store. Consumed by the ingest cascade.
type EventEnqueuer interface {
	Enqueue(ctx context.Context, storeID uuid.UUID, eventType string, eventData []byte) error
}
