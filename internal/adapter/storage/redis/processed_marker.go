package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ProcessedMarker implements ports.ProcessedMarker using Redis SET NX.
//
// Two near-simultaneous duplicate webhooks for the same (transaction,
// status, provider) race on one atomic SETNX; exactly one of them wins the
// claim and applies side effects.
type ProcessedMarker struct {
	client *goredis.Client
	prefix string
}

// NewProcessedMarker creates a Redis-backed processed marker.
func NewProcessedMarker(client *goredis.Client) *ProcessedMarker {
	return &ProcessedMarker{
		client: client,
		prefix: "ingest:done:",
	}
}

// Claim atomically marks the (transaction, status, provider) combination as
// processed. Returns true if this caller won the claim, false if the
// combination was already processed.
func (m *ProcessedMarker) Claim(ctx context.Context, txID uuid.UUID, status string, provider string, ttl time.Duration) (bool, error) {
	key := m.prefix + txID.String() + ":" + status + ":" + provider
	result, err := m.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — this combination was already processed
			return false, nil
		}
		return false, fmt.Errorf("redis processed-marker claim: %w", err)
	}
	return result == "OK", nil
}
