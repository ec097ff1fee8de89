package postgres

import (
	"context"
	"fmt"

	"payhula-webhooks/internal/core/domain"
)

// GatewayEventRepo implements ports.GatewayEventRepository. Append-only:
// every inbound gateway webhook leaves a row, whatever its outcome.
type GatewayEventRepo struct {
	pool Pool
}

// NewGatewayEventRepo creates a new GatewayEventRepo.
func NewGatewayEventRepo(pool Pool) *GatewayEventRepo {
	return &GatewayEventRepo{pool: pool}
}

// Create appends one audit row.
func (r *GatewayEventRepo) Create(ctx context.Context, ev *domain.GatewayEvent) error {
	query := `INSERT INTO gateway_events
		(id, provider, provider_token, raw_payload, mapped_status, transaction_id, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		ev.ID, ev.Provider, ev.ProviderToken, ev.RawPayload,
		ev.MappedStatus, ev.TransactionID, ev.Outcome, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert gateway event: %w", err)
	}
	return nil
}
