package postgres

import (
	"context"
	"errors"
	"fmt"

	"payhula-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookRepo implements ports.WebhookRepository. Subscriptions are managed
// by the admin surface; this repo is strictly read-only.
type WebhookRepo struct {
	pool Pool
}

// NewWebhookRepo creates a new WebhookRepo.
func NewWebhookRepo(pool Pool) *WebhookRepo {
	return &WebhookRepo{pool: pool}
}

const webhookColumns = `id, store_id, url, secret, custom_headers, verify_ssl, timeout_seconds, status, created_at, updated_at`

// GetByID fetches a webhook subscription. Returns nil, nil when absent.
func (r *WebhookRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhooks WHERE id = $1`, webhookColumns)

	w, err := scanWebhook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

// ListActiveByStore fetches the active subscriptions for a store.
func (r *WebhookRepo) ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]domain.Webhook, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhooks WHERE store_id = $1 AND status = 'active' ORDER BY created_at`, webhookColumns)

	rows, err := r.pool.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list active webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []domain.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook rows: %w", err)
	}
	return hooks, nil
}

func scanWebhook(row pgx.Row) (*domain.Webhook, error) {
	w := &domain.Webhook{}
	err := row.Scan(
		&w.ID, &w.StoreID, &w.URL, &w.Secret, &w.CustomHeaders,
		&w.VerifySSL, &w.TimeoutSeconds, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan webhook: %w", err)
	}
	return w, nil
}
