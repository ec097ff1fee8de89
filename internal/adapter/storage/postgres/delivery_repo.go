package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payhula-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DeliveryRepo implements ports.DeliveryRepository.
//
// Status transitions are guarded single-row updates: the WHERE clause only
// matches pending/retrying rows, so delivered and failed stay terminal no
// matter what re-selects them.
type DeliveryRepo struct {
	pool Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(pool Pool) *DeliveryRepo {
	return &DeliveryRepo{pool: pool}
}

const deliveryColumns = `id, webhook_id, event_type, event_id, event_data, status, url,
	attempt_number, max_attempts, next_retry_at, response_status_code, response_body,
	error_message, error_type, duration_ms, triggered_at, created_at, updated_at`

// Create enqueues one delivery row.
func (r *DeliveryRepo) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	query := `INSERT INTO webhook_deliveries
		(id, webhook_id, event_type, event_id, event_data, status, url,
		 attempt_number, max_attempts, next_retry_at, triggered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.WebhookID, d.EventType, d.EventID, d.EventData, d.Status, d.URL,
		d.AttemptNumber, d.MaxAttempts, d.NextRetryAt, d.TriggeredAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook delivery: %w", err)
	}
	return nil
}

// GetByID fetches a delivery by UUID. Returns nil, nil when absent.
func (r *DeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_deliveries WHERE id = $1`, deliveryColumns)

	d, err := scanDelivery(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// FetchDue returns up to limit pending deliveries whose next_retry_at is
// absent or due, oldest triggered_at first (FIFO fairness in selection).
func (r *DeliveryRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]domain.WebhookDelivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_deliveries
		WHERE status IN ('pending', 'retrying')
		  AND (next_retry_at IS NULL OR next_retry_at <= $1)
		ORDER BY triggered_at
		LIMIT $2`, deliveryColumns)

	rows, err := r.pool.Query(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due deliveries: %w", err)
	}
	defer rows.Close()

	var due []domain.WebhookDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery rows: %w", err)
	}
	return due, nil
}

// MarkDelivered records a successful delivery. No-op on terminal rows.
func (r *DeliveryRepo) MarkDelivered(ctx context.Context, id uuid.UUID, statusCode int, body string, durationMS int64) error {
	query := `UPDATE webhook_deliveries
		SET status = 'delivered',
			attempt_number = attempt_number + 1,
			response_status_code = $1,
			response_body = $2,
			error_message = NULL,
			error_type = NULL,
			next_retry_at = NULL,
			duration_ms = $3,
			updated_at = $4
		WHERE id = $5 AND status IN ('pending', 'retrying')`

	_, err := r.pool.Exec(ctx, query, statusCode, domain.TruncateBody(body), durationMS, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark delivery delivered: %w", err)
	}
	return nil
}

// MarkRetrying schedules the next attempt after a transient failure.
func (r *DeliveryRepo) MarkRetrying(ctx context.Context, id uuid.UUID, attempt int, nextRetryAt time.Time, errType, errMsg string, statusCode *int, durationMS int64) error {
	query := `UPDATE webhook_deliveries
		SET status = 'retrying',
			attempt_number = $1,
			next_retry_at = $2,
			error_type = $3,
			error_message = $4,
			response_status_code = $5,
			duration_ms = $6,
			updated_at = $7
		WHERE id = $8 AND status IN ('pending', 'retrying')`

	_, err := r.pool.Exec(ctx, query, attempt, nextRetryAt.UTC(), errType, errMsg, statusCode, durationMS, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark delivery retrying: %w", err)
	}
	return nil
}

// MarkFailed records a permanent failure. The row becomes terminal.
func (r *DeliveryRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempt int, errType, errMsg string, statusCode *int, durationMS int64) error {
	query := `UPDATE webhook_deliveries
		SET status = 'failed',
			attempt_number = $1,
			next_retry_at = NULL,
			error_type = $2,
			error_message = $3,
			response_status_code = $4,
			duration_ms = $5,
			updated_at = $6
		WHERE id = $7 AND status IN ('pending', 'retrying')`

	_, err := r.pool.Exec(ctx, query, attempt, errType, errMsg, statusCode, durationMS, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark delivery failed: %w", err)
	}
	return nil
}

func scanDelivery(row pgx.Row) (*domain.WebhookDelivery, error) {
	d := &domain.WebhookDelivery{}
	err := row.Scan(
		&d.ID, &d.WebhookID, &d.EventType, &d.EventID, &d.EventData, &d.Status, &d.URL,
		&d.AttemptNumber, &d.MaxAttempts, &d.NextRetryAt, &d.ResponseStatusCode, &d.ResponseBody,
		&d.ErrorMessage, &d.ErrorType, &d.DurationMS, &d.TriggeredAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan delivery: %w", err)
	}
	return d, nil
}
