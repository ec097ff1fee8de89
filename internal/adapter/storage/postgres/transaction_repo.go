package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payhula-webhooks/internal/core/domain"
	"payhula-webhooks/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, provider_token, provider, amount, currency, status,
	order_id, payment_id, store_id, retry_count, webhook_attempts,
	last_webhook_payload, error_message, completed_at, failed_at, created_at, updated_at`

// GetByProviderToken fetches a transaction by gateway provider and invoice token.
// Returns nil, nil when no row exists (premature webhooks are a benign race).
func (r *TransactionRepo) GetByProviderToken(ctx context.Context, provider, token string) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE provider = $1 AND provider_token = $2`, transactionColumns)

	return r.scanTransaction(r.pool.QueryRow(ctx, query, provider, token))
}

// ApplyStatusUpdate writes the status transition plus audit fields in one
// statement, atomically incrementing webhook_attempts and returning the new
// count. Concurrent duplicate webhooks can never lose an increment.
func (r *TransactionRepo) ApplyStatusUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID, update ports.TransactionStatusUpdate) (int, error) {
	retryExpr := "retry_count"
	if update.ResetRetries {
		retryExpr = "0"
	}
	query := fmt.Sprintf(`UPDATE transactions
		SET status = $1,
			last_webhook_payload = $2,
			error_message = COALESCE($3, error_message),
			completed_at = COALESCE($4, completed_at),
			failed_at = COALESCE($5, failed_at),
			retry_count = %s,
			webhook_attempts = webhook_attempts + 1,
			updated_at = $6
		WHERE id = $7
		RETURNING webhook_attempts`, retryExpr)

	var attempts int
	err := tx.QueryRow(ctx, query,
		update.Status, update.RawPayload, update.ErrorMessage,
		update.CompletedAt, update.FailedAt, time.Now().UTC(), id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("transaction not found: %s", id)
		}
		return 0, fmt.Errorf("apply transaction status update: %w", err)
	}
	return attempts, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.ProviderToken, &t.Provider, &t.Amount, &t.Currency, &t.Status,
		&t.OrderID, &t.PaymentID, &t.StoreID, &t.RetryCount, &t.WebhookAttempts,
		&t.LastWebhookPayload, &t.ErrorMessage, &t.CompletedAt, &t.FailedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
