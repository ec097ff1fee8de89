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

// OrderRepo implements ports.OrderRepository. Orders are owned by the
// order-management system; only the payment-outcome fields are written here.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// GetByID fetches an order by UUID. Returns nil, nil when absent.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, store_id, payment_status, status, total_amount, currency, created_at, updated_at
		FROM orders WHERE id = $1`

	o := &domain.Order{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.StoreID, &o.PaymentStatus, &o.Status,
		&o.TotalAmount, &o.Currency, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return o, nil
}

// UpdatePaymentOutcome sets payment_status and, when status is non-nil, the
// order status in a single row update.
func (r *OrderRepo) UpdatePaymentOutcome(ctx context.Context, id uuid.UUID, paymentStatus domain.OrderPaymentStatus, status *domain.OrderStatus) error {
	query := `UPDATE orders SET payment_status = $1, status = COALESCE($2, status), updated_at = $3 WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, paymentStatus, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order payment outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}
