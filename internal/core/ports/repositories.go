package ports

import (
	"context"
	"time"

	"payhula-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionStatusUpdate carries the audit fields applied together with a
// transaction status transition.
type TransactionStatusUpdate struct {
	Status       domain.TransactionStatus
	RawPayload   []byte
	ErrorMessage *string
	CompletedAt  *time.Time
	FailedAt     *time.Time
	ResetRetries bool
}

// TransactionRepository defines persistence operations for transactions.
// Methods accepting pgx.Tx run inside the ingest database transaction.
type TransactionRepository interface {
	GetByProviderToken(ctx context.Context, provider, token string) (*domain.Transaction, error)
	// ApplyStatusUpdate writes the status plus audit fields and atomically
	// increments webhook_attempts, returning the new attempt count.
	ApplyStatusUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID, update TransactionStatusUpdate) (int, error)
}

// OrderRepository updates the order fields this core is permitted to touch.
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdatePaymentOutcome(ctx context.Context, id uuid.UUID, paymentStatus domain.OrderPaymentStatus, status *domain.OrderStatus) error
}

// PaymentRepository mutates platform payment records in lockstep with
// transaction status.
type PaymentRepository interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
}

// WebhookRepository reads webhook subscriptions. Subscriptions are managed
// by an external admin surface; this core never writes them.
type WebhookRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Webhook, error)
	ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]domain.Webhook, error)
}

// DeliveryRepository defines persistence for webhook deliveries.
type DeliveryRepository interface {
	Create(ctx context.Context, d *domain.WebhookDelivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error)
	// FetchDue returns up to limit pending deliveries whose next_retry_at is
	// absent or due, oldest triggered_at first.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]domain.WebhookDelivery, error)
	// MarkDelivered / MarkRetrying / MarkFailed apply guarded single-row
	// transitions; terminal rows are never mutated.
	MarkDelivered(ctx context.Context, id uuid.UUID, statusCode int, body string, durationMS int64) error
	MarkRetrying(ctx context.Context, id uuid.UUID, attempt int, nextRetryAt time.Time, errType, errMsg string, statusCode *int, durationMS int64) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempt int, errType, errMsg string, statusCode *int, durationMS int64) error
}

// GatewayEventRepository appends the inbound-webhook audit trail.
type GatewayEventRepository interface {
	Create(ctx context.Context, ev *domain.GatewayEvent) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
