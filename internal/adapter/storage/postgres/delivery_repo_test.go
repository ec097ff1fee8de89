package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"payhula-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliveryColumnNames() []string {
	return []string{
		"id", "webhook_id", "event_type", "event_id", "event_data", "status", "url",
		"attempt_number", "max_attempts", "next_retry_at", "response_status_code",
		"response_body", "error_message", "error_type", "duration_ms",
		"triggered_at", "created_at", "updated_at",
	}
}

func newTestDelivery() *domain.WebhookDelivery {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.WebhookDelivery{
		ID:          uuid.New(),
		WebhookID:   uuid.New(),
		EventType:   domain.EventOrderCompleted,
		EventID:     uuid.New(),
		EventData:   []byte(`{"order_id":"ord1"}`),
		Status:      domain.DeliveryStatusPending,
		URL:         "https://subscriber.example.com/hook",
		MaxAttempts: 6,
		TriggeredAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func deliveryRow(d *domain.WebhookDelivery) *pgxmock.Rows {
	return pgxmock.NewRows(deliveryColumnNames()).AddRow(
		d.ID, d.WebhookID, d.EventType, d.EventID, d.EventData, d.Status, d.URL,
		d.AttemptNumber, d.MaxAttempts, d.NextRetryAt, d.ResponseStatusCode,
		d.ResponseBody, d.ErrorMessage, d.ErrorType, d.DurationMS,
		d.TriggeredAt, d.CreatedAt, d.UpdatedAt,
	)
}

func TestDeliveryRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDeliveryRepo(mock)
	d := newTestDelivery()

	mock.ExpectExec("INSERT INTO webhook_deliveries").
		WithArgs(d.ID, d.WebhookID, d.EventType, d.EventID, d.EventData, d.Status, d.URL,
			d.AttemptNumber, d.MaxAttempts, d.NextRetryAt, d.TriggeredAt, d.CreatedAt, d.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), d)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDeliveryRepo(mock)
	d := newTestDelivery()

	mock.ExpectQuery("SELECT .+ FROM webhook_deliveries WHERE id").
		WithArgs(d.ID).
		WillReturnRows(deliveryRow(d))

	result, err := repo.GetByID(context.Background(), d.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, d.ID, result.ID)
	assert.Equal(t, domain.DeliveryStatusPending, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDeliveryRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM webhook_deliveries WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(deliveryColumnNames()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepo_FetchDue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDeliveryRepo(mock)
	d1 := newTestDelivery()
	d2 := newTestDelivery()
	d2.Status = domain.DeliveryStatusRetrying
	d2.AttemptNumber = 2

	rows := pgxmock.NewRows(deliveryColumnNames())
	for _, d := range []*domain.WebhookDelivery{d1, d2} {
		rows.AddRow(
			d.ID, d.WebhookID, d.EventType, d.EventID, d.EventData, d.Status, d.URL,
			d.AttemptNumber, d.MaxAttempts, d.NextRetryAt, d.ResponseStatusCode,
			d.ResponseBody, d.ErrorMessage, d.ErrorType, d.DurationMS,
			d.TriggeredAt, d.CreatedAt, d.UpdatedAt,
		)
	}

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM webhook_deliveries").
		WithArgs(pgxmock.AnyArg(), 50).
		WillReturnRows(rows)

	due, err := repo.FetchDue(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, d1.ID, due[0].ID)
	assert.Equal(t, d2.ID, due[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepo_MarkDelivered_TruncatesBody(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDeliveryRepo(mock)
	id := uuid.New()
	longBody := strings.Repeat("z", 15000)

	mock.ExpectExec("UPDATE webhook_deliveries").
		WithArgs(200, domain.TruncateBody(longBody), int64(120), pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkDelivered(context.Background(), id, 200, longBody, 120)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepo_MarkRetrying(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDeliveryRepo(mock)
	id := uuid.New()
	next := time.Now().UTC().Add(4 * time.Minute)
	code := 503

	mock.ExpectExec("UPDATE webhook_deliveries").
		WithArgs(2, next, domain.ErrorTypeHTTP, "HTTP 503", &code, int64(80), pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkRetrying(context.Background(), id, 2, next, domain.ErrorTypeHTTP, "HTTP 503", &code, 80)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepo_MarkFailed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDeliveryRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE webhook_deliveries").
		WithArgs(6, domain.ErrorTypeNetwork, "request timed out", (*int)(nil), int64(30000), pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkFailed(context.Background(), id, 6, domain.ErrorTypeNetwork, "request timed out", nil, 30000)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
