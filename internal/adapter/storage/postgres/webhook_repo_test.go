package postgres

import (
	"context"
	"testing"
	"time"

	"payhula-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookColumnNames() []string {
	return []string{"id", "store_id", "url", "secret", "custom_headers", "verify_ssl", "timeout_seconds", "status", "created_at", "updated_at"}
}

func newTestWebhook() *domain.Webhook {
	secret := "whsec_" + uuid.New().String()[:12]
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Webhook{
		ID:             uuid.New(),
		StoreID:        uuid.New(),
		URL:            "https://subscriber.example.com/hook",
		Secret:         &secret,
		CustomHeaders:  map[string]string{"X-Tenant": "acme"},
		VerifySSL:      true,
		TimeoutSeconds: 15,
		Status:         domain.SubscriptionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func webhookRow(w *domain.Webhook) *pgxmock.Rows {
	return pgxmock.NewRows(webhookColumnNames()).AddRow(
		w.ID, w.StoreID, w.URL, w.Secret, w.CustomHeaders,
		w.VerifySSL, w.TimeoutSeconds, w.Status, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWebhookRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookRepo(mock)
	w := newTestWebhook()

	mock.ExpectQuery("SELECT .+ FROM webhooks WHERE id").
		WithArgs(w.ID).
		WillReturnRows(webhookRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.URL, result.URL)
	assert.Equal(t, 15, result.TimeoutSeconds)
	assert.True(t, result.IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM webhooks WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(webhookColumnNames()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRepo_ListActiveByStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookRepo(mock)
	w1 := newTestWebhook()
	w2 := newTestWebhook()
	w2.StoreID = w1.StoreID
	w2.Secret = nil

	rows := pgxmock.NewRows(webhookColumnNames())
	for _, w := range []*domain.Webhook{w1, w2} {
		rows.AddRow(
			w.ID, w.StoreID, w.URL, w.Secret, w.CustomHeaders,
			w.VerifySSL, w.TimeoutSeconds, w.Status, w.CreatedAt, w.UpdatedAt,
		)
	}

	mock.ExpectQuery("SELECT .+ FROM webhooks WHERE store_id").
		WithArgs(w1.StoreID).
		WillReturnRows(rows)

	hooks, err := repo.ListActiveByStore(context.Background(), w1.StoreID)
	require.NoError(t, err)
	require.Len(t, hooks, 2)
	assert.Equal(t, w1.ID, hooks[0].ID)
	assert.Nil(t, hooks[1].Secret)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRepo_ListActiveByStore_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM webhooks WHERE store_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(webhookColumnNames()))

	hooks, err := repo.ListActiveByStore(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Empty(t, hooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}
