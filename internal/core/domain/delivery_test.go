package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelay_Sequence(t *testing.T) {
	want := []time.Duration{
		2 * time.Minute,
		4 * time.Minute,
		8 * time.Minute,
		16 * time.Minute,
		32 * time.Minute,
		60 * time.Minute,
	}
	for i, expected := range want {
		assert.Equal(t, expected, RetryDelay(i+1), "attempt %d", i+1)
	}
}

func TestRetryDelay_CappedAtSixtyMinutes(t *testing.T) {
	assert.Equal(t, 60*time.Minute, RetryDelay(7))
	assert.Equal(t, 60*time.Minute, RetryDelay(20))
	// Shift-width territory must not wrap to a negative delay.
	assert.Equal(t, 60*time.Minute, RetryDelay(63))
	assert.Equal(t, 60*time.Minute, RetryDelay(1<<30))
}

func TestRetryDelay_MonotonicNonDecreasing(t *testing.T) {
	prev := time.Duration(0)
	for n := 1; n <= 10; n++ {
		d := RetryDelay(n)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", n)
		prev = d
	}
}

func TestRetryDelay_FloorsInvalidAttempt(t *testing.T) {
	assert.Equal(t, 2*time.Minute, RetryDelay(0))
	assert.Equal(t, 2*time.Minute, RetryDelay(-3))
}

func TestTruncateBody_ShortBodyUntouched(t *testing.T) {
	assert.Equal(t, "ok", TruncateBody("ok"))
}

func TestTruncateBody_ExactLimitUntouched(t *testing.T) {
	body := strings.Repeat("a", MaxResponseBodyLen)
	assert.Equal(t, body, TruncateBody(body))
}

func TestTruncateBody_LongBodyTruncatedWithMarker(t *testing.T) {
	body := strings.Repeat("x", 15000)
	got := TruncateBody(body)

	assert.Len(t, got, MaxResponseBodyLen+len("...[truncated]"))
	assert.True(t, strings.HasSuffix(got, "...[truncated]"))
	assert.Equal(t, body[:MaxResponseBodyLen], got[:MaxResponseBodyLen])
}

func TestWebhookDelivery_TerminalStates(t *testing.T) {
	d := &WebhookDelivery{Status: DeliveryStatusPending}
	assert.False(t, d.IsTerminal())
	assert.True(t, d.Processable())

	d.Status = DeliveryStatusRetrying
	assert.False(t, d.IsTerminal())
	assert.True(t, d.Processable())

	d.Status = DeliveryStatusDelivered
	assert.True(t, d.IsTerminal())
	assert.False(t, d.Processable())

	d.Status = DeliveryStatusFailed
	assert.True(t, d.IsTerminal())
	assert.False(t, d.Processable())
}

func TestNewDeliveryEnvelope(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	d := &WebhookDelivery{
		ID:        uuid.New(),
		EventType: EventOrderCompleted,
		EventData: []byte(`{"order_id":"ord1","total":5000}`),
	}

	env := NewDeliveryEnvelope(d, now)
	assert.Equal(t, d.ID.String(), env.ID)
	assert.Equal(t, "order.completed", env.Event)
	assert.Equal(t, "2026-03-14T09:26:53Z", env.Timestamp)
	assert.Equal(t, "1.0", env.Metadata.Version)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event":"order.completed"`)
	assert.Contains(t, string(body), `"order_id":"ord1"`)
}

func TestTransaction_IsTerminal(t *testing.T) {
	tx := &Transaction{Status: TransactionStatusProcessing}
	assert.False(t, tx.IsTerminal())

	for _, st := range []TransactionStatus{TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled} {
		tx.Status = st
		assert.True(t, tx.IsTerminal(), "status %s", st)
	}
}
