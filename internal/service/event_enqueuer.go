package service

import (
	"context"
	"fmt"
	"time"

	"payhula-webhooks/internal/core/domain"
	"payhula-webhooks/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventEnqueuerImpl implements ports.EventEnqueuer. For one business
// event it fans out a pending delivery row per active subscription of
// the store. The dispatcher picks the rows up later.
type EventEnqueuerImpl struct {
	webhookRepo  ports.WebhookRepository
	deliveryRepo ports.DeliveryRepository
	maxAttempts  int
	log          zerolog.Logger
}

// NewEventEnqueuer creates a new EventEnqueuerImpl.
func NewEventEnqueuer(
	webhookRepo ports.WebhookRepository,
	deliveryRepo ports.DeliveryRepository,
	maxAttempts int,
	log zerolog.Logger,
) *EventEnqueuerImpl {
	return &EventEnqueuerImpl{
		webhookRepo:  webhookRepo,
		deliveryRepo: deliveryRepo,
		maxAttempts:  maxAttempts,
		log:          log,
	}
}

// Enqueue writes one pending delivery per active webhook of the store.
// A store without subscriptions is a no-op, not an error.
func (s *EventEnqueuerImpl) Enqueue(ctx context.Context, storeID uuid.UUID, eventType string, eventData []byte) error {
	webhooks, err := s.webhookRepo.ListActiveByStore(ctx, storeID)
	if err != nil {
		return fmt.Errorf("list active webhooks: %w", err)
	}
	if len(webhooks) == 0 {
		return nil
	}

	eventID := uuid.New()
	now := time.Now().UTC()
	var firstErr error
	for _, wh := range webhooks {
		d := &domain.WebhookDelivery{
			ID:            uuid.New(),
			WebhookID:     wh.ID,
			EventType:     eventType,
			EventID:       eventID,
			EventData:     eventData,
			Status:        domain.DeliveryStatusPending,
			URL:           wh.URL,
			AttemptNumber: 0,
			MaxAttempts:   s.maxAttempts,
			TriggeredAt:   now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.deliveryRepo.Create(ctx, d); err != nil {
			s.log.Error().Err(err).
				Str("webhook_id", wh.ID.String()).
				Str("event_type", eventType).
				Msg("failed to enqueue delivery")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.log.Debug().
			Str("delivery_id", d.ID.String()).
			Str("webhook_id", wh.ID.String()).
			Str("event_type", eventType).
			Msg("delivery enqueued")
	}
	return firstErr
}
