package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"payhula-webhooks/config"
	"payhula-webhooks/internal/core/domain"
	"payhula-webhooks/internal/core/ports"
	"payhula-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Platform headers attached to every outbound delivery.
const (
	headerEvent      = "X-Payhula-Event"
	headerDeliveryID = "X-Payhula-Delivery-Id"
	headerSignature  = "X-Payhula-Signature"
)

// DispatchServiceImpl implements ports.DispatchService. It drains due
// webhook deliveries and POSTs them to subscriber URLs with per-row
// outcome tracking and bounded exponential backoff.
type DispatchServiceImpl struct {
	deliveryRepo   ports.DeliveryRepository
	webhookRepo    ports.WebhookRepository
	sigSvc         ports.SignatureService
	httpClient     HTTPClient
	insecureClient HTTPClient
	cfg            config.DispatchConfig
	log            zerolog.Logger
}

// NewDispatchService creates a new DispatchServiceImpl. insecureClient is
// used for subscriptions with verify_ssl disabled; pass the same client
// twice to refuse insecure egress.
func NewDispatchService(
	deliveryRepo ports.DeliveryRepository,
	webhookRepo ports.WebhookRepository,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	insecureClient HTTPClient,
	cfg config.DispatchConfig,
	log zerolog.Logger,
) *DispatchServiceImpl {
	return &DispatchServiceImpl{
		deliveryRepo:   deliveryRepo,
		webhookRepo:    webhookRepo,
		sigSvc:         sigSvc,
		httpClient:     httpClient,
		insecureClient: insecureClient,
		cfg:            cfg,
		log:            log,
	}
}

// DispatchDue processes one batch of due deliveries concurrently.
// Each delivery is isolated: a failure or panic in one becomes a row
// update and never aborts the rest of the batch.
func (s *DispatchServiceImpl) DispatchDue(ctx context.Context) (*ports.DispatchStats, error) {
	now := time.Now().UTC()
	deliveries, err := s.deliveryRepo.FetchDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("fetch due deliveries: %w", err))
	}

	stats := &ports.DispatchStats{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range deliveries {
		wg.Add(1)
		go func(d domain.WebhookDelivery) {
			defer wg.Done()
			ok := s.processOne(ctx, &d)
			mu.Lock()
			stats.Processed++
			if ok {
				stats.Successful++
			} else {
				stats.Failed++
			}
			mu.Unlock()
		}(deliveries[i])
	}
	wg.Wait()

	s.log.Info().
		Int("processed", stats.Processed).
		Int("successful", stats.Successful).
		Int("failed", stats.Failed).
		Msg("dispatch batch finished")

	return stats, nil
}

// DispatchOne processes a single delivery by ID.
func (s *DispatchServiceImpl) DispatchOne(ctx context.Context, deliveryID uuid.UUID) (*ports.DispatchStats, error) {
	d, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("fetch delivery: %w", err))
	}
	if d == nil || !d.Processable() {
		return nil, apperror.ErrDeliveryNotFound()
	}

	stats := &ports.DispatchStats{Processed: 1}
	if s.processOne(ctx, d) {
		stats.Successful = 1
	} else {
		stats.Failed = 1
	}
	return stats, nil
}

// processOne attempts a single delivery and records the outcome.
// Returns true when the subscriber acknowledged with a 2xx.
func (s *DispatchServiceImpl) processOne(ctx context.Context, d *domain.WebhookDelivery) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("delivery_id", d.ID.String()).
				Interface("panic", r).
				Msg("panic while processing delivery")
			delivered = false
		}
	}()

	if !d.Processable() {
		s.log.Warn().
			Str("delivery_id", d.ID.String()).
			Str("status", string(d.Status)).
			Msg("delivery no longer processable, skipping")
		return false
	}

	webhook, err := s.webhookRepo.GetByID(ctx, d.WebhookID)
	if err != nil {
		// Infrastructure failure, not a subscriber problem. Leave the row
		// untouched so the next batch picks it up again.
		s.log.Error().Err(err).
			Str("delivery_id", d.ID.String()).
			Msg("failed to resolve webhook subscription")
		return false
	}
	if webhook == nil || !webhook.IsActive() {
		s.recordTerminalFailure(ctx, d, domain.ErrorTypeConfiguration, "webhook missing or not active", nil, 0)
		return false
	}

	envelope := domain.NewDeliveryEnvelope(d, time.Now())
	body, err := json.Marshal(envelope)
	if err != nil {
		s.recordTerminalFailure(ctx, d, domain.ErrorTypeConfiguration, fmt.Sprintf("marshal envelope: %v", err), nil, 0)
		return false
	}

	timeout := s.cfg.DefaultTimeout
	if webhook.TimeoutSeconds > 0 {
		timeout = time.Duration(webhook.TimeoutSeconds) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		s.recordTerminalFailure(ctx, d, domain.ErrorTypeConfiguration, fmt.Sprintf("build request: %v", err), nil, 0)
		return false
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set(headerEvent, d.EventType)
	req.Header.Set(headerDeliveryID, d.ID.String())
	for k, v := range webhook.CustomHeaders {
		req.Header.Set(k, v)
	}
	// The signature wins over any custom header of the same name.
	if webhook.Secret != nil && *webhook.Secret != "" {
		req.Header.Set(headerSignature, s.sigSvc.SignatureHeader(*webhook.Secret, body))
	}

	client := s.httpClient
	if !webhook.VerifySSL {
		client = s.insecureClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	durationMS := time.Since(start).Milliseconds()
	if err != nil {
		s.log.Warn().Err(err).
			Str("delivery_id", d.ID.String()).
			Str("url", d.URL).
			Msg("delivery transport failure")
		s.recordFailure(ctx, d, domain.ErrorTypeNetwork, err.Error(), nil, durationMS)
		return false
	}
	defer resp.Body.Close()

	// Only MaxResponseBodyLen characters are ever stored; reading one byte
	// past the cap lets the storage layer detect and mark the truncation
	// without buffering an unbounded subscriber response.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, int64(domain.MaxResponseBodyLen)+1))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := s.deliveryRepo.MarkDelivered(ctx, d.ID, resp.StatusCode, string(respBody), durationMS); err != nil {
			s.log.Error().Err(err).
				Str("delivery_id", d.ID.String()).
				Msg("failed to mark delivery as delivered")
			return false
		}
		s.log.Info().
			Str("delivery_id", d.ID.String()).
			Str("event_type", d.EventType).
			Int("status", resp.StatusCode).
			Int64("duration_ms", durationMS).
			Msg("delivery succeeded")
		return true
	}

	s.recordFailure(ctx, d, domain.ErrorTypeHTTP,
		fmt.Sprintf("subscriber responded %d", resp.StatusCode), &resp.StatusCode, durationMS)
	return false
}

// recordFailure moves the delivery to retrying with backoff, or to the
// terminal failed state once attempts are exhausted.
func (s *DispatchServiceImpl) recordFailure(ctx context.Context, d *domain.WebhookDelivery, errType, errMsg string, statusCode *int, durationMS int64) {
	// Exhaustion is checked against the attempts already consumed, so a
	// delivery fetched at attempt_number = max_attempts - 1 still gets its
	// final retry before going terminal.
	if d.AttemptNumber >= d.MaxAttempts {
		s.recordTerminalFailure(ctx, d, errType, errMsg, statusCode, durationMS)
		return
	}

	newAttempt := d.AttemptNumber + 1
	nextRetryAt := time.Now().UTC().Add(domain.RetryDelay(newAttempt))
	if err := s.deliveryRepo.MarkRetrying(ctx, d.ID, newAttempt, nextRetryAt, errType, errMsg, statusCode, durationMS); err != nil {
		s.log.Error().Err(err).
			Str("delivery_id", d.ID.String()).
			Msg("failed to mark delivery for retry")
		return
	}
	s.log.Warn().
		Str("delivery_id", d.ID.String()).
		Str("error_type", errType).
		Int("attempt", newAttempt).
		Time("next_retry_at", nextRetryAt).
		Msg("delivery scheduled for retry")
}

func (s *DispatchServiceImpl) recordTerminalFailure(ctx context.Context, d *domain.WebhookDelivery, errType, errMsg string, statusCode *int, durationMS int64) {
	// attempt_number never exceeds max_attempts, even on the exhausting attempt.
	newAttempt := d.AttemptNumber + 1
	if newAttempt > d.MaxAttempts {
		newAttempt = d.MaxAttempts
	}
	if err := s.deliveryRepo.MarkFailed(ctx, d.ID, newAttempt, errType, errMsg, statusCode, durationMS); err != nil {
		s.log.Error().Err(err).
			Str("delivery_id", d.ID.String()).
			Msg("failed to mark delivery as failed")
		return
	}
	s.log.Error().
		Str("delivery_id", d.ID.String()).
		Str("error_type", errType).
		Str("error", errMsg).
		Msg("delivery permanently failed")
}
