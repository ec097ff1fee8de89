package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payhula-webhooks/internal/core/domain"
	"payhula-webhooks/internal/core/ports"
	"payhula-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const processedMarkerTTL = 7 * 24 * time.Hour

// IngestServiceImpl implements ports.IngestService. It reconciles inbound
// payment gateway callbacks against the transaction store and cascades
// terminal outcomes to orders, payments and webhook deliveries.
type IngestServiceImpl struct {
	txRepo      ports.TransactionRepository
	orderRepo   ports.OrderRepository
	paymentRepo ports.PaymentRepository
	eventRepo   ports.GatewayEventRepository
	marker      ports.ProcessedMarker
	enqueuer    ports.EventEnqueuer
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewIngestService creates a new IngestServiceImpl.
func NewIngestService(
	txRepo ports.TransactionRepository,
	orderRepo ports.OrderRepository,
	paymentRepo ports.PaymentRepository,
	eventRepo ports.GatewayEventRepository,
	marker ports.ProcessedMarker,
	enqueuer ports.EventEnqueuer,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *IngestServiceImpl {
	return &IngestServiceImpl{
		txRepo:      txRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		marker:      marker,
		enqueuer:    enqueuer,
		transactor:  transactor,
		log:         log,
	}
}

// Ingest processes one inbound gateway webhook.
func (s *IngestServiceImpl) Ingest(ctx context.Context, provider string, raw []byte) (*ports.IngestResult, error) {
	notice, err := domain.ExtractPaymentNotice(raw)
	if err != nil {
		if errors.Is(err, domain.ErrMissingToken) {
			s.writeAuditEvent(ctx, provider, "", raw, "", nil, domain.GatewayOutcomeRejected)
			return nil, apperror.ErrMissingToken()
		}
		return nil, apperror.InternalError(fmt.Errorf("extract notice: %w", err))
	}

	mapped := domain.MapProviderStatus(notice.Status)

	txn, err := s.txRepo.GetByProviderToken(ctx, provider, notice.Token)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup transaction: %w", err))
	}
	if txn == nil {
		// Benign race: the gateway can fire before our checkout persists
		// the transaction. Acknowledge so the gateway stops retrying.
		s.log.Info().
			Str("provider", provider).
			Str("token", notice.Token).
			Msg("webhook for unknown transaction, ignoring")
		s.writeAuditEvent(ctx, provider, notice.Token, raw, mapped, nil, domain.GatewayOutcomeNotFound)
		return &ports.IngestResult{Outcome: ports.IngestNoTransaction}, nil
	}

	// Same-status replays are suppressed via the Redis claim. A Redis
	// failure degrades to reprocessing the idempotent update, never to
	// rejecting the webhook.
	if mapped == txn.Status {
		won, err := s.marker.Claim(ctx, txn.ID, string(mapped), provider, processedMarkerTTL)
		if err != nil {
			s.log.Warn().Err(err).
				Str("tx_id", txn.ID.String()).
				Msg("processed marker check failed, continuing")
		} else if !won {
			s.log.Info().
				Str("tx_id", txn.ID.String()).
				Str("status", string(mapped)).
				Msg("duplicate webhook suppressed")
			s.writeAuditEvent(ctx, provider, notice.Token, raw, mapped, &txn.ID, domain.GatewayOutcomeDuplicate)
			return &ports.IngestResult{
				Outcome:       ports.IngestDuplicate,
				TransactionID: txn.ID,
				Status:        string(mapped),
			}, nil
		}
	}

	// A completed or failed transaction is never reverted to processing by
	// a stale replay of an earlier webhook.
	if txn.IsTerminal() && mapped == domain.TransactionStatusProcessing {
		s.log.Info().
			Str("tx_id", txn.ID.String()).
			Str("stored_status", string(txn.Status)).
			Msg("stale webhook for terminal transaction, ignoring")
		s.writeAuditEvent(ctx, provider, notice.Token, raw, mapped, &txn.ID, domain.GatewayOutcomeDuplicate)
		return &ports.IngestResult{
			Outcome:       ports.IngestDuplicate,
			TransactionID: txn.ID,
			Status:        string(txn.Status),
		}, nil
	}

	if notice.Amount != nil && txn.OrderID != nil && *notice.Amount != txn.Amount {
		s.log.Warn().
			Str("tx_id", txn.ID.String()).
			Int64("payload_amount", *notice.Amount).
			Int64("expected_amount", txn.Amount).
			Msg("webhook amount mismatch, processing anyway")
	}

	now := time.Now().UTC()
	update := ports.TransactionStatusUpdate{
		Status:     mapped,
		RawPayload: raw,
	}
	switch mapped {
	case domain.TransactionStatusCompleted:
		update.CompletedAt = &now
		update.ResetRetries = true
	case domain.TransactionStatusFailed:
		update.FailedAt = &now
		msg := fmt.Sprintf("gateway %s reported status %q", provider, notice.Status)
		update.ErrorMessage = &msg
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	attempts, err := s.txRepo.ApplyStatusUpdate(ctx, dbTx, txn.ID, update)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("apply status update: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	// Claim the marker after commit so the next replay of this status is
	// recognized as a duplicate. Best-effort.
	if mapped != txn.Status {
		if _, err := s.marker.Claim(ctx, txn.ID, string(mapped), provider, processedMarkerTTL); err != nil {
			s.log.Warn().Err(err).
				Str("tx_id", txn.ID.String()).
				Msg("failed to set processed marker")
		}
	}

	switch mapped {
	case domain.TransactionStatusCompleted:
		s.cascadeCompleted(ctx, txn)
	case domain.TransactionStatusFailed:
		s.cascadeFailed(ctx, txn)
	}

	s.writeAuditEvent(ctx, provider, notice.Token, raw, mapped, &txn.ID, domain.GatewayOutcomeProcessed)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("provider", provider).
		Str("status", string(mapped)).
		Int("webhook_attempts", attempts).
		Msg("webhook processed")

	return &ports.IngestResult{
		Outcome:       ports.IngestProcessed,
		TransactionID: txn.ID,
		Status:        string(mapped),
	}, nil
}

// cascadeCompleted propagates a completed transaction to the payment,
// the order, and the store's webhook subscribers. Each step is isolated:
// the webhook has already been acknowledged, so failures are logged and
// swallowed rather than surfaced to the gateway.
func (s *IngestServiceImpl) cascadeCompleted(ctx context.Context, txn *domain.Transaction) {
	if txn.PaymentID != nil {
		if err := s.paymentRepo.UpdateStatus(ctx, *txn.PaymentID, domain.PaymentStatusCompleted); err != nil {
			s.log.Error().Err(err).
				Str("payment_id", txn.PaymentID.String()).
				Msg("failed to update payment status")
		}
	}

	if txn.OrderID != nil {
		confirmed := domain.OrderStatusConfirmed
		if err := s.orderRepo.UpdatePaymentOutcome(ctx, *txn.OrderID, domain.OrderPaymentPaid, &confirmed); err != nil {
			s.log.Error().Err(err).
				Str("order_id", txn.OrderID.String()).
				Msg("failed to update order status")
		}

		orderData := s.marshalEventData(map[string]any{
			"order_id":       txn.OrderID.String(),
			"store_id":       txn.StoreID.String(),
			"transaction_id": txn.ID.String(),
			"amount":         txn.Amount,
			"currency":       txn.Currency,
			"payment_status": string(domain.OrderPaymentPaid),
		})
		if err := s.enqueuer.Enqueue(ctx, txn.StoreID, domain.EventOrderCompleted, orderData); err != nil {
			s.log.Error().Err(err).
				Str("order_id", txn.OrderID.String()).
				Msg("failed to enqueue order.completed deliveries")
		}
	}

	paymentData := s.marshalEventData(map[string]any{
		"transaction_id": txn.ID.String(),
		"payment_id":     uuidString(txn.PaymentID),
		"order_id":       uuidString(txn.OrderID),
		"provider":       txn.Provider,
		"amount":         txn.Amount,
		"currency":       txn.Currency,
		"status":         string(domain.PaymentStatusCompleted),
	})
	if err := s.enqueuer.Enqueue(ctx, txn.StoreID, domain.EventPaymentCompleted, paymentData); err != nil {
		s.log.Error().Err(err).
			Str("tx_id", txn.ID.String()).
			Msg("failed to enqueue payment.completed deliveries")
	}
}

func (s *IngestServiceImpl) cascadeFailed(ctx context.Context, txn *domain.Transaction) {
	if txn.PaymentID != nil {
		if err := s.paymentRepo.UpdateStatus(ctx, *txn.PaymentID, domain.PaymentStatusFailed); err != nil {
			s.log.Error().Err(err).
				Str("payment_id", txn.PaymentID.String()).
				Msg("failed to update payment status")
		}
	}

	if txn.OrderID != nil {
		if err := s.orderRepo.UpdatePaymentOutcome(ctx, *txn.OrderID, domain.OrderPaymentFailed, nil); err != nil {
			s.log.Error().Err(err).
				Str("order_id", txn.OrderID.String()).
				Msg("failed to update order status")
		}
	}

	failedData := s.marshalEventData(map[string]any{
		"transaction_id": txn.ID.String(),
		"payment_id":     uuidString(txn.PaymentID),
		"order_id":       uuidString(txn.OrderID),
		"provider":       txn.Provider,
		"amount":         txn.Amount,
		"currency":       txn.Currency,
		"status":         string(domain.PaymentStatusFailed),
	})
	if err := s.enqueuer.Enqueue(ctx, txn.StoreID, domain.EventPaymentFailed, failedData); err != nil {
		s.log.Error().Err(err).
			Str("tx_id", txn.ID.String()).
			Msg("failed to enqueue payment.failed deliveries")
	}
}

// writeAuditEvent records one inbound webhook regardless of outcome.
// Best-effort: audit failures never change the gateway-facing response.
func (s *IngestServiceImpl) writeAuditEvent(ctx context.Context, provider, token string, raw []byte, mapped domain.TransactionStatus, txID *uuid.UUID, outcome domain.GatewayEventOutcome) {
	ev := &domain.GatewayEvent{
		ID:            uuid.New(),
		Provider:      provider,
		ProviderToken: token,
		RawPayload:    raw,
		MappedStatus:  mapped,
		TransactionID: txID,
		Outcome:       outcome,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("provider", provider).
			Str("outcome", string(outcome)).
			Msg("failed to write gateway event audit row")
	}
}

func (s *IngestServiceImpl) marshalEventData(data map[string]any) []byte {
	b, err := json.Marshal(data)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal event data")
		return []byte("{}")
	}
	return b
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
