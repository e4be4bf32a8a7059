package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/falsenine/storefront/internal/domain"
	"github.com/falsenine/storefront/internal/events"
	"github.com/falsenine/storefront/internal/gateway"
	"github.com/falsenine/storefront/internal/telemetry"
)

// SettlementService verifies settlement callbacks and records orders. It is
// the only path from "gateway says paid" to "order exists"; verification
// always runs before any write.
type SettlementService interface {
	// VerifyAndRecord checks the callback signature against the gateway
	// key secret, then writes the order. An unverified signature is fatal
	// (EPAYMENT) and nothing is written, unless the service was built with
	// trust-unverified enabled for offline testing.
	VerifyAndRecord(ctx context.Context, cb gateway.SettlementCallback, order *domain.Order) (string, error)

	// RecordDirect writes an order without settlement verification. Only
	// wired up in test mode; the production router never exposes it.
	RecordDirect(ctx context.Context, order *domain.Order) (string, error)
}

// SettlementConfig configures the settlement service.
type SettlementConfig struct {
	// KeySecret is the gateway key secret used to verify callback
	// signatures.
	KeySecret string

	// TrustUnverified records orders even when the signature does not
	// verify. Exists only so offline test environments without real
	// gateway credentials can exercise the save path. Refused outside
	// test environments at config load.
	TrustUnverified bool
}

type settlementServiceImpl struct {
	ledger    domain.OrderLedger
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
	config    SettlementConfig
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(ledger domain.OrderLedger, publisher events.Publisher, metrics *telemetry.BusinessMetrics, logger *slog.Logger, config SettlementConfig) SettlementService {
	return &settlementServiceImpl{
		ledger:    ledger,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		config:    config,
	}
}

func (s *settlementServiceImpl) VerifyAndRecord(ctx context.Context, cb gateway.SettlementCallback, order *domain.Order) (string, error) {
	const op = "settlement.verify_and_record"

	if !gateway.VerifySignature(cb, s.config.KeySecret) {
		s.metrics.SettlementUnverified.Inc()
		if !s.config.TrustUnverified {
			s.logger.Error("settlement signature mismatch, order not recorded",
				slog.String("order_id", order.OrderID),
				slog.String("gateway_order_id", cb.GatewayOrderID),
				slog.String("gateway_payment_id", cb.GatewayPaymentID))
			return "", domain.Errorf(domain.EPAYMENT, op, "payment could not be verified")
		}
		s.logger.Warn("settlement signature mismatch IGNORED, trust-unverified is enabled",
			slog.String("order_id", order.OrderID),
			slog.String("gateway_order_id", cb.GatewayOrderID))
	} else {
		s.metrics.SettlementVerified.Inc()
	}

	order.Status = domain.OrderStatusPaid
	order.GatewayOrderID = cb.GatewayOrderID
	order.GatewayPaymentID = cb.GatewayPaymentID

	return s.record(ctx, order, op)
}

func (s *settlementServiceImpl) RecordDirect(ctx context.Context, order *domain.Order) (string, error) {
	const op = "settlement.record_direct"

	if order.Status == "" {
		order.Status = domain.OrderStatusPaid
	}
	return s.record(ctx, order, op)
}

func (s *settlementServiceImpl) record(ctx context.Context, order *domain.Order, op string) (string, error) {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	id, err := s.ledger.Save(ctx, order)
	if err != nil {
		if domain.ErrorCode(err) == domain.EINVALID {
			return "", err
		}
		// The customer has been charged and we failed to write the
		// record. The payment id below is the reconciliation handle.
		s.metrics.ReconciliationRequired.Inc()
		s.logger.Error("order persist failed after payment capture, reconciliation required",
			slog.String("order_id", order.OrderID),
			slog.String("gateway_order_id", order.GatewayOrderID),
			slog.String("gateway_payment_id", order.GatewayPaymentID),
			slog.Int64("total_amount", order.TotalAmount),
			slog.String("error", err.Error()))
		return "", domain.Internal(err, op, "order could not be recorded, retry is safe")
	}

	s.metrics.OrdersRecorded.Inc()
	s.metrics.OrderValue.Observe(float64(order.TotalAmount))
	s.logger.Info("order recorded",
		slog.String("order_id", id),
		slog.String("user_id", order.UserID),
		slog.Int64("total_amount", order.TotalAmount))

	if err := s.publisher.PublishOrderSettled(ctx, events.OrderSettled{
		OrderID:          id,
		UserID:           order.UserID,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		GatewayPaymentID: order.GatewayPaymentID,
		SettledAt:        order.CreatedAt,
	}); err != nil {
		// The order is durable; eventing is best-effort.
		s.logger.Warn("order settled event publish failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()))
	}

	return id, nil
}
