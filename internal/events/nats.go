package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// SubjectOrderSettled is the NATS subject settled orders are published on.
const SubjectOrderSettled = "order.settled"

// NATSPublisher publishes order events to a NATS server.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("storefront"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) PublishOrderSettled(ctx context.Context, event OrderSettled) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order settled event: %w", err)
	}
	if err := p.conn.Publish(SubjectOrderSettled, payload); err != nil {
		return fmt.Errorf("failed to publish order settled event: %w", err)
	}
	p.logger.Debug("order settled event published",
		slog.String("order_id", event.OrderID),
		slog.String("subject", SubjectOrderSettled))
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", slog.String("error", err.Error()))
	}
}
