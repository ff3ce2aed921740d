// Package stream provides transports for the backend's pushed
// change-event stream: NATS for deployments and an in-memory transport
// for tests and local development.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/realtime"
)

// NATSTransport delivers change events over NATS. Each user's events are
// published on "<prefix>.<userID>" as JSON-encoded ChangeEvents.
type NATSTransport struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *zap.Logger
}

// NATSConfig holds transport configuration
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// NewNATSTransport connects to the NATS server
func NewNATSTransport(cfg NATSConfig, logger *zap.Logger) (*NATSTransport, error) {
	opts := []nats.Option{
		nats.Name("wallet-core"),
		nats.Timeout(5 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS", zap.String("url", cfg.URL))

	return &NATSTransport{
		conn:          conn,
		subjectPrefix: cfg.SubjectPrefix,
		logger:        logger,
	}, nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}

// Subscribe starts delivering the user's change events to handler
func (t *NATSTransport) Subscribe(ctx context.Context, userID uuid.UUID, handler func(entities.ChangeEvent)) (realtime.TransportSubscription, error) {
	subject := fmt.Sprintf("%s.%s", t.subjectPrefix, userID)

	sub, err := t.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event entities.ChangeEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.logger.Warn("Dropping undecodable change event",
				zap.String("subject", subject),
				zap.Error(err))
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	t.logger.Info("Subscribed to change stream", zap.String("subject", subject))
	return &natsSubscription{sub: sub}, nil
}

// Close drains and closes the connection
func (t *NATSTransport) Close() {
	if err := t.conn.Drain(); err != nil {
		t.logger.Warn("NATS drain failed", zap.Error(err))
	}
}

// Shutdown implements graceful.Shutdowner
func (t *NATSTransport) Shutdown(timeout time.Duration) error {
	t.Close()
	return nil
}
