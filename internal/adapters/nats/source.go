// Package nats consumes JSON events published on a NATS subject.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ellieayla/logstash-output-loginsight/internal/adapters/ingest"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
)

// Config holds NATS source configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Subject is the subject to consume; wildcards are allowed.
	Subject string

	// Queue joins a queue group when set, so several forwarders share
	// the stream.
	Queue string

	// Name is the client name for connection identification.
	Name string

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout is the connection timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Subject:       "logs.>",
		Name:          "loginsight-forward",
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Source implements ports.Source with a NATS subscription.
type Source struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
	logger  ports.Logger
}

// Dial connects and subscribes. Messages published after Dial returns are
// buffered until Run consumes them.
func Dial(cfg Config, logger ports.Logger) (*Source, error) {
	if cfg.Subject == "" {
		return nil, errors.New("nats: subject is required")
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", ports.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", ports.String("url", c.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var sub *nats.Subscription
	if cfg.Queue != "" {
		sub, err = conn.QueueSubscribeSync(cfg.Subject, cfg.Queue)
	} else {
		sub, err = conn.SubscribeSync(cfg.Subject)
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Subject, err)
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("flush subscription: %w", err)
	}

	return &Source{conn: conn, sub: sub, subject: cfg.Subject, logger: logger}, nil
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "nats:" + s.subject }

// Run forwards messages until ctx is canceled.
func (s *Source) Run(ctx context.Context, sink ports.Sink) error {
	h := ingest.NewHandler(s.Name(), sink, s.logger)
	for {
		msg, err := s.sub.NextMsgWithContext(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("next message: %w", err)
		}
		if err := h.Handle(ctx, msg.Data); err != nil {
			return err
		}
	}
}

// Close unsubscribes and closes the connection.
func (s *Source) Close() error {
	err := s.sub.Unsubscribe()
	s.conn.Close()
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		return nil
	}
	return err
}
