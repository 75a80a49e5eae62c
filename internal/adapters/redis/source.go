// Package redis consumes JSON events pushed onto a Redis list.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ellieayla/logstash-output-loginsight/internal/adapters/ingest"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
)

// Default values for Config.
const (
	DefaultKey         = "logstash"
	DefaultPollTimeout = time.Second
	DefaultRetryWait   = time.Second
)

// Config holds Redis source configuration.
type Config struct {
	// URL is a redis:// or rediss:// URL.
	URL string

	// Key is the list events are popped from.
	Key string

	// PollTimeout bounds each BLPOP so cancellation is noticed. Redis
	// counts whole seconds.
	PollTimeout time.Duration

	// RetryWait is the pause after a failed pop.
	RetryWait time.Duration
}

// Source implements ports.Source by popping from the head of a list.
type Source struct {
	client *redis.Client
	cfg    Config
	logger ports.Logger
}

// Dial parses the URL and checks the server with PING.
func Dial(ctx context.Context, cfg Config, logger ports.Logger) (*Source, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewSource(client, cfg, logger), nil
}

// NewSource wraps an existing client.
func NewSource(client *redis.Client, cfg Config, logger ports.Logger) *Source {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = DefaultRetryWait
	}
	return &Source{client: client, cfg: cfg, logger: logger}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "redis:" + s.cfg.Key }

// Run pops events until ctx is canceled. Pop failures are logged and retried.
// When the sink refuses an event it is pushed back onto the head of the list
// and Run returns the sink's error.
func (s *Source) Run(ctx context.Context, sink ports.Sink) error {
	h := ingest.NewHandler(s.Name(), sink, s.logger)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.client.BLPop(ctx, s.cfg.PollTimeout, s.cfg.Key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Warn("redis pop failed",
				ports.String("key", s.cfg.Key),
				ports.Err(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.RetryWait):
			}
			continue
		}

		// BLPOP replies with [key, value]
		if len(res) != 2 {
			continue
		}
		if err := h.Handle(ctx, []byte(res[1])); err != nil {
			s.requeue(ctx, res[1])
			return err
		}
	}
}

func (s *Source) requeue(ctx context.Context, value string) {
	if err := s.client.LPush(context.WithoutCancel(ctx), s.cfg.Key, value).Err(); err != nil {
		s.logger.Error("redis requeue failed, event lost",
			ports.String("key", s.cfg.Key),
			ports.Err(err),
		)
	}
}

// Close closes the client.
func (s *Source) Close() error {
	return s.client.Close()
}
