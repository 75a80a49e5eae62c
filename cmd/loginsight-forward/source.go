package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ellieayla/logstash-output-loginsight/internal/adapters/nats"
	"github.com/ellieayla/logstash-output-loginsight/internal/adapters/redis"
	"github.com/ellieayla/logstash-output-loginsight/internal/adapters/stream"
	"github.com/ellieayla/logstash-output-loginsight/internal/cliconfig"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
)

// openSource builds the event source selected by --input.
func openSource(ctx context.Context, cfg cliconfig.Config, logger log.Logger) (ports.Source, error) {
	switch cfg.Input {
	case cliconfig.InputStdin:
		return stream.NewSource("stdin", os.Stdin, logger), nil

	case cliconfig.InputFile:
		src, err := stream.OpenFile(cfg.InputPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		return src, nil

	case cliconfig.InputNATS:
		natsCfg := nats.DefaultConfig()
		if cfg.NATSURL != "" {
			natsCfg.URL = cfg.NATSURL
		}
		natsCfg.Subject = cfg.NATSSubject
		natsCfg.Queue = cfg.NATSQueue
		src, err := nats.Dial(natsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		return src, nil

	case cliconfig.InputRedis:
		src, err := redis.Dial(ctx, redis.Config{URL: cfg.RedisURL, Key: cfg.RedisKey}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return src, nil

	default:
		return nil, fmt.Errorf("unknown input %q", cfg.Input)
	}
}
