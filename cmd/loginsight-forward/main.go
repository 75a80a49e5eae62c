package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/ellieayla/logstash-output-loginsight/internal/cliconfig"
	"github.com/ellieayla/logstash-output-loginsight/internal/metrics"
	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
	"github.com/ellieayla/logstash-output-loginsight/pkg/loginsight"
	"github.com/ellieayla/logstash-output-loginsight/plugins/adjustwatcher"
)

const helpDescription = `
Forward structured log events to a VMware Log Insight server.

Each input line or message is one JSON event. Events are flattened, field
names are adjusted and sanitized, and batches are posted to the Log Insight
ingestion API (/api/v1/events/ingest/{agent id}).

Highlights:
  - Batches by size (--max-items) and age (--max-interval).
  - Reads JSON lines from stdin or a file, a NATS subject, or a Redis list.
  - adjusted_fields in the config file is reloaded when the file changes.
  - Configure via file, env (LOGINSIGHT_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  tail -F app.json | loginsight-forward --host li.example.com --uuid $(cat /etc/machine-id)
  loginsight-forward --config /etc/loginsight/config.toml --input nats --nats-subject 'logs.>'
  loginsight-forward --host li.example.com --input redis --redis-url redis://localhost:6379/0
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, adjusted string

	root := &cobra.Command{
		Use:           "loginsight-forward",
		Short:         "Forward structured log events to VMware Log Insight",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if changed["adjusted-fields"] {
				m, err := cliconfig.ParseAdjustments(adjusted)
				if err != nil {
					return fmt.Errorf("parse adjusted-fields: %w", err)
				}
				cfg.AdjustedFields = m
			}

			watchFile := ""
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				watchFile = cfgFile
			}

			// LOGINSIGHT_* override the file but not explicit flags
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := log.NewConsoleLogger(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, watchFile, changed["adjusted-fields"], logger)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.loginsight/config.toml)")

	flags.StringVar(&cfg.Host, "host", cfg.Host, "Log Insight server host")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "ingestion API port")
	flags.StringVar(&cfg.Proto, "proto", cfg.Proto, "http or https")
	flags.StringVar(&cfg.UUID, "uuid", cfg.UUID, "agent id used in the ingestion URL")
	flags.StringVar(&cfg.ID, "id", cfg.ID, "instance id, used as agent id when --uuid is not set")
	flags.StringVar(&cfg.URL, "url", cfg.URL, "full ingestion URL, overrides host/port/proto")
	if err := flags.MarkDeprecated("url", "use --host, --port and --proto"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	flags.BoolVar(&cfg.Verify, "verify", cfg.Verify, "verify the server certificate")
	flags.StringVar(&cfg.CAFile, "ca-file", cfg.CAFile, "PEM file with additional CA certificates")

	flags.IntVar(&cfg.MaxItems, "max-items", cfg.MaxItems, "events per batch")
	flags.DurationVar(&cfg.MaxInterval, "max-interval", cfg.MaxInterval, "maximum time an event waits before delivery")
	flags.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time allowed for the final flush")

	flags.BoolVar(&cfg.SanitizeFieldNames, "sanitize", cfg.SanitizeFieldNames, "strip characters other than [A-Za-z0-9_] from field names")
	flags.StringVar(&adjusted, "adjusted-fields", "", "field renames as name=replacement pairs; an empty replacement drops the field")

	flags.StringVar(&cfg.StatusDir, "status-dir", cfg.StatusDir, "directory for status.json (disabled when empty)")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve /metrics on (disabled when empty)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	flags.StringVar(&cfg.Input, "input", cfg.Input, "event source: stdin, file, nats or redis")
	flags.StringVar(&cfg.InputPath, "input-path", cfg.InputPath, "file to read for --input file")
	flags.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL")
	flags.StringVar(&cfg.NATSSubject, "nats-subject", cfg.NATSSubject, "NATS subject to consume")
	flags.StringVar(&cfg.NATSQueue, "nats-queue", cfg.NATSQueue, "NATS queue group")
	flags.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL")
	flags.StringVar(&cfg.RedisKey, "redis-key", cfg.RedisKey, "Redis list to pop events from")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "loginsight-forward: %v\n", err)
		os.Exit(1)
	}
}

func run(parent context.Context, cfg cliconfig.Config, watchFile string, adjustFlag bool, logger log.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	libCfg := cfg.ToConfig()
	logger.Info("configuration",
		log.String("url", libCfg.Endpoint()),
		log.String("agent_id", libCfg.AgentID()),
		log.Int("max_items", cfg.MaxItems),
		log.Duration("max_interval", cfg.MaxInterval),
		log.String("input", cfg.Input),
		log.Bool("verify", cfg.Verify),
	)

	opts := []loginsight.Option{
		loginsight.WithLogger(logger),
		loginsight.WithUserAgent("loginsight-forward/" + getVersion()),
		loginsight.WithEventHandler(metrics.NewHandler(nil)),
	}
	// an explicit flag pins the table
	if watchFile != "" && !adjustFlag {
		opts = append(opts, adjustwatcher.WithAdjustWatcher(adjustwatcher.Config{Path: watchFile}))
	}

	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, logger)
		metricsSrv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	fwd, err := loginsight.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create forwarder: %w", err)
	}
	metrics.SetPendingSource(fwd.Pending)

	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := fwd.Start(context.Background()); err != nil {
		return fmt.Errorf("start forwarder: %w", err)
	}

	// stdin reads cannot be interrupted, so the source runs on its own
	runErr := make(chan error, 1)
	go func() { runErr <- src.Run(ctx, fwd) }()

	var srcErr error
	select {
	case <-ctx.Done():
		logger.Info("received signal, stopping")
	case srcErr = <-runErr:
		if srcErr == nil {
			logger.Info("input finished", log.String("source", src.Name()))
		} else if !errors.Is(srcErr, context.Canceled) {
			logger.Error("input failed", log.String("source", src.Name()), log.Err(srcErr))
		}
	}

	if err := fwd.Stop(); err != nil {
		return fmt.Errorf("stop forwarder: %w", err)
	}
	st := fwd.DeliveryStatus()
	logger.Info("forwarder summary",
		log.Uint64("events_delivered", st.EventsDelivered),
		log.Uint64("events_dropped", st.EventsDropped),
		log.Uint64("events_rejected", st.EventsRejected),
	)
	if srcErr != nil && !errors.Is(srcErr, context.Canceled) {
		return srcErr
	}
	return nil
}
