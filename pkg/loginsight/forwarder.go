package loginsight

import (
	"context"
	"errors"
	"sync"

	"github.com/ellieayla/logstash-output-loginsight/internal/adapters/fs"
	httpAdapter "github.com/ellieayla/logstash-output-loginsight/internal/adapters/http"
	"github.com/ellieayla/logstash-output-loginsight/internal/app"
	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
	"github.com/ellieayla/logstash-output-loginsight/pkg/cfapi"
	"github.com/ellieayla/logstash-output-loginsight/pkg/event"
)

// Forwarder buffers events and delivers them to a Log Insight server.
// Use New() to create an instance, then Start() to begin delivering.
type Forwarder struct {
	config    Config
	endpoint  string
	lifecycle *app.Lifecycle
	encoder   *cfapi.Encoder
	transport ports.Transport
	logger    ports.Logger
	recorder  *statusRecorder
	plugins   []Plugin

	// serializes Start and Stop
	mu sync.Mutex
}

// New creates a Forwarder with the given configuration.
// The instance is created in StateStopped; call Start() to begin delivering.
// Returns an error wrapping ErrInvalidConfig if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Forwarder, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	transport := o.transport
	if transport == nil {
		client := o.httpClient
		if client == nil {
			c, err := httpAdapter.NewClient(httpAdapter.ClientConfig{
				Timeout:            cfg.HTTPTimeout,
				InsecureSkipVerify: cfg.InsecureSkipVerify,
				CAFile:             cfg.CAFile,
			})
			if err != nil {
				return nil, errors.Join(domain.ErrInvalidConfig, err)
			}
			client = c
		}
		transport = httpAdapter.NewTransport(client, o.userAgent)
	}

	encoderOpts := []cfapi.EncoderOption{}
	if cfg.AdjustedFields != nil {
		encoderOpts = append(encoderOpts, cfapi.WithAdjustments(cfapi.AdjustmentsFromMap(cfg.AdjustedFields)))
	}
	if cfg.DisableSanitize {
		encoderOpts = append(encoderOpts, cfapi.WithoutSanitize())
	}

	endpoint := cfg.Endpoint()
	status := domain.Status{}
	var repo ports.StatusRepository
	if cfg.StatusDir != "" {
		fileRepo := fs.NewStatusFileRepository(cfg.StatusDir)
		prev, err := fileRepo.Load(context.Background())
		if err != nil {
			logger.Warn("ignoring unreadable status file", ports.String("path", fileRepo.Path()), ports.Err(err))
		} else {
			status = prev
		}
		repo = fileRepo
	}
	status.AgentID = cfg.AgentID()
	status.URL = endpoint
	recorder := newStatusRecorder(status, repo, logger, o.eventHandler)

	return &Forwarder{
		config:    cfg,
		endpoint:  endpoint,
		lifecycle: app.NewLifecycle(logger, recorder),
		encoder:   cfapi.NewEncoder(encoderOpts...),
		transport: transport,
		logger:    logger,
		recorder:  recorder,
		plugins:   o.plugins,
	}, nil
}

// Start begins delivering in the background and returns once plugins are
// initialized. Canceling ctx stops the forwarder after a final flush.
// After a Stop that timed out, Start returns ErrDraining until the previous
// dispatcher has finished.
func (f *Forwarder) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	runCtx, err := f.lifecycle.Begin(ctx)
	if err != nil {
		return err
	}

	pluginCfg := PluginConfig{
		Config:    f.config,
		Logger:    f.logger,
		Forwarder: f,
	}
	for i, p := range f.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			f.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			f.shutdownPlugins(f.plugins[:i])
			f.lifecycle.Abort("plugin init failed: " + p.Name())
			return err
		}
		f.logger.Debug("plugin initialized", ports.String("plugin", p.Name()))
	}

	d := app.NewDispatcher(app.DispatcherConfig{
		URL:         f.endpoint,
		MaxItems:    f.config.MaxItems,
		MaxInterval: f.config.MaxInterval,
	}, f.encoder, f.transport, f.logger, f.recorder)

	if err := f.lifecycle.Launch(runCtx, d, func() { f.shutdownPlugins(f.plugins) }); err != nil {
		f.lifecycle.Abort("dispatcher launch failed")
		return err
	}
	f.logger.Info("forwarder started",
		ports.String("url", f.endpoint),
		ports.Int("max_items", f.config.MaxItems),
		ports.Duration("max_interval", f.config.MaxInterval),
	)
	return nil
}

// Receive encodes ev and adds it to the buffer. It never waits for network
// I/O. Malformed events return *cfapi.MalformedEventError and do not affect
// other events.
func (f *Forwarder) Receive(ctx context.Context, ev *event.Event) error {
	d := f.lifecycle.Dispatcher()
	if d == nil {
		return domain.ErrNotRunning
	}
	return d.Receive(ctx, ev)
}

// Flush delivers everything buffered and waits for the outcome.
func (f *Forwarder) Flush(ctx context.Context) error {
	d := f.lifecycle.Dispatcher()
	if d == nil {
		return domain.ErrNotRunning
	}
	return d.Flush(ctx)
}

// Stop flushes buffered events and shuts down plugins. It waits up to
// Config.ShutdownTimeout and returns ErrShutdownTimeout if the final flush
// has not finished by then.
func (f *Forwarder) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lifecycle.Halt(f.config.ShutdownTimeout, func() { f.shutdownPlugins(f.plugins) }); err != nil {
		return err
	}
	f.logger.Info("forwarder stopped")
	return nil
}

func (f *Forwarder) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			f.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		}
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (f *Forwarder) Status() State {
	return convertState(f.lifecycle.State())
}

// DeliveryStatus returns the delivery counters.
func (f *Forwarder) DeliveryStatus() DeliveryStatus {
	s := f.recorder.snapshot()
	s.Pending = f.Pending()
	return s
}

// Pending returns the number of events buffered and not yet delivered.
func (f *Forwarder) Pending() int {
	if d := f.lifecycle.Dispatcher(); d != nil {
		return d.Pending()
	}
	return 0
}

// SetAdjustments replaces the field adjustment table used for events
// received from now on. An empty value drops the field.
func (f *Forwarder) SetAdjustments(fields map[string]string) {
	f.encoder.SetAdjustments(cfapi.AdjustmentsFromMap(fields))
	f.logger.Info("field adjustments updated", ports.Int("rules", len(fields)))
}

// Adjustments returns the current adjustment table.
func (f *Forwarder) Adjustments() map[string]string {
	return f.encoder.Adjustments().Map()
}

// URL returns the ingestion endpoint.
func (f *Forwarder) URL() string {
	return f.endpoint
}

// AgentID returns the agent id used in the endpoint.
func (f *Forwarder) AgentID() string {
	return f.config.AgentID()
}
