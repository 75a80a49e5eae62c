package loginsight

import (
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Transport delivers framed batches; see WithTransport.
type Transport = ports.Transport

// Delivery is one outbound request handed to a Transport.
type Delivery = ports.Delivery

// Option configures optional behavior of a Forwarder.
type Option func(*options)

type options struct {
	httpClient   HTTPClient
	transport    Transport
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	userAgent    string
}

func defaultOptions() options {
	return options{
		logger:    log.NewNoopLogger(),
		userAgent: "loginsight-forward",
	}
}

// WithHTTPClient sets the client used by the default transport. When set,
// the TLS options of Config are not applied.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTransport replaces the HTTP transport entirely.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for forwarder events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the forwarder starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithUserAgent sets the User-Agent header of the default transport.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}
