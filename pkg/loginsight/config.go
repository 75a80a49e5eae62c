package loginsight

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
)

// Default configuration values.
const (
	DefaultPort            = 9543
	DefaultProto           = "https"
	DefaultMaxItems        = 100
	DefaultMaxInterval     = time.Second
	DefaultHTTPTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// IngestPath is the ingestion API path; the agent id is appended.
	IngestPath = "/api/v1/events/ingest/"
)

// Config contains the forwarder configuration. Zero values select the
// defaults, so verification and field name sanitizing are on unless
// disabled.
type Config struct {
	// Host is the Log Insight server. Required.
	Host string

	// Port of the ingestion API. Default: 9543
	Port int

	// Proto is "https" or "http". Default: "https"
	Proto string

	// UUID identifies this agent to the server.
	UUID string

	// ID is the instance id, used as agent id when UUID is empty.
	ID string

	// URL replaces the endpoint built from Proto, Host, Port and the agent
	// id when set.
	URL string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string

	// MaxItems is the number of events that triggers a flush. Default: 100
	MaxItems int

	// MaxInterval bounds how long an event is buffered. Default: 1s
	MaxInterval time.Duration

	// HTTPTimeout bounds each delivery request. Default: 60s
	HTTPTimeout time.Duration

	// ShutdownTimeout bounds the final flush in Stop. Default: 30s
	ShutdownTimeout time.Duration

	// DisableSanitize keeps field names as adjusted, invalid characters
	// included.
	DisableSanitize bool

	// AdjustedFields replaces the default adjustment table when non-nil.
	// An empty value drops the field.
	AdjustedFields map[string]string

	// StatusDir enables the status file when set.
	StatusDir string
}

// DefaultConfig returns a Config with every default applied. Host must
// still be set.
func DefaultConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Proto == "" {
		c.Proto = DefaultProto
	}
	if c.MaxItems == 0 {
		c.MaxItems = DefaultMaxItems
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", domain.ErrInvalidConfig)
	}
	if c.Proto != "http" && c.Proto != "https" {
		return fmt.Errorf("%w: proto must be http or https, got %q", domain.ErrInvalidConfig, c.Proto)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidConfig, c.Port)
	}
	if c.MaxItems < 1 {
		return fmt.Errorf("%w: max_items must be at least 1", domain.ErrInvalidConfig)
	}
	if c.MaxInterval <= 0 {
		return fmt.Errorf("%w: max_interval must be positive", domain.ErrInvalidConfig)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: http_timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: url %q is not absolute", domain.ErrInvalidConfig, c.URL)
		}
	}
	return nil
}

// AgentID resolves the identifier sent in the ingestion path: UUID, then
// ID, then "0".
func (c *Config) AgentID() string {
	switch {
	case c.UUID != "":
		return c.UUID
	case c.ID != "":
		return c.ID
	default:
		return "0"
	}
}

// Endpoint returns the ingestion URL.
func (c *Config) Endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Proto + "://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + IngestPath + url.PathEscape(c.AgentID())
}
