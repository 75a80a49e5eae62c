package loginsight

import (
	"context"

	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
)

// Plugin extends a Forwarder. Plugins are initialized in registration order
// when the forwarder starts and shut down in reverse order when it stops.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. A returned error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin.
	Shutdown(ctx context.Context) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	Config    Config
	Logger    log.Logger
	Forwarder *Forwarder
}

// BasePlugin implements Plugin with no-ops.
type BasePlugin struct{}

func (BasePlugin) Name() string                                   { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
