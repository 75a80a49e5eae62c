package ports

import (
	"context"

	"github.com/ellieayla/logstash-output-loginsight/pkg/event"
)

// Sink accepts events from a Source.
type Sink interface {
	// Receive hands one event to the forwarder. It returns an error for
	// events that cannot be encoded and after the forwarder has stopped.
	Receive(ctx context.Context, ev *event.Event) error
}

// Source reads events from an input until the input is exhausted or ctx is
// canceled.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Run delivers events to sink. It returns nil when a finite input
	// reaches its end and ctx.Err() when canceled.
	Run(ctx context.Context, sink Sink) error

	// Close releases connections held by the source.
	Close() error
}
