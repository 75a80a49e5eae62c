// Package ingest turns raw JSON messages from event sources into events.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
	"github.com/ellieayla/logstash-output-loginsight/pkg/cfapi"
	"github.com/ellieayla/logstash-output-loginsight/pkg/event"
)

// Handler decodes messages and forwards them to a sink.
type Handler struct {
	source string
	sink   ports.Sink
	logger ports.Logger
	now    func() time.Time
}

// NewHandler creates a handler for the named source.
func NewHandler(source string, sink ports.Sink, logger ports.Logger) *Handler {
	return &Handler{
		source: source,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Handle decodes one JSON object and hands it to the sink. Events without
// @timestamp are stamped with the receive time. Undecodable and malformed
// events are logged and skipped; the returned error means the source should
// stop.
func (h *Handler) Handle(ctx context.Context, data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	ev, err := event.Parse(data)
	if err != nil {
		h.logger.Warn("skipping undecodable message",
			ports.String("source", h.source),
			ports.Err(err),
		)
		return nil
	}

	err = h.sink.Receive(ctx, ev.EnsureTimestamp(h.now()))
	var malformed *cfapi.MalformedEventError
	if errors.As(err, &malformed) {
		return nil
	}
	return err
}
