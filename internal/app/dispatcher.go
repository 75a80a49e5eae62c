package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
	"github.com/ellieayla/logstash-output-loginsight/pkg/cfapi"
	"github.com/ellieayla/logstash-output-loginsight/pkg/event"
)

// DefaultMaxInterval is used when DispatcherConfig.MaxInterval is not set.
const DefaultMaxInterval = time.Second

// DispatchState describes the pending buffer.
type DispatchState int

const (
	// DispatchIdle means nothing is pending.
	DispatchIdle DispatchState = iota
	// DispatchAccumulating means events are pending and no flush runs.
	DispatchAccumulating
	// DispatchFlushing means a drained batch is being delivered.
	DispatchFlushing
)

func (s DispatchState) String() string {
	switch s {
	case DispatchIdle:
		return "Idle"
	case DispatchAccumulating:
		return "Accumulating"
	case DispatchFlushing:
		return "Flushing"
	default:
		return "Unknown"
	}
}

// DispatcherConfig contains configuration for the dispatcher.
type DispatcherConfig struct {
	// URL is the ingestion endpoint every batch is posted to.
	URL string

	// MaxItems is the batch size that triggers a flush.
	MaxItems int

	// MaxInterval bounds how long an event waits in the buffer.
	MaxInterval time.Duration
}

// DeliveryEmitter is notified as events and batches move through the
// dispatcher.
type DeliveryEmitter interface {
	OnEventAccepted(pending int)
	OnEventRejected(err error)
	OnBatchDelivered(batchID string, events, bytes int, duration time.Duration, pending int)
	OnBatchFailed(batchID string, err error, events, pending int)
}

// Dispatcher buffers encoded events and delivers them in batches from a
// single worker goroutine. Receive never performs network I/O.
type Dispatcher struct {
	config    DispatcherConfig
	encoder   *cfapi.Encoder
	transport ports.Transport
	logger    ports.Logger
	emitter   DeliveryEmitter
	batcher   *Batcher
	newID     func() string

	kick     chan struct{}
	flushReq chan chan error
	done     chan struct{}
	flushing atomic.Bool
}

// NewDispatcher creates a dispatcher. Call Run to start delivering.
func NewDispatcher(
	config DispatcherConfig,
	encoder *cfapi.Encoder,
	transport ports.Transport,
	logger ports.Logger,
	emitter DeliveryEmitter,
) *Dispatcher {
	if config.MaxInterval <= 0 {
		config.MaxInterval = DefaultMaxInterval
	}
	batcher := NewBatcher(config.MaxItems)
	config.MaxItems = batcher.MaxItems()

	return &Dispatcher{
		config:    config,
		encoder:   encoder,
		transport: transport,
		logger:    logger,
		emitter:   emitter,
		batcher:   batcher,
		newID:     uuid.NewString,
		kick:      make(chan struct{}, 1),
		flushReq:  make(chan chan error),
		done:      make(chan struct{}),
	}
}

// Receive encodes ev and appends it to the pending buffer. A malformed
// event is logged and rejected without affecting pending events.
func (d *Dispatcher) Receive(ctx context.Context, ev *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec, err := d.encoder.Encode(ev)
	if err != nil {
		d.logger.Warn("skipping malformed event", ports.Err(err))
		if d.emitter != nil {
			d.emitter.OnEventRejected(err)
		}
		return err
	}

	full, pending, err := d.batcher.Add(rec)
	if err != nil {
		return err
	}
	if d.emitter != nil {
		d.emitter.OnEventAccepted(pending)
	}
	if full {
		select {
		case d.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Run delivers batches until ctx is canceled, then drains the buffer one
// last time and returns ctx.Err(). Delivery failures are logged and the
// batch is dropped.
//
// Canceling ctx never aborts a request in flight: deliveries run under a
// context detached from ctx and are bounded by the transport's timeout.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)

	sendCtx := context.WithoutCancel(ctx)
	timer := time.NewTimer(d.config.MaxInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = d.deliver(sendCtx, d.batcher.Close())
			return ctx.Err()
		case <-d.kick:
			_ = d.deliver(sendCtx, d.batcher.TakeFull())
		case <-timer.C:
			_ = d.deliver(sendCtx, d.batcher.TakeAll())
		case reply := <-d.flushReq:
			reply <- d.deliver(sendCtx, d.batcher.TakeAll())
		}
		timer.Reset(d.config.MaxInterval)
	}
}

// Flush delivers everything pending and waits for the result.
func (d *Dispatcher) Flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case d.flushReq <- reply:
	case <-d.done:
		return domain.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Pending returns the number of buffered events.
func (d *Dispatcher) Pending() int {
	return d.batcher.Len()
}

// State reports whether the dispatcher is idle, accumulating or flushing.
func (d *Dispatcher) State() DispatchState {
	if d.flushing.Load() {
		return DispatchFlushing
	}
	if d.batcher.Len() > 0 {
		return DispatchAccumulating
	}
	return DispatchIdle
}

// Encoder returns the encoder used by Receive.
func (d *Dispatcher) Encoder() *cfapi.Encoder {
	return d.encoder
}

func (d *Dispatcher) deliver(ctx context.Context, chunks [][]cfapi.Record) error {
	if len(chunks) == 0 {
		return nil
	}
	d.flushing.Store(true)
	defer d.flushing.Store(false)

	var errs []error
	for _, records := range chunks {
		if err := d.send(ctx, domain.NewBatch(d.newID(), records)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) send(ctx context.Context, batch *domain.Batch) error {
	body, err := batch.Envelope().Marshal()
	if err != nil {
		return d.fail(batch, fmt.Errorf("encode envelope: %w", err))
	}

	start := time.Now()
	err = d.transport.Deliver(ctx, ports.Delivery{
		URL:       d.config.URL,
		Body:      body,
		RequestID: batch.ID,
		Events:    batch.Size(),
	})
	duration := time.Since(start)
	if err != nil {
		return d.fail(batch, err)
	}

	pending := d.batcher.Len()
	d.logger.Debug("sent batch",
		ports.String("batch_id", batch.ID),
		ports.Int("events", batch.Size()),
		ports.Int("bytes", len(body)),
		ports.Duration("duration", duration),
	)
	if d.emitter != nil {
		d.emitter.OnBatchDelivered(batch.ID, batch.Size(), len(body), duration, pending)
	}
	return nil
}

func (d *Dispatcher) fail(batch *domain.Batch, err error) error {
	pending := d.batcher.Len()
	d.logger.Error("delivery failed, dropping batch",
		ports.Err(err),
		ports.String("batch_id", batch.ID),
		ports.Int("events", batch.Size()),
	)
	if d.emitter != nil {
		d.emitter.OnBatchFailed(batch.ID, err, batch.Size(), pending)
	}
	return fmt.Errorf("deliver batch %s: %w", batch.ID, err)
}
