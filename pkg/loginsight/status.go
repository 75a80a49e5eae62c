package loginsight

import (
	"context"
	"sync"
	"time"

	"github.com/ellieayla/logstash-output-loginsight/internal/app"
	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
)

// DeliveryStatus summarizes what the forwarder has accepted and delivered.
type DeliveryStatus = domain.Status

// statusRecorder keeps the delivery status and forwards notifications to the
// user's EventHandler. It persists the status after each batch when a
// repository is configured.
type statusRecorder struct {
	mu      sync.Mutex
	status  domain.Status
	repo    ports.StatusRepository
	logger  ports.Logger
	handler EventHandler
	now     func() time.Time
}

var (
	_ app.StateEmitter    = (*statusRecorder)(nil)
	_ app.DeliveryEmitter = (*statusRecorder)(nil)
)

func newStatusRecorder(status domain.Status, repo ports.StatusRepository, logger ports.Logger, handler EventHandler) *statusRecorder {
	return &statusRecorder{
		status:  status,
		repo:    repo,
		logger:  logger,
		handler: handler,
		now:     time.Now,
	}
}

func (r *statusRecorder) snapshot() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *statusRecorder) OnStateChange(previous, current app.State, reason string) {
	if r.handler == nil {
		return
	}
	r.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (r *statusRecorder) OnEventAccepted(pending int) {
	r.mu.Lock()
	r.status.EventsAccepted++
	r.status.Pending = pending
	r.mu.Unlock()

	if r.handler != nil {
		r.handler.OnAccept(AcceptEvent{Pending: pending})
	}
}

func (r *statusRecorder) OnEventRejected(err error) {
	r.mu.Lock()
	r.status.EventsRejected++
	r.mu.Unlock()

	if r.handler != nil {
		r.handler.OnReject(RejectEvent{Error: err})
	}
}

func (r *statusRecorder) OnBatchDelivered(batchID string, events, bytes int, duration time.Duration, pending int) {
	r.mu.Lock()
	r.status.RecordDelivery(batchID, events, r.now())
	r.status.Pending = pending
	snapshot := r.status
	r.mu.Unlock()

	r.save(snapshot)
	if r.handler != nil {
		r.handler.OnDeliverySuccess(DeliverySuccessEvent{
			BatchID:  batchID,
			Events:   events,
			Bytes:    bytes,
			Duration: duration,
			Pending:  pending,
		})
	}
}

func (r *statusRecorder) OnBatchFailed(batchID string, err error, events, pending int) {
	r.mu.Lock()
	r.status.RecordFailure(batchID, events, err, r.now())
	r.status.Pending = pending
	snapshot := r.status
	r.mu.Unlock()

	r.save(snapshot)
	if r.handler != nil {
		r.handler.OnDeliveryError(DeliveryErrorEvent{
			BatchID: batchID,
			Error:   err,
			Events:  events,
			Pending: pending,
		})
	}
}

// save runs on the dispatcher worker, so writes are never concurrent.
func (r *statusRecorder) save(status domain.Status) {
	if r.repo == nil {
		return
	}
	if err := r.repo.Save(context.Background(), status); err != nil {
		r.logger.Warn("failed to save status", ports.Err(err))
	}
}
