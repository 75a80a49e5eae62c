package metrics

import (
	"github.com/ellieayla/logstash-output-loginsight/pkg/loginsight"
)

// Handler records forwarder events in the package collectors. Pass it to
// loginsight.WithEventHandler.
type Handler struct {
	loginsight.BaseEventHandler

	next loginsight.EventHandler
}

// NewHandler returns a Handler that also forwards every event to next when
// next is not nil.
func NewHandler(next loginsight.EventHandler) *Handler {
	return &Handler{next: next}
}

func (h *Handler) OnStateChange(e loginsight.StateChangeEvent) {
	ForwarderState.Set(float64(e.Current))
	if h.next != nil {
		h.next.OnStateChange(e)
	}
}

func (h *Handler) OnAccept(e loginsight.AcceptEvent) {
	EventsReceived.WithLabelValues(ResultAccepted).Inc()
	if h.next != nil {
		h.next.OnAccept(e)
	}
}

func (h *Handler) OnReject(e loginsight.RejectEvent) {
	EventsReceived.WithLabelValues(ResultRejected).Inc()
	if h.next != nil {
		h.next.OnReject(e)
	}
}

func (h *Handler) OnDeliverySuccess(e loginsight.DeliverySuccessEvent) {
	Batches.WithLabelValues(ResultSuccess).Inc()
	EventsDelivered.Add(float64(e.Events))
	DeliveredBytes.Add(float64(e.Bytes))
	DeliveryDuration.Observe(e.Duration.Seconds())
	if h.next != nil {
		h.next.OnDeliverySuccess(e)
	}
}

func (h *Handler) OnDeliveryError(e loginsight.DeliveryErrorEvent) {
	Batches.WithLabelValues(ResultFailure).Inc()
	EventsDropped.Add(float64(e.Events))
	if h.next != nil {
		h.next.OnDeliveryError(e)
	}
}
