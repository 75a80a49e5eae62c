package loginsight

import "time"

// EventHandler receives notifications about forwarder operations.
// Methods are called synchronously; implementations should return quickly.
// Embed BaseEventHandler to implement only some of them.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnAccept(AcceptEvent)
	OnReject(RejectEvent)
	OnDeliverySuccess(DeliverySuccessEvent)
	OnDeliveryError(DeliveryErrorEvent)
}

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// AcceptEvent reports an event added to the buffer.
type AcceptEvent struct {
	Pending int
}

// RejectEvent reports an event that could not be encoded.
type RejectEvent struct {
	Error error
}

// DeliverySuccessEvent reports a batch accepted by the server.
type DeliverySuccessEvent struct {
	BatchID  string
	Events   int
	Bytes    int
	Duration time.Duration
	Pending  int
}

// DeliveryErrorEvent reports a batch that failed and was dropped.
type DeliveryErrorEvent struct {
	BatchID string
	Error   error
	Events  int
	Pending int
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)         {}
func (BaseEventHandler) OnAccept(AcceptEvent)                   {}
func (BaseEventHandler) OnReject(RejectEvent)                   {}
func (BaseEventHandler) OnDeliverySuccess(DeliverySuccessEvent) {}
func (BaseEventHandler) OnDeliveryError(DeliveryErrorEvent)     {}
