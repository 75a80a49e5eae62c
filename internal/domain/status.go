package domain

import "time"

// Status is the delivery summary written to the status file after each
// flush.
type Status struct {
	AgentID string `json:"agent_id"`
	URL     string `json:"url"`

	EventsAccepted  uint64 `json:"events_accepted"`
	EventsRejected  uint64 `json:"events_rejected"`
	EventsDelivered uint64 `json:"events_delivered"`
	EventsDropped   uint64 `json:"events_dropped"`

	BatchesDelivered uint64 `json:"batches_delivered"`
	BatchesFailed    uint64 `json:"batches_failed"`

	Pending int `json:"pending"`

	LastBatchID string    `json:"last_batch_id,omitempty"`
	LastFlush   time.Time `json:"last_flush,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecordDelivery updates the status after a successful delivery.
func (s *Status) RecordDelivery(batchID string, events int, at time.Time) {
	s.BatchesDelivered++
	s.EventsDelivered += uint64(events)
	s.LastBatchID = batchID
	s.LastFlush = at
	s.UpdatedAt = at
}

// RecordFailure updates the status after a failed delivery. The batch's
// events are counted as dropped.
func (s *Status) RecordFailure(batchID string, events int, err error, at time.Time) {
	s.BatchesFailed++
	s.EventsDropped += uint64(events)
	s.LastBatchID = batchID
	s.LastFlush = at
	if err != nil {
		s.LastError = err.Error()
		s.LastErrorAt = at
	}
	s.UpdatedAt = at
}
