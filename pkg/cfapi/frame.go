package cfapi

import "encoding/json"

// Envelope is the request body accepted by the ingestion API.
type Envelope struct {
	Events []Record `json:"events"`
}

// Frame wraps records in an envelope. The envelope owns a copy of the
// slice, so the caller may reuse records afterwards.
func Frame(records []Record) Envelope {
	events := make([]Record, len(records))
	copy(events, records)
	return Envelope{Events: events}
}

// Marshal encodes the envelope as compact JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
