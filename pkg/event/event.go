// Package event holds the structured log records accepted by the forwarder.
//
// An Event wraps an ordered tree of tagged values. Leaves are String, Int,
// Float, Bool or Null; branches are List and *Object. Events are treated as
// immutable once handed to the forwarder.
package event

import (
	"time"
)

// Well-known field names set by the upstream pipeline.
const (
	TimestampKey = "@timestamp"
	VersionKey   = "@version"
	MessageKey   = "message"
)

// Event is one structured log record.
type Event struct {
	fields *Object
}

// New wraps fields in an Event. A nil object yields an empty event.
func New(fields *Object) *Event {
	if fields == nil {
		fields = NewObject()
	}
	return &Event{fields: fields}
}

// Parse decodes a JSON object into an Event.
func Parse(data []byte) (*Event, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return New(obj), nil
}

// Get returns a top-level field.
func (e *Event) Get(key string) (Value, bool) {
	return e.fields.Get(key)
}

// Fields returns the event's top-level object. Callers must not modify it.
func (e *Event) Fields() *Object {
	return e.fields
}

// EnsureTimestamp returns e unchanged if it carries a timestamp, otherwise a
// copy with @timestamp set to t placed before the other fields.
func (e *Event) EnsureTimestamp(t time.Time) *Event {
	if _, ok := e.fields.Get(TimestampKey); ok {
		return e
	}
	obj := NewObject().Set(TimestampKey, String(FormatTimestamp(t)))
	e.fields.Range(func(k string, v Value) bool {
		obj.Set(k, v)
		return true
	})
	return &Event{fields: obj}
}

// MarshalJSON encodes the event's fields.
func (e *Event) MarshalJSON() ([]byte, error) {
	return e.fields.MarshalJSON()
}

// FormatTimestamp renders t the way @timestamp values are written.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
