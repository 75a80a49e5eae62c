package cfapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ellieayla/logstash-output-loginsight/pkg/event"
)

// Record is one event in the Log Insight ingestion format.
type Record struct {
	Timestamp int64   `json:"timestamp"`
	Text      string  `json:"text"`
	Fields    []Field `json:"fields"`
}

// MalformedEventError reports an event that cannot be encoded.
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cfapi: malformed event: %s: %v", e.Reason, e.Err)
	}
	return "cfapi: malformed event: " + e.Reason
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// Encoder converts events into records. It is safe for concurrent use; the
// adjustment table may be replaced while encoding is in progress.
type Encoder struct {
	adjustments atomic.Pointer[Adjustments]
	sanitize    bool
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithAdjustments replaces the default adjustment table.
func WithAdjustments(a Adjustments) EncoderOption {
	return func(e *Encoder) {
		e.SetAdjustments(a)
	}
}

// WithoutSanitize keeps adjusted field names as they are instead of
// stripping invalid characters.
func WithoutSanitize() EncoderOption {
	return func(e *Encoder) {
		e.sanitize = false
	}
}

// NewEncoder returns an encoder using DefaultAdjustments and sanitizing
// field names unless configured otherwise.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{sanitize: true}
	e.SetAdjustments(DefaultAdjustments())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetAdjustments swaps the adjustment table used by later Encode calls.
func (e *Encoder) SetAdjustments(a Adjustments) {
	c := a.Clone()
	e.adjustments.Store(&c)
}

// Adjustments returns a copy of the current adjustment table.
func (e *Encoder) Adjustments() Adjustments {
	return (*e.adjustments.Load()).Clone()
}

// Sanitizes reports whether field names are sanitized.
func (e *Encoder) Sanitizes() bool { return e.sanitize }

// Encode converts one event. It fails with *MalformedEventError when the
// event has no usable @timestamp.
func (e *Encoder) Encode(ev *event.Event) (Record, error) {
	tsv, ok := ev.Get(event.TimestampKey)
	if !ok {
		return Record{}, &MalformedEventError{Reason: "missing " + event.TimestampKey}
	}
	ts, err := TimestampMillis(tsv)
	if err != nil {
		return Record{}, &MalformedEventError{Reason: "invalid " + event.TimestampKey, Err: err}
	}

	var text string
	if msg, ok := ev.Get(event.MessageKey); ok {
		text = event.Text(msg)
	}

	adjustments := *e.adjustments.Load()
	return Record{
		Timestamp: ts,
		Text:      text,
		Fields:    adjustments.Apply(Flatten(ev.Fields()), e.sanitize),
	}, nil
}

// TimestampMillis converts a timestamp value into milliseconds since the
// Unix epoch, truncating toward zero. Strings are read as RFC 3339 or as a
// number of seconds; numbers are seconds.
func TimestampMillis(v event.Value) (int64, error) {
	switch t := v.(type) {
	case event.String:
		s := strings.TrimSpace(string(t))
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return unixMillis(ts), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as a timestamp", s)
		}
		return floatMillis(f)
	case event.Int:
		if int64(t) > math.MaxInt64/1000 || int64(t) < math.MinInt64/1000 {
			return 0, fmt.Errorf("seconds value %d out of range", int64(t))
		}
		return int64(t) * 1000, nil
	case event.Float:
		return floatMillis(float64(t))
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func floatMillis(seconds float64) (int64, error) {
	ms := math.Trunc(seconds * 1000)
	if math.IsNaN(ms) || ms >= math.MaxInt64 || ms <= math.MinInt64 {
		return 0, fmt.Errorf("seconds value %v out of range", seconds)
	}
	return int64(ms), nil
}

func unixMillis(t time.Time) int64 {
	sec := t.Unix()
	nsec := int64(t.Nanosecond())
	ms := sec*1000 + nsec/int64(time.Millisecond)
	if sec < 0 && nsec%int64(time.Millisecond) != 0 {
		ms++
	}
	return ms
}
