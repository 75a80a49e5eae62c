package log

import "time"

// Logger is the structured logger forwarder components write to. Messages
// are short lowercase phrases; anything variable goes in fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key/value pair attached to one log line. Adapters render the
// value by its dynamic type.
type Field struct {
	Key   string
	Value any
}

// ErrorKey is the key used by Err.
const ErrorKey = "error"

// Field constructors.
func String(key, value string) Field                 { return Field{key, value} }
func Int(key string, value int) Field                { return Field{key, value} }
func Int64(key string, value int64) Field            { return Field{key, value} }
func Uint64(key string, value uint64) Field          { return Field{key, value} }
func Bool(key string, value bool) Field              { return Field{key, value} }
func Duration(key string, value time.Duration) Field { return Field{key, value} }
func Any(key string, value any) Field                { return Field{key, value} }

// Err attaches err under ErrorKey.
func Err(err error) Field { return Field{ErrorKey, err} }

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger { return discard{} }

type discard struct{}

func (discard) Debug(string, ...Field) {}
func (discard) Info(string, ...Field)  {}
func (discard) Warn(string, ...Field)  {}
func (discard) Error(string, ...Field) {}
