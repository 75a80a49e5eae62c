package domain

import "errors"

// Domain errors represent error conditions in the forwarder.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("loginsight: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("loginsight: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("loginsight: shutdown timeout")

	// ErrDraining is returned by Start() while the dispatcher from a
	// timed-out Stop() is still delivering.
	ErrDraining = errors.New("loginsight: previous dispatcher still draining")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("loginsight: invalid configuration")

	// ErrClosed is returned when an event is received after the dispatcher
	// has drained for shutdown.
	ErrClosed = errors.New("loginsight: dispatcher closed")
)
