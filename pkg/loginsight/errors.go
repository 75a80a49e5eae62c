package loginsight

import "github.com/ellieayla/logstash-output-loginsight/internal/domain"

// Errors returned by the forwarder; check them with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrDraining        = domain.ErrDraining
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrClosed          = domain.ErrClosed
)
