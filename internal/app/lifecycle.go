package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
)

// State represents the lifecycle state of the forwarder.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateEmitter is called when lifecycle state changes.
type StateEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle drives the forwarder state machine and owns the dispatcher
// goroutine: it launches Run, cancels it on Halt and waits for the final
// drain. Only one dispatcher is ever running, including one still draining
// after a timed-out Halt.
type Lifecycle struct {
	mu         sync.Mutex
	state      State
	dispatcher *Dispatcher
	cancel     context.CancelFunc
	logger     ports.Logger
	emitter    StateEmitter
}

// NewLifecycle returns a lifecycle in StateStopped.
func NewLifecycle(logger ports.Logger, emitter StateEmitter) *Lifecycle {
	return &Lifecycle{
		state:   StateStopped,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Dispatcher returns the most recently launched dispatcher, or nil.
func (l *Lifecycle) Dispatcher() *Dispatcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dispatcher
}

// Begin moves to Starting and returns the context plugins and the next
// dispatcher run under. It returns ErrDraining while the previous dispatcher
// has not finished its final flush.
func (l *Lifecycle) Begin(ctx context.Context) (context.Context, error) {
	l.mu.Lock()
	prev := l.state
	if prev != StateStopped && prev != StateCrashed {
		l.mu.Unlock()
		return nil, domain.ErrAlreadyRunning
	}
	if l.dispatcher != nil && !finished(l.dispatcher) {
		l.mu.Unlock()
		return nil, domain.ErrDraining
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state = StateStarting
	l.mu.Unlock()

	l.emit(prev, StateStarting, "Start() called")
	return runCtx, nil
}

// Abort cancels a start in progress and moves to Crashed.
func (l *Lifecycle) Abort(reason string) {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	l.transition(StateCrashed, reason, StateStarting)
}

// Launch runs d under runCtx and moves to Running. When runCtx ends without
// a Halt, cleanup runs and the lifecycle settles in Stopped.
func (l *Lifecycle) Launch(runCtx context.Context, d *Dispatcher, cleanup func()) error {
	l.mu.Lock()
	if l.state != StateStarting {
		l.mu.Unlock()
		return domain.ErrNotRunning
	}
	l.dispatcher = d
	l.state = StateRunning
	l.mu.Unlock()
	l.emit(StateStarting, StateRunning, "dispatcher started")

	go func() {
		err := d.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error("dispatcher error", ports.Err(err))
		}
		if l.transition(StateStopping, "context done", StateRunning) {
			cleanup()
			l.transition(StateStopped, "context done", StateStopping)
		}
	}()
	return nil
}

// Halt cancels the dispatcher and waits up to timeout for its final flush.
// cleanup runs either way. On timeout the lifecycle ends in Crashed and Halt
// returns ErrShutdownTimeout; the dispatcher keeps draining in the
// background and blocks Begin until it is done.
func (l *Lifecycle) Halt(timeout time.Duration, cleanup func()) error {
	l.mu.Lock()
	prev := l.state
	if prev != StateRunning && prev != StateStarting {
		l.mu.Unlock()
		return domain.ErrNotRunning
	}
	l.state = StateStopping
	d, cancel := l.dispatcher, l.cancel
	l.mu.Unlock()
	l.emit(prev, StateStopping, "Stop() called")

	if cancel != nil {
		cancel()
	}

	var err error
	if d != nil {
		select {
		case <-d.Done():
		case <-time.After(timeout):
			l.logger.Warn("shutdown timeout, dispatcher still draining",
				ports.Duration("timeout", timeout),
				ports.Int("pending", d.Pending()),
			)
			err = domain.ErrShutdownTimeout
		}
	}

	cleanup()
	if err != nil {
		l.transition(StateCrashed, "shutdown timeout", StateStopping)
		return err
	}
	l.transition(StateStopped, "graceful shutdown", StateStopping)
	return nil
}

// transition moves to next if the current state is one of from.
func (l *Lifecycle) transition(next State, reason string, from ...State) bool {
	l.mu.Lock()
	prev := l.state
	if !slices.Contains(from, prev) {
		l.mu.Unlock()
		return false
	}
	l.state = next
	l.mu.Unlock()

	l.emit(prev, next, reason)
	return true
}

// emit is called without l.mu held.
func (l *Lifecycle) emit(prev, next State, reason string) {
	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Debug("state transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
}

func finished(d *Dispatcher) bool {
	select {
	case <-d.Done():
		return true
	default:
		return false
	}
}
