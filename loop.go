package scope

import (
	"context"

	"github.com/AnatoleLucet/scope/internal"
)

// ErrReentrantRun is returned when a Loop is run from within one of its own tasks.
var ErrReentrantRun = internal.ErrReentrantRun

// Scheduler runs callbacks after the current synchronous turn.
// It must never call fn before Schedule returns.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(fn func())

func (f SchedulerFunc) Schedule(fn func()) { f(fn) }

// Loop is a single-threaded task queue implementing Scheduler.
//
// Tasks may be scheduled from any goroutine. They only run when the loop is
// run, on the goroutine running it, one at a time and in order.
type Loop struct {
	loop *internal.Loop
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{internal.NewLoop()}
}

// DefaultLoop returns the loop shared by every scope created without
// WithScheduler. The host is expected to Serve it, or Drain it at the end of
// each turn, otherwise EvalAsync and ApplyAsync work never runs.
func DefaultLoop() *Loop {
	return &Loop{internal.GetLoop()}
}

// Schedule queues fn. Safe for concurrent use.
func (l *Loop) Schedule(fn func()) { l.loop.Schedule(fn) }

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int { return l.loop.Pending() }

// RunOnce runs one turn: the tasks queued when it was called, but not the
// ones they schedule. It returns how many tasks ran, and the panics they
// raised joined in an error.
func (l *Loop) RunOnce() (int, error) { return l.loop.RunOnce() }

// Drain runs tasks until none are left.
func (l *Loop) Drain() (int, error) { return l.loop.Drain() }

// Serve runs tasks as they come until ctx is done.
func (l *Loop) Serve(ctx context.Context) error { return l.loop.Serve(ctx) }
