package internal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// ErrReentrantRun is returned when a loop is run from within one of its own tasks.
var ErrReentrantRun = errors.New("loop: cannot run the loop from within one of its tasks")

// Loop is a single-threaded macrotask queue.
//
// Tasks can be scheduled from any goroutine, but they only ever run on the
// goroutine that is currently running the loop, one after the other.
// A task scheduled while another task runs is queued behind it, so it runs
// after the current call stack has fully unwound.
type Loop struct {
	mu    sync.Mutex
	tasks []func()

	// wakes a serving loop up, buffered so Schedule never blocks
	wake chan struct{}

	// goroutine id of whoever is running the loop, 0 if nobody is
	runner atomic.Int64
}

func NewLoop() *Loop {
	return &Loop{
		tasks: make([]func(), 0),
		wake:  make(chan struct{}, 1),
	}
}

// Schedule queues fn to run on a later turn of the loop.
// Schedule is safe for concurrent use.
func (l *Loop) Schedule(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.tasks)
}

// RunOnce runs the tasks that were queued when it was called.
// Tasks they schedule are left for the next turn.
func (l *Loop) RunOnce() (int, error) {
	if err := l.enter(); err != nil {
		return 0, err
	}
	defer l.exit()

	return l.turn()
}

// Drain runs tasks until the queue is empty, including the ones scheduled by
// the tasks themselves.
func (l *Loop) Drain() (int, error) {
	if err := l.enter(); err != nil {
		return 0, err
	}
	defer l.exit()

	var errs []error
	total := 0
	for {
		n, err := l.turn()
		total += n
		if err != nil {
			errs = append(errs, err)
		}
		if n == 0 {
			return total, errors.Join(errs...)
		}
	}
}

// Serve runs tasks as they are scheduled until ctx is done.
// Panics raised by tasks don't stop the loop, they are joined into the
// returned error along with the context's error.
func (l *Loop) Serve(ctx context.Context) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	var errs []error
	for {
		if _, err := l.turn(); err != nil {
			errs = append(errs, err)
		}

		select {
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
			return errors.Join(errs...)
		case <-l.wake:
		}
	}
}

func (l *Loop) enter() error {
	gid := goid.Get()
	if l.runner.Load() == gid {
		return ErrReentrantRun
	}
	if !l.runner.CompareAndSwap(0, gid) {
		return errors.New("loop: already running on another goroutine")
	}

	return nil
}

func (l *Loop) exit() {
	l.runner.Store(0)
}

func (l *Loop) turn() (int, error) {
	l.mu.Lock()
	tasks := l.tasks
	l.tasks = make([]func(), 0)
	l.mu.Unlock()

	var errs []error
	for _, task := range tasks {
		if p := Try(task); p != nil {
			errs = append(errs, p)
		}
	}

	return len(tasks), errors.Join(errs...)
}
