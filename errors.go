package scope

import (
	"errors"
	"fmt"

	"github.com/AnatoleLucet/scope/internal"
)

var (
	// ErrPhaseInProgress is matched by errors returned when Apply or Digest is
	// called while another phase is already open on the same scope.
	ErrPhaseInProgress = errors.New("phase already in progress")

	// ErrDigestNotConverging is matched by errors returned when watches keep
	// changing after the scope's TTL is exhausted.
	ErrDigestNotConverging = errors.New("digest not converging")
)

type PhaseError struct {
	// the phase that was open
	Active Phase
	// the phase that was refused
	Requested Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s already in progress", e.Active)
}

func (e *PhaseError) Is(target error) bool {
	return target == ErrPhaseInProgress
}

type ConvergenceError struct {
	TTL int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%d digest iterations reached", e.TTL)
}

func (e *ConvergenceError) Is(target error) bool {
	return target == ErrDigestNotConverging
}

// Stage tells where a recovered panic was raised.
type Stage string

const (
	StageWatch      Stage = "watch"
	StageListener   Stage = "listener"
	StageEvalAsync  Stage = "evalAsync"
	StageApplyAsync Stage = "applyAsync"
)

// WatchError carries a panic recovered during a digest.
// These never abort a digest, they are handed to the scope's error handler.
type WatchError struct {
	Stage Stage
	Value any
	Stack []byte
}

func newWatchError(stage Stage, p *internal.Panic) *WatchError {
	return &WatchError{Stage: stage, Value: p.Value, Stack: p.Stack}
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Stage, e.Value)
}

func (e *WatchError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// PanicError is a panic recovered by a Loop while running one of its tasks.
type PanicError = internal.Panic
