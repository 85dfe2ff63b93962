// Package scope implements a dirty-checking change propagation engine.
package scope

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/AnatoleLucet/scope/internal"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

// Phase is the top-level operation currently open on a scope.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseApply
	PhaseDigest
)

func (p Phase) String() string {
	switch p {
	case PhaseApply:
		return "apply"
	case PhaseDigest:
		return "digest"
	default:
		return ""
	}
}

// Expr is an expression evaluated against a scope.
type Expr func(s *Scope, locals any) any

type asyncTask struct {
	scope      *Scope
	expression Expr
}

// Scope holds observable state and the watches observing it.
//
// A Scope is not safe for concurrent use. Work coming from other goroutines
// should be handed to the scope's scheduler, see Loop.
type Scope struct {
	id     string
	values map[string]any

	registry  *registry
	lastDirty *watch

	asyncQueue *internal.Queue[asyncTask]

	applyAsyncQueue     *internal.Queue[Expr]
	applyAsyncScheduled bool

	phase Phase

	scheduler Scheduler
	ttl       int
	logger    *slog.Logger
	onError   func(error)
	tracer    trace.Tracer
}

// New creates an empty scope.
func New(opts ...Option) *Scope {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}

	s := &Scope{
		id:              uuid.NewString(),
		values:          make(map[string]any),
		registry:        newRegistry(),
		asyncQueue:      internal.NewQueue[asyncTask](),
		applyAsyncQueue: internal.NewQueue[Expr](),
		scheduler:       c.scheduler,
		ttl:             c.ttl,
		logger:          c.logger,
		onError:         c.onError,
		tracer:          c.tracer,
	}

	if s.scheduler == nil {
		s.scheduler = DefaultLoop()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("scope.id", s.id))
	if s.onError == nil {
		s.onError = s.logError
	}

	return s
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string { return s.id }

// Set assigns a property on the scope.
func (s *Scope) Set(key string, value any) { s.values[key] = value }

// Get reads a property of the scope, nil if it was never set.
func (s *Scope) Get(key string) any { return s.values[key] }

// Value reads a property of the scope as a T, the zero T if it was never set.
func Value[T any](s *Scope, key string) T {
	return as[T](s.Get(key))
}

// Phase returns the phase currently open on the scope.
func (s *Scope) Phase() Phase { return s.phase }

// Len returns the number of registered watches.
func (s *Scope) Len() int { return s.registry.Len() }

// Eval calls expr with the scope and locals and returns its result.
// It does not digest.
func (s *Scope) Eval(expr Expr, locals any) any {
	return expr(s, locals)
}

// Apply evaluates expr in the apply phase, then digests the scope.
//
// The digest runs even if expr panics, in which case the panic propagates
// once the digest is done. The returned error is a *PhaseError if a phase was
// already open (expr is not evaluated), or the digest's error.
func (s *Scope) Apply(expr Expr) (result any, err error) {
	if err := s.beginPhase(PhaseApply); err != nil {
		return nil, err
	}
	defer func() {
		s.clearPhase()
		if derr := s.Digest(); derr != nil {
			err = derr
		}
	}()

	return s.Eval(expr, nil), nil
}

func (s *Scope) beginPhase(phase Phase) error {
	if s.phase != PhaseNone {
		return &PhaseError{Active: s.phase, Requested: phase}
	}

	s.phase = phase
	return nil
}

func (s *Scope) clearPhase() {
	s.phase = PhaseNone
}

func (s *Scope) report(err error) {
	s.onError(err)
}

func (s *Scope) logError(err error) {
	attrs := []any{slog.Any("error", err)}

	var werr *WatchError
	if errors.As(err, &werr) {
		attrs = append(attrs, slog.String("stage", string(werr.Stage)))
		s.logger.Error("scope: watch failed", attrs...)
		return
	}

	s.logger.Error("scope: scheduled digest failed", attrs...)
}
