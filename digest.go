package scope

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AnatoleLucet/scope/internal"
)

// Digest evaluates every watch until none of them changes.
//
// Each pass first drains the EvalAsync queue, then scans the watches in
// registration order, calling the listeners of the ones that changed. A pass
// that reaches the last watch found dirty without seeing another change ends
// early. Once the TTL is used up with watches still changing, Digest gives up
// and returns a *ConvergenceError.
//
// Panics raised by watches, listeners and async expressions are recovered and
// handed to the error handler. Digest itself only fails with a *PhaseError or
// a *ConvergenceError, and always leaves the scope without an open phase.
func (s *Scope) Digest() (err error) {
	if err := s.beginPhase(PhaseDigest); err != nil {
		return err
	}
	defer s.clearPhase()

	_, span := s.tracer.Start(context.Background(), "scope.digest",
		trace.WithAttributes(
			attribute.String("scope.id", s.id),
			attribute.Int("scope.watches", s.registry.Len()),
		),
	)
	iterations := 0
	defer func() {
		span.SetAttributes(attribute.Int("scope.digest.iterations", iterations))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		s.logger.Debug("scope: digest",
			slog.Int("iterations", iterations),
			slog.Int("watches", s.registry.Len()),
			slog.Any("error", err),
		)
	}()

	s.lastDirty = nil
	ttl := s.ttl

	for {
		s.drainAsync()

		dirty := s.digestOnce()
		iterations++

		if !dirty && s.asyncQueue.Len() == 0 {
			return nil
		}

		if ttl == 0 {
			return &ConvergenceError{TTL: s.ttl}
		}
		ttl--
	}
}

// digestOnce makes one pass over the watches and reports whether any changed.
func (s *Scope) digestOnce() bool {
	dirty := false

	s.registry.Scan(func(w *watch) bool {
		newValue, changed, p := w.check(s)
		if p != nil {
			s.report(newWatchError(StageWatch, p))
			return true
		}

		if !changed {
			// back at the last dirty watch with nothing new: stable
			return s.lastDirty != w
		}

		s.lastDirty = w
		dirty = true

		oldValue := w.record(newValue)
		if p := internal.Try(func() { w.listenerFn(newValue, oldValue, s) }); p != nil {
			s.report(newWatchError(StageListener, p))
		}

		return true
	})

	return dirty
}
