package scope

import "github.com/AnatoleLucet/scope/internal"

// EvalAsync queues expr to be evaluated during the current digest, or the
// next one if no digest is running.
//
// When nothing is in progress and the queue was empty, a digest is also
// scheduled on the scope's scheduler, so queued expressions eventually run
// even if nobody calls Digest or Apply. EvalAsync never digests synchronously.
func (s *Scope) EvalAsync(expr Expr) {
	if s.phase == PhaseNone && s.asyncQueue.Len() == 0 {
		s.scheduler.Schedule(func() {
			if s.asyncQueue.Len() == 0 {
				return
			}

			if err := s.Digest(); err != nil {
				s.report(err)
			}
		})
	}

	s.asyncQueue.Push(asyncTask{scope: s, expression: expr})
}

func (s *Scope) drainAsync() {
	s.asyncQueue.Drain(func(task asyncTask) {
		p := internal.Try(func() { task.scope.Eval(task.expression, nil) })
		if p != nil {
			s.report(newWatchError(StageEvalAsync, p))
		}
	})
}

// ApplyAsync queues expr to be evaluated in a later turn of the scheduler.
//
// Every expression queued before that turn comes is evaluated in a single
// apply phase, followed by a single digest. Unlike EvalAsync, expr never runs
// within the digest or apply that queued it.
func (s *Scope) ApplyAsync(expr Expr) {
	s.applyAsyncQueue.Push(expr)

	if s.applyAsyncScheduled {
		return
	}
	s.applyAsyncScheduled = true

	s.scheduler.Schedule(s.flushApplyAsync)
}

func (s *Scope) flushApplyAsync() {
	s.applyAsyncScheduled = false

	if s.phase != PhaseNone {
		// nothing ran, the next ApplyAsync schedules another flush
		s.report(&PhaseError{Active: s.phase, Requested: PhaseApply})
		return
	}

	// expressions queued by these ones wait for their own flush
	queued := s.applyAsyncQueue.Take()

	_, err := s.Apply(func(s *Scope, _ any) any {
		for _, expr := range queued {
			if p := internal.Try(func() { s.Eval(expr, nil) }); p != nil {
				s.report(newWatchError(StageApplyAsync, p))
			}
		}

		return nil
	})

	if err != nil {
		s.report(err)
	}
}
