package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestScope(t *testing.T, opts ...Option) (*Scope, *Loop, *[]error) {
	t.Helper()

	loop := NewLoop()
	errs := &[]error{}

	opts = append([]Option{
		WithScheduler(loop),
		WithErrorHandler(func(err error) { *errs = append(*errs, err) }),
	}, opts...)

	return New(opts...), loop, errs
}

func increment(s *Scope, key string) {
	s.Set(key, Value[int](s, key)+1)
}

func TestScope(t *testing.T) {
	t.Run("can be used as an object", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		s.Set("aProperty", 1)

		assert.Equal(t, 1, s.Get("aProperty"))
		assert.Equal(t, 1, Value[int](s, "aProperty"))
	})

	t.Run("unset properties are zero", func(t *testing.T) {
		s, _, _ := newTestScope(t)

		assert.Nil(t, s.Get("missing"))
		assert.Equal(t, "", Value[string](s, "missing"))
	})

	t.Run("has a unique id", func(t *testing.T) {
		a, _, _ := newTestScope(t)
		b, _, _ := newTestScope(t)

		assert.NotEmpty(t, a.ID())
		assert.NotEqual(t, a.ID(), b.ID())
	})

	t.Run("starts without a phase", func(t *testing.T) {
		s, _, _ := newTestScope(t)

		assert.Equal(t, PhaseNone, s.Phase())
		assert.Equal(t, "", s.Phase().String())
	})
}

func TestEval(t *testing.T) {
	t.Run("executes the expression and returns its result", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		s.Set("aValue", 42)

		result := s.Eval(func(s *Scope, _ any) any { return s.Get("aValue") }, nil)

		assert.Equal(t, 42, result)
	})

	t.Run("passes locals straight through", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		s.Set("aValue", 42)

		result := s.Eval(func(s *Scope, locals any) any {
			return Value[int](s, "aValue") + locals.(int)
		}, 2)

		assert.Equal(t, 44, result)
	})

	t.Run("does not digest", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		s.Set("counter", 0)
		s.Watch(func(s *Scope) any { return s.Get("aValue") }, func(_, _ any, s *Scope) { increment(s, "counter") })

		s.Eval(func(s *Scope, _ any) any { s.Set("aValue", 1); return nil }, nil)

		assert.Equal(t, 0, s.Get("counter"))
		assert.Equal(t, PhaseNone, s.Phase())
	})
}

func TestApply(t *testing.T) {
	t.Run("executes the expression and starts the digest", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		s.Set("aValue", "someValue")
		s.Set("counter", 0)

		s.Watch(func(s *Scope) any { return s.Get("aValue") }, func(_, _ any, s *Scope) { increment(s, "counter") })

		assert.NoError(t, s.Digest())
		assert.Equal(t, 1, s.Get("counter"))

		_, err := s.Apply(func(s *Scope, _ any) any {
			s.Set("aValue", "someOtherValue")
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 2, s.Get("counter"))
	})

	t.Run("returns the expression's result", func(t *testing.T) {
		s, _, _ := newTestScope(t)

		result, err := s.Apply(func(*Scope, any) any { return "result" })

		assert.NoError(t, err)
		assert.Equal(t, "result", result)
	})

	t.Run("exposes the current phase", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		s.Set("aValue", []int{1, 2, 3})

		s.Watch(
			func(s *Scope) any {
				s.Set("phaseInWatchFunction", s.Phase())
				return s.Get("aValue")
			},
			func(_, _ any, s *Scope) {
				s.Set("phaseInListenerFunction", s.Phase())
			},
		)

		_, err := s.Apply(func(s *Scope, _ any) any {
			s.Set("phaseInApplyFunction", s.Phase())
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, PhaseDigest, s.Get("phaseInWatchFunction"))
		assert.Equal(t, PhaseDigest, s.Get("phaseInListenerFunction"))
		assert.Equal(t, PhaseApply, s.Get("phaseInApplyFunction"))
		assert.Equal(t, PhaseNone, s.Phase())
	})

	t.Run("refuses to nest", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		var nested error
		ran := false

		_, err := s.Apply(func(s *Scope, _ any) any {
			_, nested = s.Apply(func(*Scope, any) any {
				ran = true
				return nil
			})
			return nil
		})

		assert.NoError(t, err)
		assert.ErrorIs(t, nested, ErrPhaseInProgress)
		assert.EqualError(t, nested, "apply already in progress")
		assert.False(t, ran)
		assert.Equal(t, PhaseNone, s.Phase())
	})

	t.Run("refuses to digest from a listener", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		var nested error

		s.Watch(func(*Scope) any { return 1 }, func(_, _ any, s *Scope) {
			nested = s.Digest()
		})

		assert.NoError(t, s.Digest())

		var perr *PhaseError
		assert.ErrorAs(t, nested, &perr)
		assert.Equal(t, PhaseDigest, perr.Active)
		assert.Equal(t, PhaseDigest, perr.Requested)
		assert.EqualError(t, nested, "digest already in progress")
	})

	t.Run("digests even if the expression panics", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		s.Set("counter", 0)

		s.Watch(func(s *Scope) any { return s.Get("aValue") }, func(_, _ any, s *Scope) { increment(s, "counter") })

		assert.PanicsWithValue(t, "boom", func() {
			s.Apply(func(s *Scope, _ any) any {
				s.Set("aValue", "abc")
				panic("boom")
			})
		})

		assert.Equal(t, 1, s.Get("counter"))
		assert.Equal(t, PhaseNone, s.Phase())
	})

	t.Run("returns the digest's error", func(t *testing.T) {
		s, _, _ := newTestScope(t)
		s.Set("counter", 0)

		s.Watch(func(s *Scope) any { return s.Get("counter") }, func(_, _ any, s *Scope) { increment(s, "counter") })

		_, err := s.Apply(func(*Scope, any) any { return nil })

		assert.ErrorIs(t, err, ErrDigestNotConverging)
		assert.Equal(t, PhaseNone, s.Phase())
	})
}
