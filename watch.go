package scope

import "github.com/AnatoleLucet/scope/internal"

// WatchFunc derives the observed value from the scope.
type WatchFunc func(s *Scope) any

// ListenerFunc is called when a watched value changes.
// On the first change of a watch, oldValue is newValue.
type ListenerFunc func(newValue, oldValue any, s *Scope)

type watch struct {
	watchFn    WatchFunc
	listenerFn ListenerFunc
	deep       bool

	last any
	// false until the watch function has been evaluated once,
	// so that a first nil value still counts as a change
	evaluated bool

	removed bool
}

// Watch registers watchFn and returns a function removing it.
//
// During a digest watchFn is evaluated on every pass, and listenerFn is called
// whenever its value changed since the previous evaluation. listenerFn may be
// nil. The returned function can be called any number of times, from
// anywhere, including from a watch or a listener in the middle of a digest.
func (s *Scope) Watch(watchFn WatchFunc, listenerFn ListenerFunc, opts ...WatchOption) func() {
	var c watchConfig
	for _, opt := range opts {
		opt(&c)
	}

	if listenerFn == nil {
		listenerFn = func(any, any, *Scope) {}
	}

	w := &watch{
		watchFn:    watchFn,
		listenerFn: listenerFn,
		deep:       c.deep,
	}

	s.registry.Add(w)
	s.lastDirty = nil

	return func() {
		if s.registry.Remove(w) {
			s.lastDirty = nil
		}
	}
}

// WatchOf is the typed version of Scope.Watch.
func WatchOf[T any](s *Scope, watchFn func(s *Scope) T, listenerFn func(newValue, oldValue T, s *Scope), opts ...WatchOption) func() {
	var listener ListenerFunc
	if listenerFn != nil {
		listener = func(newValue, oldValue any, s *Scope) {
			listenerFn(as[T](newValue), as[T](oldValue), s)
		}
	}

	return s.Watch(func(s *Scope) any { return watchFn(s) }, listener, opts...)
}

// check evaluates the watch and compares the result to its last value.
func (w *watch) check(s *Scope) (newValue any, changed bool, p *internal.Panic) {
	p = internal.Try(func() {
		newValue = w.watchFn(s)
		changed = !w.evaluated || !internal.Equal(newValue, w.last, w.deep)
	})

	return newValue, changed, p
}

// record stores newValue as the last value and returns the old value the
// listener should see.
func (w *watch) record(newValue any) (oldValue any) {
	oldValue = w.last
	if !w.evaluated {
		oldValue = newValue
	}

	if w.deep {
		w.last = internal.Copy(newValue)
	} else {
		w.last = newValue
	}
	w.evaluated = true

	return oldValue
}

// registry keeps watches in registration order.
//
// Watches removed while a scan is in progress are left as tombstones so the
// scan's indices stay valid. They are swept out once the scan is over.
type registry struct {
	watches  []*watch
	scanning bool
	dead     int
}

func newRegistry() *registry {
	return &registry{
		watches: make([]*watch, 0),
	}
}

func (r *registry) Add(w *watch) {
	r.watches = append(r.watches, w)
}

// Remove removes w and reports whether it was still registered.
func (r *registry) Remove(w *watch) bool {
	if w.removed {
		return false
	}
	w.removed = true

	if r.scanning {
		r.dead++
		return true
	}

	for i, other := range r.watches {
		if other == w {
			r.watches = append(r.watches[:i], r.watches[i+1:]...)
			break
		}
	}

	return true
}

func (r *registry) Len() int {
	return len(r.watches) - r.dead
}

// Scan calls visit on every live watch, in registration order, until visit
// returns false. Watches added during the scan are visited too.
func (r *registry) Scan(visit func(*watch) bool) {
	r.scanning = true
	defer r.sweep()

	// len is re-read so watches added mid-scan are visited in this pass
	for i := 0; i < len(r.watches); i++ {
		w := r.watches[i]
		if w.removed {
			continue
		}

		if !visit(w) {
			return
		}
	}
}

func (r *registry) sweep() {
	r.scanning = false
	if r.dead == 0 {
		return
	}

	live := r.watches[:0]
	for _, w := range r.watches {
		if !w.removed {
			live = append(live, w)
		}
	}
	clear(r.watches[len(live):])

	r.watches = live
	r.dead = 0
}
