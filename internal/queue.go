package internal

// Queue is a FIFO of pending work. Items pushed while the queue is being
// drained are drained in the same pass.
type Queue[T any] struct {
	items []T
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

func (q *Queue[T]) Push(item T) {
	q.items = append(q.items, item)
}

// Shift removes and returns the oldest item.
func (q *Queue[T]) Shift() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]

	return item, true
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Drain calls fn on every item in order until the queue is empty,
// including items pushed by fn itself.
func (q *Queue[T]) Drain(fn func(T)) {
	for {
		item, ok := q.Shift()
		if !ok {
			return
		}

		fn(item)
	}
}

// Take empties the queue and returns what it held.
func (q *Queue[T]) Take() []T {
	items := q.items
	q.items = make([]T, 0)

	return items
}
