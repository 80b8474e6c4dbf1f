package view

// Queue is the FIFO of pending views for one slot.
//
// Not safe for concurrent use: the scheduler guards every queue with its own
// state mutex. Unbounded; callers are expected to pace their submissions.
type Queue struct {
	items []*View
	head  int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends v at the tail.
func (q *Queue) Push(v *View) {
	q.items = append(q.items, v)
}

// Pop removes and returns the head, or nil when empty.
func (q *Queue) Pop() *View {
	if q.head >= len(q.items) {
		return nil
	}
	v := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Compact once the consumed prefix dominates the backing array.
	if q.head > 32 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		for i := n; i < len(q.items); i++ {
			q.items[i] = nil
		}
		q.items = q.items[:n]
		q.head = 0
	}
	return v
}

// Len returns the number of pending views.
func (q *Queue) Len() int {
	return len(q.items) - q.head
}
