package queue

// Operation is a queue mutation that knows how to undo itself. Apply
// performs the mutation against q and returns a closure that, applied to
// the same (or a replica) queue, reverses it.
type Operation[E any] interface {
	Apply(q *Queue[E]) func(q *Queue[E])
}

// EnqueueOp inserts Value under ID, appending to the insertion order if ID
// was not already present.
type EnqueueOp[E any] struct {
	ID    int64
	Value E
}

func (op EnqueueOp[E]) Apply(q *Queue[E]) func(*Queue[E]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.put(op.ID, op.Value)
}

// RemoveOp deletes the entry stored under ID, if any.
type RemoveOp[E any] struct {
	ID int64
}

func (op RemoveOp[E]) Apply(q *Queue[E]) func(*Queue[E]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	prev, had := q.removeLocked(op.ID)
	if !had {
		return func(*Queue[E]) {}
	}
	captured := prev
	id := op.ID
	return func(q2 *Queue[E]) {
		q2.mu.Lock()
		defer q2.mu.Unlock()
		if _, exists := q2.items[id]; exists {
			return
		}
		q2.items[id] = captured
		q2.order = append(q2.order, id)
	}
}

// ClearOp empties the queue, capturing everything needed to restore it.
type ClearOp[E any] struct{}

func (op ClearOp[E]) Apply(q *Queue[E]) func(*Queue[E]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	savedOrder := append([]int64(nil), q.order...)
	savedItems := make(map[int64]E, len(q.items))
	for k, v := range q.items {
		savedItems[k] = v
	}

	q.order = nil
	q.items = make(map[int64]E)

	return func(q2 *Queue[E]) {
		q2.mu.Lock()
		defer q2.mu.Unlock()
		q2.order = savedOrder
		q2.items = savedItems
	}
}
