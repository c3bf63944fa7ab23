// Package wait implements the wait queue described in spec.md §4.F: an
// ordered set of blocked waiters (FIFO or priority order) layered over
// internal/list, generic over whatever pool owns the waiting entities so
// that tasks, semaphores, event groups, mutexes, and timers can all
// queue the same way.
package wait

import "github.com/r3go-kernel/r3go/internal/list"

// Order selects how Queue.Enqueue orders newly-queued waiters relative
// to existing ones.
type Order int

const (
	// FIFO orders waiters strictly by arrival time.
	FIFO Order = iota
	// ByPriority orders waiters by Members.Priority, ties broken by
	// arrival time (a later arrival with equal priority queues behind
	// an earlier one, never ahead of it).
	ByPriority
)

// Members is implemented by whatever pool owns the waiting entities (in
// practice, task.Pool). It is declared here, rather than depending on
// task directly, to avoid a Queue<->Pool import cycle: pools that want
// to be waited-on implement this small interface against their own
// storage.
type Members interface {
	list.Accessor
	// Priority returns the effective scheduling priority of member i.
	// Lower numeric value means higher priority, the convention
	// task.Pool and internal/prio both use.
	Priority(i int) int
}

// Queue is an ordered set of waiters, backed by an intrusive list over
// caller-owned storage.
type Queue struct {
	order   Order
	members Members
	list    *list.List
}

// New constructs an empty Queue with the given ordering discipline.
func New(order Order, members Members) *Queue {
	return &Queue{order: order, members: members, list: list.New(members)}
}

// Empty reports whether the queue has no waiters.
func (q *Queue) Empty() bool { return q.list.Empty() }

// Enqueue adds the not-currently-linked member i to the queue, according
// to the queue's ordering discipline.
func (q *Queue) Enqueue(i int) {
	if q.order == FIFO || q.list.Empty() {
		q.list.PushBack(i)
		return
	}

	pi := q.members.Priority(i)
	inserted := false
	q.list.Iter(func(j int) bool {
		if q.members.Priority(j) > pi {
			q.list.InsertBefore(i, j)
			inserted = true
			return false
		}
		return true
	})
	if !inserted {
		q.list.PushBack(i)
	}
}

// Dequeue removes and returns the queue's front waiter.
func (q *Queue) Dequeue() (int, bool) { return q.list.PopFront() }

// Front returns the queue's front waiter without removing it.
func (q *Queue) Front() (int, bool) { return q.list.Front() }

// Remove unlinks member i from the queue. i must currently be queued.
func (q *Queue) Remove(i int) { q.list.Remove(i) }

// Iter visits every waiter, front to back, stopping early if f returns
// false.
func (q *Queue) Iter(f func(i int) bool) { q.list.Iter(f) }

// WakeAllConditional visits every waiter and invokes wake for each one
// f reports true for, removing each woken waiter from the queue. Per
// SPEC_FULL.md Part A §9 (Open Question resolution), this always walks
// the entire queue rather than stopping at the first non-matching
// waiter, since ByPriority order does not imply any grouping by
// condition.
func (q *Queue) WakeAllConditional(f func(i int) bool, wake func(i int)) {
	var matched []int
	q.list.Iter(func(i int) bool {
		if f(i) {
			matched = append(matched, i)
		}
		return true
	})
	for _, i := range matched {
		q.list.Remove(i)
		wake(i)
	}
}
