// Package sem implements the counting semaphore described in spec.md
// §4.I, with direct hand-off: Signal transfers its count directly to
// waiters, one token per waiter, rather than merely incrementing a
// counter for waiters to re-contend over. Drain resets the count
// without touching any queued waiter.
package sem

import (
	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/task"
	"github.com/r3go-kernel/r3go/wait"
)

// Semaphore is a counting semaphore bounded by a maximum count.
type Semaphore struct {
	ID      int
	count   int
	max     int
	pool    *task.Pool
	waiters *wait.Queue
}

// New constructs a Semaphore starting at initial (must be in
// [0, max]), waking waiters in the given Order on Signal hand-off.
func New(id, initial, max int, order wait.Order, pool *task.Pool) *Semaphore {
	if initial < 0 || initial > max {
		panic("sem: initial count out of range")
	}
	return &Semaphore{
		ID:      id,
		count:   initial,
		max:     max,
		pool:    pool,
		waiters: wait.New(order, pool),
	}
}

// Count returns the current available count (0 while any task holds the
// semaphore via a pending hand-off wait is irrelevant here — count only
// ever reflects tokens not yet claimed by a waiter).
func (s *Semaphore) Count() int { return s.count }

// Signal releases n tokens. The overflow check is evaluated once,
// against the count as it stands before any hand-off (max-count <
// n), so queued waiters receiving tokens directly never inflate the
// headroom available to the remainder. One token is then handed
// directly to each waiter in turn, woken with a nil result, until
// either n is exhausted or no waiter remains; anything left over is
// deposited into count in a single step. Returns kernelerr.QueueOverflow
// (leaving count and every waiter untouched) if the up-front check
// fails.
func (s *Semaphore) Signal(n int) error {
	if s.max-s.count < n {
		return kernelerr.New("sem.Signal", kernelerr.CodeQueueOverflow)
	}
	remaining := n
	for remaining > 0 {
		i, ok := s.waiters.Dequeue()
		if !ok {
			break
		}
		s.pool.Wake(i, nil)
		remaining--
	}
	s.count += remaining
	return nil
}

// Drain unconditionally resets count to zero. It does not interact with
// any queued waiter — a task already blocked in Wait remains blocked.
func (s *Semaphore) Drain() {
	s.count = 0
}

// Wait attempts to claim one token on behalf of taskID. A (false, nil)
// result means a token was claimed immediately (count decremented). A
// (true, nil) result means the caller has been queued and transitioned
// to Waiting; the kernel facade must suspend it and consult
// task.TCB.WaitResult on resume.
func (s *Semaphore) Wait(taskID int) (blocked bool, err error) {
	if s.count > 0 {
		s.count--
		return false, nil
	}
	s.pool.MakeWaiting(taskID, wait.Payload{Reason: wait.ReasonSemaphore, ObjectID: uint32(s.ID)})
	s.waiters.Enqueue(taskID)
	return true, nil
}

// Poll attempts to claim one token without blocking. Returns
// kernelerr.Timeout if none is immediately available, matching the
// zero-timeout convention the rest of this kernel's wait operations use
// (spec.md §4.F).
func (s *Semaphore) Poll() error {
	if s.count > 0 {
		s.count--
		return nil
	}
	return kernelerr.New("sem.Poll", kernelerr.CodeTimeout)
}

// CancelWait removes taskID from the wait queue without granting it a
// token, used when a blocked wait is cut short by a timeout or explicit
// interruption. It is a no-op if taskID is not currently queued.
func (s *Semaphore) CancelWait(taskID int) {
	s.waiters.Remove(taskID)
}
