// Package mutex implements the priority-ceiling / priority-inheritance
// mutex described in spec.md §4.H, including the robust-mutex
// abandonment contract: a mutex whose owner exited while holding it
// becomes inconsistent, and every task that subsequently acquires it —
// whether immediately, via TryLock, or handed off from Unlock — is told
// so via kernelerr.Abandoned until MarkConsistent is called.
//
// Like task.Pool, Mutex only performs state transitions; it never blocks
// a goroutine itself. Lock reports whether the caller must suspend
// (having already been queued and marked Waiting on the owning
// task.Pool), leaving the actual suspension/resumption to the kernel
// facade that drives the scheduler.
package mutex

import (
	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/task"
	"github.com/r3go-kernel/r3go/wait"
)

// Protocol selects a Mutex's priority-protection discipline.
type Protocol int

const (
	// None applies no priority protection; ordinary mutual exclusion.
	None Protocol = iota
	// Inherit applies the priority inheritance protocol: a blocked
	// higher-priority waiter temporarily boosts the owner to its own
	// priority.
	Inherit
	// Ceiling applies the priority ceiling protocol: locking
	// immediately boosts the owner to a fixed Ceiling priority,
	// established at construction (spec.md Part D.3 — validated
	// against the caller's *effective*, not base, priority).
	Ceiling
)

// Mutex is one mutual-exclusion object, backed by a task.Pool for
// priority boosting and the held-mutex LIFO stack, and a wait.Queue
// (ordered ByPriority, so the highest-priority waiter is always handed
// off to first) for blocked lockers.
type Mutex struct {
	ID       int
	protocol Protocol
	ceiling  int // meaningful only when protocol == Ceiling

	pool    *task.Pool
	waiters *wait.Queue

	owner       int // task index, or -1 if unlocked
	ownerBoosts int // number of BoostPriority calls outstanding against owner

	// inconsistent is set when a task exits (Abandon) while owning m,
	// and stays set — across every subsequent lock/unlock cycle, no
	// matter who holds m — until MarkConsistent clears it.
	inconsistent bool
}

// New constructs an unlocked Mutex. ceiling is only consulted when
// protocol == Ceiling.
func New(id int, protocol Protocol, ceiling int, pool *task.Pool) *Mutex {
	return &Mutex{
		ID:       id,
		protocol: protocol,
		ceiling:  ceiling,
		pool:     pool,
		waiters:  wait.New(wait.ByPriority, pool),
		owner:    -1,
	}
}

// Owner returns the current owner's task index and true, or (0, false)
// if unlocked.
func (m *Mutex) Owner() (int, bool) {
	if m.owner < 0 {
		return 0, false
	}
	return m.owner, true
}

// IsInconsistent reports whether m's protected state was left
// inconsistent by an abandoning owner and has not yet been cleared by
// MarkConsistent.
func (m *Mutex) IsInconsistent() bool {
	return m.inconsistent
}

// Lock attempts to lock m on behalf of taskID. If it returns
// (true, nil), the caller has already been transitioned to Waiting and
// queued; the kernel facade must suspend it and, on resume, consult
// task.TCB.WaitResult for the outcome (nil on successful hand-off, or a
// kernelerr reporting abandonment). A (false, err) result where err is
// kernelerr.Abandoned means the lock *was* acquired — ownership always
// transfers to the caller on an abandoned mutex — but the caller must
// treat the protected state as inconsistent until it calls
// MarkConsistent. Any other non-nil error means the lock was rejected
// outright and no state changed.
func (m *Mutex) Lock(taskID int) (blocked bool, err error) {
	t := m.pool.Get(taskID)

	if m.protocol == Ceiling && t.EffectivePriority < m.ceiling {
		return false, kernelerr.New("mutex.Lock", kernelerr.CodeBadParam)
	}
	if m.owner == taskID {
		return false, kernelerr.New("mutex.Lock", kernelerr.CodeWouldDeadlock)
	}

	if m.owner < 0 {
		m.acquire(taskID)
		if m.inconsistent {
			return false, kernelerr.New("mutex.Lock", kernelerr.CodeAbandoned)
		}
		return false, nil
	}

	if m.protocol == Inherit {
		owner := m.pool.Get(m.owner)
		if t.EffectivePriority < owner.EffectivePriority {
			m.pool.BoostPriority(m.owner, t.EffectivePriority)
			m.ownerBoosts++
		}
	}

	m.pool.MakeWaiting(taskID, wait.Payload{Reason: wait.ReasonMutex, ObjectID: uint32(m.ID)})
	m.waiters.Enqueue(taskID)
	return true, nil
}

// TryLock attempts to lock m without blocking. It returns nil on
// immediate success, kernelerr.Abandoned on immediate success against
// an inconsistent mutex (ownership is still granted), kernelerr.Timeout
// if m is already held by another task, kernelerr.WouldDeadlock if the
// caller already owns it, or kernelerr.BadParam for a Ceiling violation.
func (m *Mutex) TryLock(taskID int) error {
	t := m.pool.Get(taskID)

	if m.protocol == Ceiling && t.EffectivePriority < m.ceiling {
		return kernelerr.New("mutex.TryLock", kernelerr.CodeBadParam)
	}
	if m.owner == taskID {
		return kernelerr.New("mutex.TryLock", kernelerr.CodeWouldDeadlock)
	}
	if m.owner >= 0 {
		return kernelerr.New("mutex.TryLock", kernelerr.CodeTimeout)
	}

	m.acquire(taskID)
	if m.inconsistent {
		return kernelerr.New("mutex.TryLock", kernelerr.CodeAbandoned)
	}
	return nil
}

// MarkConsistent clears m's inconsistent flag, letting future lockers
// acquire it without receiving kernelerr.Abandoned. Returns
// kernelerr.BadObjectState if m is not currently inconsistent.
func (m *Mutex) MarkConsistent() error {
	if !m.inconsistent {
		return kernelerr.New("mutex.MarkConsistent", kernelerr.CodeBadObjectState)
	}
	m.inconsistent = false
	return nil
}

// CancelWait removes taskID from the wait queue without granting it the
// lock, used when a blocked lock attempt is cut short by a timeout.
// Any priority boost this waiter contributed toward the owner is
// released the next time the owner unlocks, along with every other
// boost outstanding against it. No-op if taskID is not currently
// queued.
func (m *Mutex) CancelWait(taskID int) {
	m.waiters.Remove(taskID)
}

func (m *Mutex) acquire(taskID int) {
	m.owner = taskID
	m.ownerBoosts = 0
	if m.protocol == Ceiling {
		m.pool.BoostPriority(taskID, m.ceiling)
		m.ownerBoosts++
	}
	m.pool.PushHeldMutex(taskID, m.ID)
}

// Unlock releases m, owned by taskID, handing it off directly to the
// highest-priority waiter (if any) rather than waking every blocked
// task to re-contend. Returns kernelerr.NotOwner if taskID does not
// currently own m, or kernelerr.BadObjectState if m is not the top of
// taskID's held-mutex stack — mutexes must be unlocked in the reverse
// order they were locked (spec.md §3 "held_stack is LIFO", §4.H).
func (m *Mutex) Unlock(taskID int) error {
	if m.owner != taskID {
		return kernelerr.New("mutex.Unlock", kernelerr.CodeNotOwner)
	}
	if top, ok := m.pool.TopHeldMutex(taskID); !ok || top != m.ID {
		return kernelerr.New("mutex.Unlock", kernelerr.CodeBadObjectState)
	}

	m.pool.PopHeldMutex(taskID, m.ID)
	m.releaseBoosts()
	m.owner = -1

	next, ok := m.waiters.Dequeue()
	if !ok {
		return nil
	}
	m.acquire(next)
	m.pool.Wake(next, m.acquireResult())

	if m.protocol == Inherit {
		if frontWaiter, any := m.waiters.Front(); any {
			waiterPrio := m.pool.Get(frontWaiter).EffectivePriority
			if waiterPrio < m.pool.Get(next).EffectivePriority {
				m.pool.BoostPriority(next, waiterPrio)
				m.ownerBoosts++
			}
		}
	}
	return nil
}

// acquireResult is the WaitResult delivered to a task that has just been
// handed ownership of m (via Unlock or Abandon): nil normally, or
// kernelerr.Abandoned if m is currently inconsistent.
func (m *Mutex) acquireResult() error {
	if m.inconsistent {
		return kernelerr.New("mutex.Lock", kernelerr.CodeAbandoned)
	}
	return nil
}

func (m *Mutex) releaseBoosts() {
	for i := 0; i < m.ownerBoosts; i++ {
		m.pool.UnboostPriority(m.owner)
	}
	m.ownerBoosts = 0
}

// Abandon is called by the kernel facade when the owning task exits (or
// is otherwise destroyed) while still holding m. It releases any
// priority boosts, marks m inconsistent, and hands ownership directly to
// a single waiter (if any) with a kernelerr.Abandoned result — mirroring
// the original's "the current task shall hold the mutex lock, but it is
// up to [it] to make the state consistent" contract. Any further
// waiters remain queued: they inherit the still-inconsistent mutex from
// whoever holds it next, rather than all failing outright.
func (m *Mutex) Abandon() {
	if m.owner < 0 {
		return
	}
	m.pool.PopHeldMutex(m.owner, m.ID)
	m.releaseBoosts()
	m.owner = -1
	m.inconsistent = true

	next, ok := m.waiters.Dequeue()
	if !ok {
		return
	}
	m.acquire(next)
	m.pool.Wake(next, kernelerr.New("mutex.Abandon", kernelerr.CodeAbandoned))
}
