// Package task implements the TCB (task control block) pool and the
// preemptive priority scheduler described in spec.md §4.G: task states,
// a priority-bitmap-indexed ready queue, priority boosting (used by
// mutex.Mutex's priority-inheritance/ceiling protocols), and the park
// token primitive used for one-shot activation signaling.
package task

import (
	"github.com/r3go-kernel/r3go/internal/list"
	"github.com/r3go-kernel/r3go/internal/prio"
	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/wait"
)

// State is a task's scheduling state (spec.md §4.G).
type State int

const (
	// Dormant: the task has not been activated, or has run to
	// completion since its last activation.
	Dormant State = iota
	// Ready: runnable, queued at its effective priority.
	Ready
	// Waiting: blocked on a synchronization object or a sleep.
	Waiting
	// Running: currently executing on the (single, simulated) CPU.
	Running
)

func (s State) String() string {
	switch s {
	case Dormant:
		return "dormant"
	case Ready:
		return "ready"
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// TCB is one task's control block. TCBs live in a Pool's backing array
// and are referenced by index everywhere else in this kernel, never by
// pointer, per the intrusive-list convention established in
// internal/list.
type TCB struct {
	link list.Link

	ID           int
	BasePriority int
	// EffectivePriority is BasePriority unless boosted by priority
	// inheritance/ceiling (mutex.Mutex) or an explicit caller boost;
	// always <= BasePriority numerically (i.e. effective priority is
	// never numerically lower priority than the base).
	EffectivePriority int

	State State

	// Wait carries diagnostic/routing information while State ==
	// Waiting; undefined otherwise.
	Wait wait.Payload
	// WaitResult is set by whatever wakes the task (directly, via
	// timeout, or via abandonment) and observed once the task resumes.
	WaitResult error
	// WaitBits carries evtgroup.EventGroup's pre-wake bit word
	// (spec.md §4.J orig_bits) from wakeMatching through to the task's
	// resume point; meaningless for any other wait reason.
	WaitBits uint32

	// Parked records a pending unpark signal. Unpark sets it
	// unconditionally; Park consumes it if set (returning immediately)
	// or blocks the caller otherwise. This is the "park token"
	// primitive spec.md §4.G calls out as the low-level building block
	// other wait operations are expressed in terms of.
	Parked bool

	boostDepth int // number of currently-held priority boosts

	// HeldMutexes is the stack of mutex IDs currently locked by this
	// task, most-recently-locked last. mutex.Mutex pushes on a
	// successful Lock/acquire and pops on Unlock, enforcing the LIFO
	// unlock discipline spec.md §4.H requires: a mutex may only be
	// unlocked while it is the top of its owner's held stack.
	HeldMutexes []int
}

// PushHeldMutex records mutexID as the most recently locked mutex owned
// by task i.
func (p *Pool) PushHeldMutex(i, mutexID int) {
	t := &p.tasks[i]
	t.HeldMutexes = append(t.HeldMutexes, mutexID)
}

// TopHeldMutex returns the most recently locked mutex owned by task i,
// or (0, false) if it holds none.
func (p *Pool) TopHeldMutex(i int) (int, bool) {
	t := &p.tasks[i]
	if len(t.HeldMutexes) == 0 {
		return 0, false
	}
	return t.HeldMutexes[len(t.HeldMutexes)-1], true
}

// PopHeldMutex removes the top of task i's held-mutex stack. It is a
// no-op if the stack is empty or the top does not match mutexID.
func (p *Pool) PopHeldMutex(i, mutexID int) {
	t := &p.tasks[i]
	n := len(t.HeldMutexes)
	if n == 0 || t.HeldMutexes[n-1] != mutexID {
		return
	}
	t.HeldMutexes = t.HeldMutexes[:n-1]
}

// Pool owns a fixed-size array of TCBs plus the ready-queue scheduling
// structures over them. Per spec.md §5, the kernel is statically
// configured: Pool's size is fixed at construction and never resized.
type Pool struct {
	tasks       []TCB
	readyBitmap *prio.Bitmap
	readyQueues []*list.List
	running     int // index of the running task, or -1
}

// NewPool constructs a Pool with n task slots, numbered [0, n), and
// maxPriorities distinct priority levels numbered [0, maxPriorities)
// where 0 is highest priority.
func NewPool(n, maxPriorities int) *Pool {
	p := &Pool{
		tasks:       make([]TCB, n),
		readyBitmap: prio.New(maxPriorities),
		readyQueues: make([]*list.List, maxPriorities),
		running:     -1,
	}
	for i := range p.tasks {
		p.tasks[i].ID = i
		p.tasks[i].link = list.Link{Prev: list.Nil, Next: list.Nil}
	}
	for i := range p.readyQueues {
		p.readyQueues[i] = list.New(p)
	}
	return p
}

// Link implements list.Accessor so wait.Queue (and Pool's own ready
// queues) can thread through TCB.link.
func (p *Pool) Link(i int) *list.Link { return &p.tasks[i].link }

// Priority implements wait.Members, used by every synchronization
// object's wait.Queue.
func (p *Pool) Priority(i int) int { return p.tasks[i].EffectivePriority }

// Get returns a pointer to task i's TCB. i must be in [0, Len()).
func (p *Pool) Get(i int) *TCB { return &p.tasks[i] }

// Len returns the number of task slots.
func (p *Pool) Len() int { return len(p.tasks) }

// Running returns the index of the currently running task and true, or
// (0, false) if the CPU is idle.
func (p *Pool) Running() (int, bool) {
	if p.running < 0 {
		return 0, false
	}
	return p.running, true
}

// MakeReady transitions task i (currently Dormant or Waiting) to Ready
// and enqueues it at its effective priority.
func (p *Pool) MakeReady(i int) {
	t := &p.tasks[i]
	t.State = Ready
	p.readyQueues[t.EffectivePriority].PushBack(i)
	p.readyBitmap.Set(t.EffectivePriority)
}

// MakeWaiting transitions the Running or Ready task i to Waiting,
// recording why via reason. A Ready task is first removed from its ready
// queue; i must not already be in a wait queue.
func (p *Pool) MakeWaiting(i int, reason wait.Payload) {
	t := &p.tasks[i]
	if t.State == Ready {
		p.readyQueues[t.EffectivePriority].Remove(i)
		if p.readyQueues[t.EffectivePriority].Empty() {
			p.readyBitmap.Clear(t.EffectivePriority)
		}
	}
	t.State = Waiting
	t.Wait = reason
	t.WaitResult = nil
	if p.running == i {
		p.running = -1
	}
}

// Wake transitions the Waiting task i back to Ready, recording result as
// the outcome the task will observe on resume (nil for a normal
// wake-up, a *kernelerr.Error for timeout/abandonment/interruption).
func (p *Pool) Wake(i int, result error) {
	t := &p.tasks[i]
	t.WaitResult = result
	p.MakeReady(i)
}

// MakeDormant transitions task i to Dormant, resetting its effective
// priority to its base priority and clearing any pending park token.
func (p *Pool) MakeDormant(i int) {
	t := &p.tasks[i]
	if p.running == i {
		p.running = -1
	}
	t.State = Dormant
	t.EffectivePriority = t.BasePriority
	t.boostDepth = 0
	t.Parked = false
	t.HeldMutexes = nil
}

// Dispatch returns the index of the task that should be running: the
// highest-effective-priority Ready task, unless the currently Running
// task is at least as high priority, in which case it continues
// running (no preemption among equal priorities — a ready task only
// preempts a strictly lower priority runner). Returns false if nothing
// is Ready and nothing is Running.
func (p *Pool) Dispatch() (int, bool) {
	readyPrio, haveReady := p.readyBitmap.FindSet()
	if p.running >= 0 {
		if !haveReady || p.tasks[p.running].EffectivePriority <= readyPrio {
			return p.running, true
		}
	}
	if !haveReady {
		return 0, false
	}
	head, _ := p.readyQueues[readyPrio].Front()
	return head, true
}

// SwitchTo makes task i the Running task, removing it from its ready
// queue and re-queuing the previously-running task (if any) behind
// other ready tasks at its own priority.
func (p *Pool) SwitchTo(i int) {
	if p.running == i {
		return
	}
	if p.running >= 0 {
		old := &p.tasks[p.running]
		old.State = Ready
		p.readyQueues[old.EffectivePriority].PushBack(p.running)
		p.readyBitmap.Set(old.EffectivePriority)
	}
	t := &p.tasks[i]
	if t.State == Ready {
		p.readyQueues[t.EffectivePriority].Remove(i)
		if p.readyQueues[t.EffectivePriority].Empty() {
			p.readyBitmap.Clear(t.EffectivePriority)
		}
	}
	t.State = Running
	p.running = i
}

// BoostPriority raises task i's effective priority to at least
// newPriority (numerically lower). Boosts nest: UnboostPriority must be
// called once per BoostPriority call before the task's priority is
// restored. If i is currently Ready, it is re-queued at the new
// priority.
func (p *Pool) BoostPriority(i int, newPriority int) {
	t := &p.tasks[i]
	t.boostDepth++
	if newPriority >= t.EffectivePriority {
		return
	}
	p.reQueueAtPriority(i, newPriority)
}

// UnboostPriority releases one previously applied boost. Once the last
// boost is released, effective priority reverts to BasePriority.
func (p *Pool) UnboostPriority(i int) {
	t := &p.tasks[i]
	if t.boostDepth == 0 {
		return
	}
	t.boostDepth--
	if t.boostDepth == 0 && t.EffectivePriority != t.BasePriority {
		p.reQueueAtPriority(i, t.BasePriority)
	}
}

func (p *Pool) reQueueAtPriority(i, newPriority int) {
	t := &p.tasks[i]
	if t.State == Ready {
		p.readyQueues[t.EffectivePriority].Remove(i)
		if p.readyQueues[t.EffectivePriority].Empty() {
			p.readyBitmap.Clear(t.EffectivePriority)
		}
		t.EffectivePriority = newPriority
		p.readyQueues[newPriority].PushBack(i)
		p.readyBitmap.Set(newPriority)
		return
	}
	t.EffectivePriority = newPriority
}

// Park consumes a pending unpark token for task i, returning true and
// clearing it without blocking, or false if none is pending (the caller
// is then responsible for transitioning i to Waiting).
func (p *Pool) Park(i int) bool {
	t := &p.tasks[i]
	if t.Parked {
		t.Parked = false
		return true
	}
	return false
}

// Unpark delivers an unpark token to task i: if i is Waiting on a park
// (ReasonTask), it is woken immediately; otherwise the token is
// latched for the next Park call to consume.
func (p *Pool) Unpark(i int) {
	t := &p.tasks[i]
	if t.State == Waiting && t.Wait.Reason == wait.ReasonTask {
		p.Wake(i, nil)
		return
	}
	t.Parked = true
}

// Activate transitions a Dormant task to Ready at its base priority,
// the spec.md §4.G entry point for starting (or restarting) a task.
// Returns kernelerr.BadObjectState if the task is not Dormant.
func (p *Pool) Activate(i int) error {
	t := &p.tasks[i]
	if t.State != Dormant {
		return kernelerr.New("task.Activate", kernelerr.CodeBadObjectState)
	}
	t.EffectivePriority = t.BasePriority
	p.MakeReady(i)
	return nil
}
