package kernel

import (
	"github.com/r3go-kernel/r3go/evtgroup"
	"github.com/r3go-kernel/r3go/hunk"
	"github.com/r3go-kernel/r3go/interrupt"
	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/mutex"
	"github.com/r3go-kernel/r3go/port"
	"github.com/r3go-kernel/r3go/sem"
	"github.com/r3go-kernel/r3go/startup"
	"github.com/r3go-kernel/r3go/task"
	"github.com/r3go-kernel/r3go/timeout"
	"github.com/r3go-kernel/r3go/timer"
)

// canceler is implemented by any subsystem whose wait.Queue membership
// needs to be revoked when a blocked wait times out (sem.Semaphore,
// evtgroup.EventGroup, mutex.Mutex all satisfy it).
type canceler interface {
	CancelWait(taskID int)
}

// taskRuntime is the per-task channel used to hand the single logical
// "running" token to a task's goroutine.
type taskRuntime struct {
	runCh chan struct{}
}

// timeoutRec is the per-task timeout.Record used to bound any blocking
// wait operation. Exactly one may be armed per task at a time, since a
// task can only be blocked on one thing at once.
type timeoutRec struct {
	rec      timeout.Record
	taskID   int
	k        *Kernel
	canceler canceler
	armed    bool
	onFire   error
}

// OnTimeout implements timeout.Handler.
func (r *timeoutRec) OnTimeout() {
	r.armed = false
	if r.canceler != nil {
		r.canceler.CancelWait(r.taskID)
	}
	r.k.pool.Wake(r.taskID, r.onFire)
}

// Kernel is the fully wired, statically configured kernel instance
// produced by Builder.Build. Every exported method assumes it is called
// either from within a task's own goroutine (for blocking operations)
// or from the single goroutine driving Run/RunOnce (for non-blocking
// object operations like Signal/Set), exactly as spec.md §4.B's CPU
// lock discipline requires — there is no additional internal locking
// here beyond that convention, matching the single-core, single-active-
// context model this kernel targets.
type Kernel struct {
	pool       *task.Pool
	wheel      *timeout.Wheel
	interrupts *interrupt.Controller
	hooks      *startup.Chain
	port       port.Port

	mutexes map[int]*mutex.Mutex
	sems    map[int]*sem.Semaphore
	groups  map[int]*evtgroup.EventGroup
	timers  map[int]*timer.Timer
	hunks   map[int]*hunk.Hunk

	entries   []func(*Kernel, int)
	autostart []bool

	runtimes    []taskRuntime
	yieldCh     chan int
	timeoutRecs []*timeoutRec
}

// Interrupts returns the kernel's interrupt.Controller, for ports that
// need to attach/dispatch lines outside the Builder's declarative
// surface.
func (k *Kernel) Interrupts() *interrupt.Controller { return k.interrupts }

// Hunk returns the declared hunk with the given ID.
func (k *Kernel) Hunk(id int) (*hunk.Hunk, error) {
	h, ok := k.hunks[id]
	if !ok {
		return nil, kernelerr.New("kernel.Hunk", kernelerr.CodeBadID)
	}
	return h, nil
}

// Now returns the kernel's current system time.
func (k *Kernel) Now() timeout.Time {
	return k.wheel.SystemTimeAt(k.port.TickCount())
}

// SetTime rebases the kernel's system time (spec.md §4.E); event time
// and every pending timeout's remaining duration are unaffected.
func (k *Kernel) SetTime(t timeout.Time) {
	k.wheel.SetTime(t, k.port.TickCount())
}

// AdjustTime shifts the kernel's event-time reference by delta (spec.md
// §4.E "adjust_time"); see timeout.Wheel.AdjustTime for the full
// contract and rejection rules.
func (k *Kernel) AdjustTime(delta timeout.Duration) error {
	return k.wheel.AdjustTime(delta)
}

// Start runs every registered startup hook, activates every autostart
// task, and launches each declared task's goroutine (parked until the
// dispatch loop first selects it). Call RunOnce or Run afterward to
// drive the scheduler.
func (k *Kernel) Start() {
	k.hooks.Run()
	for i, entry := range k.entries {
		i, entry := i, entry
		if entry != nil {
			go k.runTask(i, entry)
		}
	}
	for i, auto := range k.autostart {
		if auto {
			_ = k.pool.Activate(i)
		}
	}
}

func (k *Kernel) runTask(id int, entry func(*Kernel, int)) {
	<-k.runtimes[id].runCh
	entry(k, id)
	k.AbandonMutexesOwnedBy(id)
	k.pool.MakeDormant(id)
	k.yieldCh <- id
}

// RunOnce drives the scheduler through a single dispatch decision: if a
// task is ready, it is switched in and run until it next blocks or
// exits; if nothing is ready, the port is idled until the next tick or
// external wake-up and the timeout wheel is advanced. Returns true if
// it had to idle (nothing was ready to dispatch).
func (k *Kernel) RunOnce() bool {
	next, ok := k.pool.Dispatch()
	if !ok {
		deadline, hasDeadline := k.wheel.NextDeadline()
		k.port.IdleUntil(uint32(deadline), hasDeadline)
		k.wheel.Tick(k.port.TickCount())
		return true
	}
	if running, isRunning := k.pool.Running(); !isRunning || running != next {
		k.pool.SwitchTo(next)
		k.runtimes[next].runCh <- struct{}{}
		<-k.yieldCh
	}
	return false
}

// Run drives the scheduler forever by calling RunOnce in a loop. Callers
// that need a bounded run (cmd/r3gosim among them) call RunOnce directly.
func (k *Kernel) Run() {
	for {
		k.RunOnce()
	}
}

// blockAndWait suspends the calling task's goroutine, yielding control
// back to the scheduler loop, until it is next dispatched. If
// timeoutDur is non-nil, a timeout is armed that — if it fires before
// something else wakes the task — calls c.CancelWait (unless c is nil,
// as for a plain Sleep) and resumes the task with onFireResult as its
// wait outcome.
func (k *Kernel) blockAndWait(taskID int, c canceler, timeoutDur *timeout.Duration, onFireResult error) error {
	tr := k.timeoutRecs[taskID]
	if timeoutDur != nil {
		tr.canceler = c
		tr.onFire = onFireResult
		tr.armed = true
		at := k.wheel.EventTimeAt(k.port.TickCount()) + timeout.EventTime(uint32(timeoutDur.AsMicros()))
		k.wheel.Insert(&tr.rec, at)
	}

	k.yieldCh <- taskID
	<-k.runtimes[taskID].runCh

	if tr.armed {
		tr.armed = false
		k.wheel.Remove(&tr.rec)
	}
	return k.pool.Get(taskID).WaitResult
}
