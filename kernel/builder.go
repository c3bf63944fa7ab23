// Package kernel is the facade wiring every core package (task, mutex,
// sem, evtgroup, timer, timeout, interrupt, hunk, startup) into a single
// statically configured kernel instance driven by a port.Port (spec.md
// §5: the kernel is built once, declaring every object up front, and
// never creates objects at runtime).
package kernel

import (
	"github.com/r3go-kernel/r3go/evtgroup"
	"github.com/r3go-kernel/r3go/hunk"
	"github.com/r3go-kernel/r3go/interrupt"
	"github.com/r3go-kernel/r3go/kernelcfg"
	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/mutex"
	"github.com/r3go-kernel/r3go/port"
	"github.com/r3go-kernel/r3go/sem"
	"github.com/r3go-kernel/r3go/startup"
	"github.com/r3go-kernel/r3go/task"
	"github.com/r3go-kernel/r3go/timeout"
	"github.com/r3go-kernel/r3go/timer"
	"github.com/r3go-kernel/r3go/wait"
)

type semSpec struct {
	initial, max int
	order        wait.Order
}

type mutexSpec struct {
	protocol mutex.Protocol
	ceiling  int
}

type hookSpec struct {
	priority int
	f        func(*Kernel)
}

// Builder collects a kernel's static object declarations before Build
// constructs the immutable Kernel instance. All declaration methods
// return the new object's ID within its own namespace (tasks,
// semaphores, mutexes, event groups, and timers are numbered
// independently, starting at 0).
type Builder struct {
	cfg  *kernelcfg.Config
	port port.Port

	taskPriorities []int
	taskEntries    []func(*Kernel, int)
	taskAutostart  []bool

	sems       []semSpec
	mutexSpecs []mutexSpec
	groupInit  []uint32
	timerCBs   []func(*Kernel)
	hunkSizes  []int
	hooks      []hookSpec
}

// NewBuilder resolves opts into a kernelcfg.Config and returns an empty
// Builder.
func NewBuilder(opts ...kernelcfg.Option) (*Builder, error) {
	cfg, err := kernelcfg.Resolve(opts)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

// WithPort sets the port.Port implementation the built Kernel will run
// against. Required before Build.
func (b *Builder) WithPort(p port.Port) *Builder {
	b.port = p
	return b
}

// Task declares a task at the given base priority, running entry when
// activated. If autostart is true, Kernel.Start activates it
// automatically; otherwise something else (another task, a startup
// hook) must call Kernel.ActivateTask.
func (b *Builder) Task(priority int, autostart bool, entry func(k *Kernel, taskID int)) int {
	id := len(b.taskPriorities)
	b.taskPriorities = append(b.taskPriorities, priority)
	b.taskEntries = append(b.taskEntries, entry)
	b.taskAutostart = append(b.taskAutostart, autostart)
	return id
}

// Semaphore declares a counting semaphore.
func (b *Builder) Semaphore(initial, max int, order wait.Order) int {
	id := len(b.sems)
	b.sems = append(b.sems, semSpec{initial: initial, max: max, order: order})
	return id
}

// Mutex declares a mutex with the given protocol (ceiling is only
// consulted when protocol == mutex.Ceiling).
func (b *Builder) Mutex(protocol mutex.Protocol, ceiling int) int {
	id := len(b.mutexSpecs)
	b.mutexSpecs = append(b.mutexSpecs, mutexSpec{protocol: protocol, ceiling: ceiling})
	return id
}

// EventGroup declares an event group with the given initial bits.
func (b *Builder) EventGroup(initial uint32) int {
	id := len(b.groupInit)
	b.groupInit = append(b.groupInit, initial)
	return id
}

// Timer declares a software timer. callback runs synchronously from
// within the kernel's dispatch loop each time the timer fires; it must
// not block.
func (b *Builder) Timer(callback func(k *Kernel)) int {
	id := len(b.timerCBs)
	b.timerCBs = append(b.timerCBs, callback)
	return id
}

// Hunk declares a static byte-pool region of the given size.
func (b *Builder) Hunk(size int) int {
	id := len(b.hunkSizes)
	b.hunkSizes = append(b.hunkSizes, size)
	return id
}

// OnStartup registers f to run once, in ascending priority order,
// before any task is activated (spec.md §4.M).
func (b *Builder) OnStartup(priority int, f func(k *Kernel)) {
	b.hooks = append(b.hooks, hookSpec{priority: priority, f: f})
}

// Build constructs the immutable Kernel. Returns kernelerr.BadParam if
// no port was configured.
func (b *Builder) Build() (*Kernel, error) {
	if b.port == nil {
		return nil, kernelerr.New("kernel.Build", kernelerr.CodeBadParam)
	}

	pool := task.NewPool(len(b.taskPriorities), b.cfg.MaxPriorities)
	for i, p := range b.taskPriorities {
		pool.Get(i).BasePriority = p
		pool.Get(i).EffectivePriority = p
	}
	wheel := timeout.NewWheel(b.cfg.HWMaxTickCount)

	k := &Kernel{
		pool:       pool,
		wheel:      wheel,
		interrupts: interrupt.NewController(0, maxInt(b.cfg.MaxPriorities-1, 0)),
		hooks:      &startup.Chain{},
		port:       b.port,

		mutexes: make(map[int]*mutex.Mutex, len(b.mutexSpecs)),
		sems:    make(map[int]*sem.Semaphore, len(b.sems)),
		groups:  make(map[int]*evtgroup.EventGroup, len(b.groupInit)),
		timers:  make(map[int]*timer.Timer, len(b.timerCBs)),
		hunks:   make(map[int]*hunk.Hunk, len(b.hunkSizes)),

		entries:   b.taskEntries,
		autostart: b.taskAutostart,
	}

	for i, s := range b.sems {
		k.sems[i] = sem.New(i, s.initial, s.max, s.order, pool)
	}
	for i, m := range b.mutexSpecs {
		k.mutexes[i] = mutex.New(i, m.protocol, m.ceiling, pool)
	}
	for i, bits := range b.groupInit {
		k.groups[i] = evtgroup.New(i, bits, pool)
	}
	for i, cb := range b.timerCBs {
		cb := cb
		k.timers[i] = timer.New(i, wheel, func() {
			if cb != nil {
				cb(k)
			}
		})
	}
	for i, size := range b.hunkSizes {
		hk := hunk.New(size)
		k.hunks[i] = hk
		k.hooks.Register(-1, hk.Init)
	}
	for _, h := range b.hooks {
		h := h
		k.hooks.Register(h.priority, func() { h.f(k) })
	}

	k.runtimes = make([]taskRuntime, len(b.taskPriorities))
	for i := range k.runtimes {
		k.runtimes[i].runCh = make(chan struct{})
	}
	k.yieldCh = make(chan int)
	k.timeoutRecs = make([]*timeoutRec, len(b.taskPriorities))
	for i := range k.timeoutRecs {
		tr := &timeoutRec{taskID: i, k: k}
		tr.rec.Handler = tr
		k.timeoutRecs[i] = tr
	}

	return k, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
