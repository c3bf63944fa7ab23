// Package evtgroup implements the event group described in spec.md
// §4.J: a bitset tasks can wait on with AND ("all of these bits") or OR
// ("any of these bits") semantics, with an option to atomically clear
// the matched bits on a successful wait.
package evtgroup

import (
	"github.com/r3go-kernel/r3go/task"
	"github.com/r3go-kernel/r3go/wait"
)

// WaitMode selects how a Wait call's requested bits are matched against
// the group's current bits.
type WaitMode int

const (
	// Any is satisfied as soon as at least one requested bit is set
	// (logical OR).
	Any WaitMode = iota
	// All is satisfied only once every requested bit is set (logical
	// AND).
	All
)

func satisfied(mode WaitMode, want, have uint32) bool {
	if mode == All {
		return have&want == want
	}
	return have&want != 0
}

type waitSpec struct {
	want        uint32
	mode        WaitMode
	clearOnExit bool
}

// EventGroup is a 32-bit event flag set, per spec.md §4.J.
type EventGroup struct {
	ID      int
	bits    uint32
	pool    *task.Pool
	waiters *wait.Queue
	specs   map[int]waitSpec
}

// New constructs an EventGroup with the given initial bits set.
func New(id int, initial uint32, pool *task.Pool) *EventGroup {
	return &EventGroup{
		ID:      id,
		bits:    initial,
		pool:    pool,
		waiters: wait.New(wait.ByPriority, pool),
		specs:   make(map[int]waitSpec),
	}
}

// Bits returns the group's current bits.
func (g *EventGroup) Bits() uint32 { return g.bits }

// Set ORs mask into the group's bits, then wakes every waiter whose
// condition is now satisfied (spec.md §4.J: waking is evaluated against
// the updated bits, and all matching waiters are woken in the same
// call, not just the first).
func (g *EventGroup) Set(mask uint32) {
	g.bits |= mask
	g.wakeMatching()
}

// Clear ANDs mask out of the group's bits. Clearing bits can never
// satisfy a pending wait, so no waiters are examined.
func (g *EventGroup) Clear(mask uint32) {
	g.bits &^= mask
}

func (g *EventGroup) wakeMatching() {
	// origBits is the bit word as it stood before any of this call's
	// matching waiters have their clearOnExit bits removed, so every
	// waiter woken by this Set sees the same pre-wake word (spec.md
	// §4.J orig_bits) regardless of hand-off order.
	origBits := g.bits
	g.waiters.WakeAllConditional(
		func(i int) bool {
			spec := g.specs[i]
			return satisfied(spec.mode, spec.want, g.bits)
		},
		func(i int) {
			spec := g.specs[i]
			delete(g.specs, i)
			if spec.clearOnExit {
				g.bits &^= spec.want
			}
			g.pool.Get(i).WaitBits = origBits
			g.pool.Wake(i, nil)
		},
	)
}

// Wait blocks taskID until the group's bits satisfy (want, mode), or
// returns immediately if they already do. clearOnExit, if true, clears
// exactly the requested bits (not the full current bit set) from the
// group the instant the wait is satisfied. A (false, origBits, nil)
// result means the condition was already met; (true, 0, nil) means the
// caller has been queued and transitioned to Waiting, with origBits
// only available later via task.TCB.WaitBits once it is woken. In
// either case origBits is the group's bit word as it stood the instant
// the wait was satisfied, before clearOnExit removed any of it
// (spec.md §4.J orig_bits).
func (g *EventGroup) Wait(taskID int, want uint32, mode WaitMode, clearOnExit bool) (blocked bool, origBits uint32, err error) {
	if satisfied(mode, want, g.bits) {
		orig := g.bits
		if clearOnExit {
			g.bits &^= want
		}
		return false, orig, nil
	}
	g.pool.MakeWaiting(taskID, wait.Payload{Reason: wait.ReasonEventGroup, ObjectID: uint32(g.ID)})
	g.specs[taskID] = waitSpec{want: want, mode: mode, clearOnExit: clearOnExit}
	g.waiters.Enqueue(taskID)
	return true, 0, nil
}

// CancelWait removes taskID from the wait queue, used when a blocked
// wait is cut short by timeout or interruption. No-op if not queued.
func (g *EventGroup) CancelWait(taskID int) {
	g.waiters.Remove(taskID)
	delete(g.specs, taskID)
}
