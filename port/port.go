// Package port defines the boundary between the hardware-independent
// kernel core and hardware-specific code (spec.md §4.A). Every concrete
// target (a real microcontroller, or kernel/hostport's simulator)
// implements Port; the kernel facade never touches hardware registers
// or a real clock directly.
package port

// Port is the contract a concrete target must satisfy to host this
// kernel. The kernel facade calls it only from whichever single goroutine
// is running at the time (the scheduler loop or the dispatched task), so
// its calls never overlap; it does not enter internal/klock's CPU lock
// around them.
type Port interface {
	// TickCount returns the current free-running hardware tick count,
	// in [0, MaxTickCount()].
	TickCount() uint32

	// MaxTickCount returns the inclusive upper bound the hardware
	// counter wraps at.
	MaxTickCount() uint32

	// RequestDispatch asks the port to arrange for the scheduler's
	// dispatch loop to run again as soon as possible — typically by
	// signalling whatever blocks the idle path in IdleUntil. Safe to
	// call from an interrupt handler.
	RequestDispatch()

	// IdleUntil blocks the calling context until either the given
	// deadline (if hasDeadline) is reached, a hardware tick occurs, or
	// RequestDispatch is called — whichever comes first. It is expected
	// to block.
	IdleUntil(deadline uint32, hasDeadline bool)

	// EnableInterrupts and DisableInterrupts switch the target's
	// interrupt delivery on and off. The kernel facade does not call
	// them itself, and internal/klock.Lock is independent of them.
	EnableInterrupts()
	DisableInterrupts()
}
