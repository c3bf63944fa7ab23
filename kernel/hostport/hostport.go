//go:build linux

// Package hostport is a port.Port implementation that runs a kernel on an
// ordinary host OS instead of bare metal, for simulation and testing. It
// maps the abstract tick counter onto the monotonic wall clock and
// implements the port's wake-up contract with a Linux eventfd, the same
// self-pipe idiom used to interrupt a blocked poller from another
// goroutine.
package hostport

import (
	"math"
	"time"

	"golang.org/x/sys/unix"

	"github.com/r3go-kernel/r3go/port"
)

var _ port.Port = (*Port)(nil)

// Port runs against the host's monotonic clock, one tick per
// microsecond. RequestDispatch is safe to call from any goroutine. The
// interrupt enable/disable pair sets a plain, unsynchronized flag, so
// calls to it and to InterruptsEnabled must not overlap; IdleUntil must
// only be called from the kernel's own scheduling goroutine.
type Port struct {
	epoch   time.Time
	maxTick uint32
	wakeFD  int

	interruptsEnabled bool
}

// New opens the host port. maxTick bounds the simulated free-running
// counter's wraparound point; zero means "no deliberate wraparound"
// (math.MaxUint32).
func New(maxTick uint32) (*Port, error) {
	if maxTick == 0 {
		maxTick = math.MaxUint32
	}
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Port{
		epoch:             time.Now(),
		maxTick:           maxTick,
		wakeFD:            fd,
		interruptsEnabled: true,
	}, nil
}

// Close releases the port's wake eventfd. Not part of port.Port; call it
// once the kernel using this port is done running.
func (p *Port) Close() error {
	return unix.Close(p.wakeFD)
}

// TickCount reports elapsed microseconds since the port was opened,
// wrapping at maxTick exactly as a free-running hardware counter would.
func (p *Port) TickCount() uint32 {
	elapsed := uint64(time.Since(p.epoch).Microseconds())
	if p.maxTick == math.MaxUint32 {
		return uint32(elapsed)
	}
	return uint32(elapsed % (uint64(p.maxTick) + 1))
}

// MaxTickCount returns the configured counter wraparound bound.
func (p *Port) MaxTickCount() uint32 {
	return p.maxTick
}

// RequestDispatch wakes a goroutine blocked in IdleUntil so the scheduler
// re-evaluates dispatch promptly, e.g. after an interrupt handler has
// made a higher-priority task ready.
func (p *Port) RequestDispatch() {
	var buf [8]byte
	buf[7] = 1
	_, _ = unix.Write(p.wakeFD, buf[:])
}

// IdleUntil blocks until deadline (a tick count, only meaningful if
// hasDeadline) elapses or RequestDispatch is called, whichever comes
// first. With no deadline it waits indefinitely for a wake-up.
func (p *Port) IdleUntil(deadline uint32, hasDeadline bool) {
	timeoutMS := -1
	if hasDeadline {
		now := p.TickCount()
		remainingTicks := int64(deadline) - int64(now)
		if remainingTicks < 0 {
			remainingTicks = 0
		}
		timeoutMS = int(remainingTicks/1000) + 1
	}

	fds := []unix.PollFd{{Fd: int32(p.wakeFD), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, timeoutMS)
		if err == unix.EINTR {
			continue
		}
		if n > 0 {
			p.drainWake()
		}
		return
	}
}

func (p *Port) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(p.wakeFD, buf[:])
		if err != nil {
			return
		}
	}
}

// EnableInterrupts and DisableInterrupts model the CPU-lock primitive on
// a host where there is no real interrupt controller to mask; they just
// track the flag a simulated interrupt source can consult before firing.
func (p *Port) EnableInterrupts() {
	p.interruptsEnabled = true
}

func (p *Port) DisableInterrupts() {
	p.interruptsEnabled = false
}

// InterruptsEnabled reports the current flag, consulted by a simulated
// interrupt source (e.g. a test driving AttachInterrupt/DispatchInterrupt
// through this port) before delivering a line.
func (p *Port) InterruptsEnabled() bool {
	return p.interruptsEnabled
}
