// Package timer implements the one-shot and periodic software timer
// described in spec.md §4.K, layered directly on timeout.Wheel.
package timer

import (
	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/timeout"
)

// Timer fires a callback once after a delay, optionally repeating every
// period thereafter.
type Timer struct {
	ID int

	wheel    *timeout.Wheel
	record   timeout.Record
	callback func()

	period timeout.Duration // zero means one-shot
	active bool
}

// New constructs a stopped Timer. callback is invoked (synchronously,
// from within Wheel.Tick) each time the timer fires.
func New(id int, wheel *timeout.Wheel, callback func()) *Timer {
	t := &Timer{ID: id, wheel: wheel, callback: callback}
	t.record.Handler = t
	return t
}

// Active reports whether the timer is started: Start sets it, Stop and a
// one-shot fire clear it. SetDelay(nil) removes the pending fire but
// leaves Active true, so an active timer is not always scheduled.
func (t *Timer) Active() bool { return t.active }

// Start (re)schedules the timer to first fire after delay has elapsed
// (measured from hwTick, the current hardware tick count), and every
// period thereafter if period is nonzero (a one-shot timer if period is
// zero). Returns kernelerr.BadObjectState if the timer is already
// running; call Stop first to reschedule.
func (t *Timer) Start(delay, period timeout.Duration, hwTick uint32) error {
	if t.active {
		return kernelerr.New("timer.Start", kernelerr.CodeBadObjectState)
	}
	at := t.wheel.EventTimeAt(hwTick) + timeout.EventTime(uint32(delay.AsMicros()))
	t.period = period
	t.wheel.Insert(&t.record, at)
	t.active = true
	return nil
}

// Stop cancels a pending fire. No-op if the timer is not active.
func (t *Timer) Stop() {
	if !t.active {
		return
	}
	t.wheel.Remove(&t.record)
	t.active = false
}

// SetDelay reschedules t's next fire to occur delay from now (hwTick),
// or disarms the pending fire entirely if delay is nil — spec.md §4.K's
// BAD_DURATION sentinel, which leaves Active() true but removes the
// linked timeout, preserving linked ⇔ active ∧ delay ≠ BAD_DURATION.
// It only relinks a currently active timer; a stopped timer has no
// linked timeout for this to adjust, so the delay passed here has no
// lasting effect until a later Start.
func (t *Timer) SetDelay(delay *timeout.Duration, hwTick uint32) {
	if t.record.IsLinked() {
		t.wheel.Remove(&t.record)
	}
	if t.active && delay != nil {
		at := t.wheel.EventTimeAt(hwTick) + timeout.EventTime(uint32(delay.AsMicros()))
		t.wheel.Insert(&t.record, at)
	}
}

// SetPeriod changes the interval t reschedules itself for after each
// fire, without touching any fire currently pending. nil means the
// timer becomes one-shot: it will not reschedule itself after its next
// fire.
func (t *Timer) SetPeriod(period *timeout.Duration) {
	if period == nil {
		t.period = timeout.ZeroDuration
		return
	}
	t.period = *period
}

// OnTimeout implements timeout.Handler. It invokes the configured
// callback and, for a periodic timer, immediately reschedules itself
// period further out from its just-fired deadline (not from "now"),
// which is what keeps a periodic timer's average rate stable under
// scheduling jitter.
func (t *Timer) OnTimeout() {
	t.active = false
	firedAt := t.record.At
	if t.callback != nil {
		t.callback()
	}
	if t.period.IsZero() {
		return
	}
	next := firedAt + timeout.EventTime(uint32(t.period.AsMicros()))
	t.wheel.Insert(&t.record, next)
	t.active = true
}
