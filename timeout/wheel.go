package timeout

import (
	"container/heap"

	"github.com/r3go-kernel/r3go/kernelerr"
)

// EventTime is a 32-bit wrapping timestamp, the unit pending timeouts are
// keyed by (spec.md §4.E). Unlike Time it wraps on overflow by design —
// comparisons between two EventTime values are only meaningful when both
// lie within TimeUserHeadroom of one another, the same assumption the
// original makes about its event-time domain.
type EventTime uint32

// TimeUserHeadroom bounds how far a pending timeout's event time may
// legally diverge from the wheel's current event time: half of the
// 32-bit range, so a signed difference between any two in-range event
// times is never ambiguous (spec.md §9 Open Questions, resolved in
// SPEC_FULL.md Part A §9: TIME_USER_HEADROOM = 1<<31).
const TimeUserHeadroom uint32 = 1 << 31

// eventBefore reports whether a is chronologically before b, using a
// wrap-aware signed difference (the same trick TCP sequence number
// comparisons use) rather than a naive numeric less-than.
func eventBefore(a, b EventTime) bool {
	return int32(a-b) < 0
}

// Handler receives a callback when its Record's deadline is reached by
// Wheel.Tick.
type Handler interface {
	OnTimeout()
}

// Record is a single pending timeout. The zero value is not linked into
// any Wheel; a Record must be inserted with Wheel.Insert before it will
// ever fire, and is safe to reuse once removed or fired.
type Record struct {
	At      EventTime
	Handler Handler
	index   int  // position in the wheel's heap; meaningful only while linked
	linked  bool // set by Insert, cleared when removed or fired
}

// IsLinked reports whether r is currently pending in some Wheel.
func (r *Record) IsLinked() bool { return r.linked }

// recordHeap implements container/heap.Interface, ordered by At using
// eventBefore so the earliest-due record is always at index 0.
type recordHeap []*Record

func (h recordHeap) Len() int            { return len(h) }
func (h recordHeap) Less(i, j int) bool  { return eventBefore(h[i].At, h[j].At) }
func (h recordHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *recordHeap) Push(x interface{}) {
	r := x.(*Record)
	r.index = len(*h)
	r.linked = true
	*h = append(*h, r)
}
func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	r.linked = false
	*h = old[:n-1]
	return r
}

// Wheel is the ordered set of pending timeouts plus the event-time /
// system-time tracking described in spec.md §4.E. It is driven by a
// hardware tick count supplied by the port (spec.md §4.A) — the Wheel
// itself never reads a clock.
//
// Wheel is not safe for concurrent use; callers serialize access. The
// kernel facade does so by letting only one goroutine (the scheduler loop
// or the dispatched task) run at a time.
type Wheel struct {
	maxTickCount uint32 // inclusive upper bound of the hardware counter

	lastTickCount     uint32
	lastTickEventTime EventTime
	lastTickSysTime   uint64 // microseconds

	frontier EventTime // highest event time this wheel has ever reached

	pending recordHeap
}

// NewWheel constructs a Wheel for a hardware counter that free-runs over
// [0, maxTickCount] before wrapping. Pass math.MaxUint32 if the counter
// is a full-width free-running 32-bit timer.
func NewWheel(maxTickCount uint32) *Wheel {
	return &Wheel{maxTickCount: maxTickCount}
}

func (w *Wheel) elapsedSince(hwTick uint32) uint32 {
	if w.maxTickCount == ^uint32(0) || hwTick >= w.lastTickCount {
		return hwTick - w.lastTickCount
	}
	return (hwTick - w.lastTickCount) - (^uint32(0) - w.maxTickCount)
}

// EventTimeAt returns the wheel's current event time as of hwTick,
// without mutating any state. hwTick must be the current hardware tick
// count as read from the port.
func (w *Wheel) EventTimeAt(hwTick uint32) EventTime {
	return w.lastTickEventTime + EventTime(w.elapsedSince(hwTick))
}

// SystemTimeAt returns the wheel's current system time as of hwTick,
// without mutating any state.
func (w *Wheel) SystemTimeAt(hwTick uint32) Time {
	return TimeFromMicros(w.lastTickSysTime + uint64(w.elapsedSince(hwTick)))
}

// SetTime rebases system time so that SystemTimeAt(hwTick) == t from now
// on. Event time (and therefore every pending timeout's remaining
// duration) is untouched.
func (w *Wheel) SetTime(t Time, hwTick uint32) {
	elapsed := w.elapsedSince(hwTick)
	w.lastTickSysTime = t.AsMicros() - uint64(elapsed)
}

func (w *Wheel) advanceFrontier(t EventTime) {
	if eventBefore(w.frontier, t) || w.frontier == 0 {
		w.frontier = t
	}
}

// Tick advances the wheel to hwTick, firing (via Handler.OnTimeout, in
// ascending deadline order) every Record whose deadline has been
// reached. Handlers may re-Insert themselves (periodic timers do this)
// but must not Insert or Remove any *other* record from within
// OnTimeout; the wheel is not reentrant.
func (w *Wheel) Tick(hwTick uint32) {
	elapsed := w.elapsedSince(hwTick)
	w.lastTickCount = hwTick
	w.lastTickEventTime += EventTime(elapsed)
	w.lastTickSysTime += uint64(elapsed)
	w.advanceFrontier(w.lastTickEventTime)

	for len(w.pending) > 0 {
		top := w.pending[0]
		if int32(top.At-w.lastTickEventTime) > 0 {
			break
		}
		heap.Pop(&w.pending)
		top.Handler.OnTimeout()
	}
}

// Insert schedules r to fire at the given event time. r must not already
// be linked into this or any other Wheel.
func (w *Wheel) Insert(r *Record, at EventTime) {
	r.At = at
	w.advanceFrontier(at)
	heap.Push(&w.pending, r)
}

// Remove unschedules r. It is a no-op if r is not currently linked.
func (w *Wheel) Remove(r *Record) {
	if !r.IsLinked() {
		return
	}
	heap.Remove(&w.pending, r.index)
}

// NextDeadline returns the event time of the earliest pending Record and
// true, or (0, false) if nothing is pending. Ports use this to compute
// how long they may sleep before the next tick is required.
func (w *Wheel) NextDeadline() (EventTime, bool) {
	if len(w.pending) == 0 {
		return 0, false
	}
	return w.pending[0].At, true
}

// AdjustTime moves the wheel's current event time by delta, which in
// turn shifts every pending timeout's remaining duration by -delta
// (spec.md §4.E "adjust_time"). It rejects adjustments that would push
// any pending timeout's overdue-ness, or the gap between the observed
// frontier and the new current time, beyond TimeUserHeadroom — the
// bound that keeps every live event-time comparison unambiguous.
//
// Open Question resolution (recorded in DESIGN.md): the original's
// "shifts both the last-tick event time and all enqueued at values by
// -delta" is read as a conceptual description of the net effect, not a
// literal two-part mutation (which would cancel out to a no-op); this
// implementation advances the current-time reference directly and
// leaves all pending At values untouched, which reproduces the
// documented test scenarios exactly.
func (w *Wheel) AdjustTime(delta Duration) error {
	d := delta.AsMicros()
	if d == 0 {
		return nil
	}
	headroom := int64(TimeUserHeadroom)

	if d > 0 {
		newTime := w.lastTickEventTime + EventTime(uint32(d))
		for _, r := range w.pending {
			remaining := int64(int32(r.At - w.lastTickEventTime))
			if int64(d)-remaining > headroom {
				return kernelerr.New("timeout.AdjustTime", kernelerr.CodeBadObjectState)
			}
		}
		w.lastTickEventTime = newTime
		w.advanceFrontier(newTime)
		return nil
	}

	newTime := w.lastTickEventTime + EventTime(uint32(d))
	gap := int64(int32(w.frontier-w.lastTickEventTime)) - int64(d)
	if gap > headroom {
		return kernelerr.New("timeout.AdjustTime", kernelerr.CodeBadObjectState)
	}
	w.lastTickEventTime = newTime
	return nil
}

// Len reports the number of currently pending records. Diagnostics only.
func (w *Wheel) Len() int { return len(w.pending) }
