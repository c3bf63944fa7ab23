package timeout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/timeout"
)

type fireRecorder struct {
	fired []string
	name  string
	log   *[]string // optional shared log of firings across recorders
}

func (f *fireRecorder) OnTimeout() {
	f.fired = append(f.fired, f.name)
	if f.log != nil {
		*f.log = append(*f.log, f.name)
	}
}

func TestWheel_TickFiresInAscendingOrder(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	var order []string
	mk := func(name string) *fireRecorder { return &fireRecorder{name: name, log: &order} }

	a, b, c := mk("a"), mk("b"), mk("c")
	ra := &timeout.Record{Handler: a}
	rb := &timeout.Record{Handler: b}
	rc := &timeout.Record{Handler: c}

	w.Insert(rc, 300)
	w.Insert(ra, 100)
	w.Insert(rb, 200)

	w.Tick(250)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, []string{"a"}, a.fired)
	assert.Equal(t, []string{"b"}, b.fired)
	assert.Empty(t, c.fired)
	assert.Equal(t, 1, w.Len())

	w.Tick(300)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"c"}, c.fired)
	assert.Equal(t, 0, w.Len())
}

func TestWheel_RemoveUnschedules(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	h := &fireRecorder{name: "x"}
	r := &timeout.Record{Handler: h}
	w.Insert(r, 100)
	require.True(t, r.IsLinked())

	w.Remove(r)
	assert.False(t, r.IsLinked())

	w.Tick(200)
	assert.Empty(t, h.fired)
}

func TestWheel_RemoveOfUnlinkedIsNoOp(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	r := &timeout.Record{Handler: &fireRecorder{}}
	assert.NotPanics(t, func() { w.Remove(r) })
}

func TestWheel_EventAndSystemTimeTrackTicks(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	w.Tick(1_000)
	assert.Equal(t, timeout.EventTime(1_000), w.EventTimeAt(1_000))
	assert.Equal(t, uint64(1_000), w.SystemTimeAt(1_000).AsMicros())

	w.Tick(5_000)
	assert.Equal(t, timeout.EventTime(5_000), w.EventTimeAt(5_000))
	assert.Equal(t, uint64(5_000), w.SystemTimeAt(5_000).AsMicros())
}

func TestWheel_SetTimeRebasesSystemTimeOnly(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	w.Tick(1_000)
	h := &fireRecorder{name: "t"}
	r := &timeout.Record{Handler: h}
	w.Insert(r, 2_000)

	w.SetTime(timeout.TimeFromMicros(1_000_000), 1_000)
	assert.Equal(t, uint64(1_000_000), w.SystemTimeAt(1_000).AsMicros())
	// event time, and therefore the pending record's deadline, is untouched.
	assert.Equal(t, timeout.EventTime(1_000), w.EventTimeAt(1_000))
	assert.True(t, r.IsLinked())
}

func TestWheel_TickHandlesCounterWraparound(t *testing.T) {
	const max = uint32(999)
	w := timeout.NewWheel(max)
	w.Tick(990) // lastTickCount=990, event time=990

	// counter wraps from 999 back to 0, then to 5: elapsed = 999-990 + 1 + 5 = 15
	w.Tick(5)
	assert.Equal(t, timeout.EventTime(990+15), w.EventTimeAt(5))
}

func TestWheel_AdjustTime_ForwardWithinHeadroomSucceeds(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	h := &fireRecorder{name: "timeout"}
	r := &timeout.Record{Handler: h}
	w.Insert(r, 1_000_000) // 1000ms, in microseconds

	require.NoError(t, w.AdjustTime(timeout.DurationFromMillis(999)))
	assert.Equal(t, timeout.EventTime(999_000), w.EventTimeAt(0))
	assert.True(t, r.IsLinked())
}

func TestWheel_AdjustTime_ForwardPastDueWithinHeadroomSucceeds(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	h := &fireRecorder{name: "timeout"}
	r := &timeout.Record{Handler: h}
	w.Insert(r, 1_000_000)

	require.NoError(t, w.AdjustTime(timeout.DurationFromMillis(999)))
	require.NoError(t, w.AdjustTime(timeout.DurationFromMillis(2)))
	// now 1ms overdue, but r is still pending until the next Tick fires it.
	assert.True(t, r.IsLinked())
}

func TestWheel_AdjustTime_ForwardBeyondHeadroomFails(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	h := &fireRecorder{name: "timeout"}
	r := &timeout.Record{Handler: h}
	w.Insert(r, 1_000_000)

	require.NoError(t, w.AdjustTime(timeout.DurationFromMillis(999)))
	require.NoError(t, w.AdjustTime(timeout.DurationFromMillis(2)))

	err := w.AdjustTime(timeout.MaxDuration)
	require.Error(t, err)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeBadObjectState))
}

func TestWheel_AdjustTime_ZeroIsNoOp(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	require.NoError(t, w.AdjustTime(timeout.ZeroDuration))
}

func TestWheel_NextDeadline(t *testing.T) {
	w := timeout.NewWheel(^uint32(0))
	_, ok := w.NextDeadline()
	assert.False(t, ok)

	w.Insert(&timeout.Record{Handler: &fireRecorder{}}, 500)
	w.Insert(&timeout.Record{Handler: &fireRecorder{}}, 100)

	d, ok := w.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, timeout.EventTime(100), d)
}
