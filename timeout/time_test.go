package timeout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/r3go-kernel/r3go/timeout"
)

func TestTime_AddSaturatesAtBounds(t *testing.T) {
	assert.Equal(t, timeout.ZeroTime, timeout.ZeroTime.Add(timeout.DurationFromMicros(-5)))
	assert.Equal(t, timeout.MaxTime, timeout.MaxTime.Add(timeout.DurationFromMicros(5)))
}

func TestTime_AddSub_RoundTrip(t *testing.T) {
	base := timeout.TimeFromSecs(10)
	shifted := base.Add(timeout.DurationFromSecs(3))
	assert.Equal(t, timeout.DurationFromSecs(3), shifted.Sub(base))
}

func TestTime_SubSaturatesAtDurationBounds(t *testing.T) {
	d := timeout.MaxTime.Sub(timeout.ZeroTime)
	assert.Equal(t, timeout.MaxDuration, d)
}

func TestTime_BeforeAfter(t *testing.T) {
	a := timeout.TimeFromSecs(1)
	b := timeout.TimeFromSecs(2)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
}

func TestTime_ConstructorsPanicOnOverflow(t *testing.T) {
	assert.Panics(t, func() { timeout.TimeFromSecs(^uint64(0)) })
}
