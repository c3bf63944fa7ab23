// Package timeout implements the monotonic time core (spec.md §4.E): the
// Duration/Time value types, and Wheel, the ordered set of pending
// timeouts keyed by 32-bit event time that drives both task wake-ups and
// timer fires.
package timeout

import "fmt"

// Duration represents a signed time span, backed by a 32-bit microsecond
// count — the wire unit throughout this package (spec.md §4.E, Part D.1).
// It can represent roughly ±35m47s with microsecond precision.
type Duration struct {
	micros int32
}

// ZeroDuration is the empty interval.
var ZeroDuration = Duration{}

// MaxDuration is the largest representable positive span.
var MaxDuration = Duration{micros: 1<<31 - 1}

// MinDuration is the largest representable negative span.
var MinDuration = Duration{micros: -1 << 31}

// DurationFromMicros constructs a Duration from a microsecond count.
func DurationFromMicros(micros int32) Duration {
	return Duration{micros: micros}
}

// DurationFromMillis constructs a Duration from a millisecond count. It
// panics on overflow, mirroring the original's checked_mul contract
// (spec.md §7: "User-visible panics occur only for programmer errors").
func DurationFromMillis(millis int32) Duration {
	micros, ok := mulInt32(millis, 1_000)
	if !ok {
		panic("timeout: duration overflow")
	}
	return Duration{micros: micros}
}

// DurationFromSecs constructs a Duration from a second count. Panics on
// overflow.
func DurationFromSecs(secs int32) Duration {
	micros, ok := mulInt32(secs, 1_000_000)
	if !ok {
		panic("timeout: duration overflow")
	}
	return Duration{micros: micros}
}

func mulInt32(a, b int32) (int32, bool) {
	r := int64(a) * int64(b)
	if r > 1<<31-1 || r < -1<<31 {
		return 0, false
	}
	return int32(r), true
}

// AsMicros returns the microsecond count.
func (d Duration) AsMicros() int32 { return d.micros }

// AsMillis returns the whole millisecond count (truncated toward zero).
func (d Duration) AsMillis() int32 { return d.micros / 1_000 }

// AsSecs returns the whole second count (truncated toward zero).
func (d Duration) AsSecs() int32 { return d.micros / 1_000_000 }

// AsSecsF64 returns the duration in seconds as a float64.
func (d Duration) AsSecsF64() float64 {
	return float64(d.micros) / 1_000_000.0
}

// AsSecsF32 returns the duration in seconds as a float32. Integer and
// fractional parts are converted separately (mirroring
// r3_core/src/time/duration.rs) because an f32 cannot exactly represent
// every microsecond-scale integer above 16,777,216.
func (d Duration) AsSecsF32() float32 {
	whole := d.micros / 1_000_000
	frac := d.micros % 1_000_000
	return float32(whole) + float32(frac)/1_000_000.0
}

// IsPositive reports whether d > 0.
func (d Duration) IsPositive() bool { return d.micros > 0 }

// IsNegative reports whether d < 0.
func (d Duration) IsNegative() bool { return d.micros < 0 }

// IsZero reports whether d == 0.
func (d Duration) IsZero() bool { return d.micros == 0 }

// String implements fmt.Stringer for debugging.
func (d Duration) String() string {
	return fmt.Sprintf("%dus", d.micros)
}
