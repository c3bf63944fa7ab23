// Package kernelcfg is the build-time configuration surface for the
// kernel facade (spec.md §5: "the kernel is statically configured; no
// object is created after start"). It follows the functional-options
// idiom the teacher uses throughout (eventloop/options.go's
// LoopOption): an exported Config struct, an exported Option interface
// whose only method is private, and WithXxx constructors that return
// small closures.
package kernelcfg

import "math"

// Config holds every kernel-wide build parameter. Object declarations
// themselves (tasks, semaphores, ...) are made separately, on the
// kernel.Builder that kernel.NewBuilder returns; Config only covers
// parameters that apply to the kernel as a whole.
type Config struct {
	MaxPriorities  int
	HWMaxTickCount uint32
	Logger         Logger
}

// Logger is declared here rather than imported from klog to avoid a
// dependency cycle (klog has no reason to know about kernelcfg). Any
// klog.Logger satisfies it. The kernel facade stores it in Config and
// does not read it.
type Logger interface {
	IsEnabled(level int32) bool
}

// Option configures a Config. The apply method is unexported so Option
// values can only be produced by this package's WithXxx constructors,
// the same closed-set pattern eventloop.LoopOption uses.
type Option interface {
	apply(*Config) error
}

type optionFunc func(*Config) error

func (f optionFunc) apply(c *Config) error { return f(c) }

// WithMaxPriorities sets the number of distinct task priority levels the
// kernel's priority bitmap is sized for (spec.md §4.C). Must be positive
// and no larger than prio.MaxLen (64^3); this package does not import
// internal/prio to avoid reaching into an internal package from a
// non-internal one, so the upper bound is re-stated as a literal here.
func WithMaxPriorities(n int) Option {
	return optionFunc(func(c *Config) error {
		if n <= 0 {
			return errConfig("max priorities must be positive")
		}
		if n > 64*64*64 {
			return errConfig("max priorities exceeds the bitmap's capacity")
		}
		c.MaxPriorities = n
		return nil
	})
}

// WithHWMaxTickCount sets the inclusive upper bound of the hardware free
// running tick counter the port exposes, used by timeout.Wheel to detect
// counter wraparound (spec.md §4.E). Defaults to math.MaxUint32 (a full
// width free running counter) if never set.
func WithHWMaxTickCount(max uint32) Option {
	return optionFunc(func(c *Config) error {
		c.HWMaxTickCount = max
		return nil
	})
}

// WithLogger records l as Config.Logger. The kernel facade emits no log
// entries and does not consult it.
func WithLogger(l Logger) Option {
	return optionFunc(func(c *Config) error {
		c.Logger = l
		return nil
	})
}

type configError string

func (e configError) Error() string { return string(e) }

func errConfig(msg string) error { return configError("kernelcfg: " + msg) }

// Resolve applies opts over the default Config, in order, short
// circuiting on the first error — mirroring
// eventloop.resolveLoopOptions's skip-nil / apply-in-order / first-error
// contract.
func Resolve(opts []Option) (*Config, error) {
	cfg := &Config{
		MaxPriorities:  256,
		HWMaxTickCount: math.MaxUint32,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
