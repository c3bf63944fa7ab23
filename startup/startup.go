// Package startup implements the startup hook chain described in
// spec.md §4.M: callbacks run once, in ascending priority order, before
// the scheduler activates any task. kernel.Builder registers each
// declared hunk's initializer on this chain at priority -1.
//
// Tie-break (Part D.6, ported from r3_port_arm/src/startup/imp.rs):
// hooks registered at equal priority run in registration order. This is
// enforced with an explicit stable sort keyed on (Priority, Order)
// rather than relying on registration order alone surviving whatever
// future reordering this chain might gain, mirroring how the original
// makes the tie-break explicit rather than incidental.
package startup

import "sort"

// Hook is one registered startup callback.
type Hook struct {
	Priority int
	Order    int // assigned by Register, in registration order
	Func     func()
}

// Chain is an ordered sequence of startup hooks.
type Chain struct {
	hooks     []Hook
	nextOrder int
}

// Register appends f to the chain at the given priority (lower value
// runs earlier). Hooks registered at the same priority run in the
// order they were registered.
func (c *Chain) Register(priority int, f func()) {
	c.hooks = append(c.hooks, Hook{Priority: priority, Order: c.nextOrder, Func: f})
	c.nextOrder++
}

// Len returns the number of registered hooks.
func (c *Chain) Len() int { return len(c.hooks) }

// Run sorts the chain by (Priority, Order) and invokes every hook in
// that order. Run may be called more than once; each call re-sorts and
// re-runs the full chain.
func (c *Chain) Run() {
	sort.SliceStable(c.hooks, func(i, j int) bool {
		if c.hooks[i].Priority != c.hooks[j].Priority {
			return c.hooks[i].Priority < c.hooks[j].Priority
		}
		return c.hooks[i].Order < c.hooks[j].Order
	})
	for _, h := range c.hooks {
		h.Func()
	}
}
