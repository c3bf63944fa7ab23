// Package interrupt implements the interrupt line surface described in
// spec.md §4.L: lines are declared with a priority, and only priorities
// within the port's "managed" range may call back into kernel APIs
// (spec.md §4.A: unmanaged interrupts run with interrupts fully masked
// out of the kernel's control and must never touch it).
package interrupt

import "github.com/r3go-kernel/r3go/kernelerr"

// Line is one interrupt line's kernel-side registration.
type Line struct {
	ID       int
	Priority int
	Handler  func()
	enabled  bool
}

// Controller owns every declared interrupt line and the managed
// priority range handlers may be registered within.
type Controller struct {
	managedMin, managedMax int
	lines                  map[int]*Line
}

// NewController constructs a Controller whose managed priority range is
// [managedMin, managedMax] inclusive (lower numeric value = higher
// priority, matching task priority convention). Lines outside this
// range are rejected by Attach, since only managed-range interrupts may
// safely call back into kernel APIs.
func NewController(managedMin, managedMax int) *Controller {
	return &Controller{managedMin: managedMin, managedMax: managedMax, lines: make(map[int]*Line)}
}

// IsManaged reports whether priority falls within the managed range.
func (c *Controller) IsManaged(priority int) bool {
	return priority >= c.managedMin && priority <= c.managedMax
}

// Attach declares line id at the given priority with handler as its
// kernel-side callback. Returns kernelerr.BadParam if priority is
// outside the managed range, or kernelerr.BadID if id is already
// attached.
func (c *Controller) Attach(id, priority int, handler func()) error {
	if !c.IsManaged(priority) {
		return kernelerr.New("interrupt.Attach", kernelerr.CodeBadParam)
	}
	if _, exists := c.lines[id]; exists {
		return kernelerr.New("interrupt.Attach", kernelerr.CodeBadID)
	}
	c.lines[id] = &Line{ID: id, Priority: priority, Handler: handler}
	return nil
}

// Detach removes line id's registration entirely.
func (c *Controller) Detach(id int) error {
	if _, ok := c.lines[id]; !ok {
		return kernelerr.New("interrupt.Detach", kernelerr.CodeBadID)
	}
	delete(c.lines, id)
	return nil
}

// Enable marks line id as active; Dispatch is a no-op for disabled
// lines.
func (c *Controller) Enable(id int) error {
	l, ok := c.lines[id]
	if !ok {
		return kernelerr.New("interrupt.Enable", kernelerr.CodeBadID)
	}
	l.enabled = true
	return nil
}

// Disable marks line id as inactive.
func (c *Controller) Disable(id int) error {
	l, ok := c.lines[id]
	if !ok {
		return kernelerr.New("interrupt.Disable", kernelerr.CodeBadID)
	}
	l.enabled = false
	return nil
}

// IsEnabled reports whether line id is currently enabled.
func (c *Controller) IsEnabled(id int) bool {
	l, ok := c.lines[id]
	return ok && l.enabled
}

// Dispatch is invoked by the port when line id's interrupt fires. It
// calls the registered handler if the line is attached and enabled, and
// is otherwise a silent no-op — a port that dispatches a disabled or
// unattached line has a configuration bug of its own, but spuriously
// firing isn't this kernel's to diagnose.
func (c *Controller) Dispatch(id int) {
	l, ok := c.lines[id]
	if !ok || !l.enabled || l.Handler == nil {
		return
	}
	l.Handler()
}
