// Package klock implements the CPU-lock cell primitive (spec.md §4.B): a
// wrapper around kernel state whose access requires presenting a singleton
// CPU-lock Token. The Token can only be obtained by successfully entering
// the CPU-lock state, and a second attempt to enter fails rather than
// nesting — this structurally prevents both unprotected access to kernel
// state and accidental re-entrant critical sections.
//
// Go has no linear types, so this realizes option (b) from spec.md §9
// Design Notes: a run-time guard enforced by atomic CAS, not a
// phantom-typed compile-time token. Every exported method that should only
// run under lock takes a *Token purely as a capability marker; within
// this package, Lock.TryEnter is the only place a Token is created.
package klock

import "sync/atomic"

// Token is proof that the CPU lock is currently held by the caller. It is
// obtained from Lock.TryEnter and must be presented to Cell methods.
// Copying a Token is harmless (it carries no state) but passing one across
// goroutines defeats the purpose it exists for — callers are expected to
// treat it as scoped to the critical section that produced it.
type Token struct {
	_ [0]func() // uncomparable, discourages storing/sharing
}

// Lock is the kernel-wide CPU-lock state. A kernel instance owns exactly
// one Lock; every Cell in that kernel instance is guarded by it.
type Lock struct {
	active atomic.Bool
}

// TryEnter attempts to enter the CPU-lock state. It returns a Token and
// true on success, or (nil, false) if the lock is already held — mirroring
// try_enter_cpu_lock's "returns false if already entered" contract. The
// kernel API shim is responsible for turning a false result into
// kernelerr.CodeBadContext.
func (l *Lock) TryEnter() (*Token, bool) {
	if !l.active.CompareAndSwap(false, true) {
		return nil, false
	}
	return &Token{}, true
}

// Leave exits the CPU-lock state. It panics if the lock was not held,
// which is always a programmer error (the port interface's precondition
// is "CPU lock held").
func (l *Lock) Leave(*Token) {
	if !l.active.CompareAndSwap(true, false) {
		panic("klock: Leave called without an active CPU lock")
	}
}

// IsActive reports whether the CPU lock is currently held by anyone. It is
// safe to call without a Token.
func (l *Lock) IsActive() bool {
	return l.active.Load()
}

// Cell wraps a value of type T such that reading or writing it requires a
// Token, preventing access to kernel state outside a CPU-locked critical
// section.
type Cell[T any] struct {
	v T
}

// NewCell constructs a Cell with the given initial value.
func NewCell[T any](initial T) Cell[T] {
	return Cell[T]{v: initial}
}

// Get returns the current value. The Token argument is unused beyond
// proving the caller holds the lock.
func (c *Cell[T]) Get(*Token) T {
	return c.v
}

// Set stores a new value.
func (c *Cell[T]) Set(_ *Token, v T) {
	c.v = v
}

// Replace stores a new value and returns the previous one.
func (c *Cell[T]) Replace(_ *Token, v T) T {
	old := c.v
	c.v = v
	return old
}

// ReplaceWith atomically (w.r.t. other CPU-locked operations) replaces the
// value with f applied to the current value, returning the new value.
func (c *Cell[T]) ReplaceWith(_ *Token, f func(T) T) T {
	c.v = f(c.v)
	return c.v
}

// Ptr returns a pointer to the underlying value for in-place mutation of
// composite types (e.g. appending to a slice field) while still requiring
// a Token to obtain it.
func (c *Cell[T]) Ptr(*Token) *T {
	return &c.v
}
