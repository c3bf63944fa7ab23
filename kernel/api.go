package kernel

import (
	"github.com/r3go-kernel/r3go/evtgroup"
	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/timeout"
	"github.com/r3go-kernel/r3go/wait"
)

// ActivateTask transitions a Dormant task to Ready. Returns
// kernelerr.BadObjectState if the task is not Dormant.
func (k *Kernel) ActivateTask(taskID int) error {
	return k.pool.Activate(taskID)
}

// Sleep blocks the calling task (identified by taskID) for d, waking it
// with a nil result once d has elapsed. d must be positive; spec.md
// §4.F treats a non-positive sleep as an immediate no-op.
func (k *Kernel) Sleep(taskID int, d timeout.Duration) error {
	if !d.IsPositive() {
		return nil
	}
	k.pool.MakeWaiting(taskID, wait.Payload{Reason: wait.ReasonSleep})
	return k.blockAndWait(taskID, nil, &d, nil)
}

// LockMutex locks the given mutex on behalf of taskID, blocking the
// caller if it is already held. If timeoutDur is non-nil, the wait is
// bounded: kernelerr.Timeout is returned if the lock is not acquired
// within that duration.
func (k *Kernel) LockMutex(taskID, mutexID int, timeoutDur *timeout.Duration) error {
	m, ok := k.mutexes[mutexID]
	if !ok {
		return kernelerr.New("kernel.LockMutex", kernelerr.CodeBadID)
	}
	blocked, err := m.Lock(taskID)
	if err != nil || !blocked {
		return err
	}
	return k.blockAndWait(taskID, m, timeoutDur, kernelerr.New("kernel.LockMutex", kernelerr.CodeTimeout))
}

// UnlockMutex releases the given mutex, owned by taskID.
func (k *Kernel) UnlockMutex(taskID, mutexID int) error {
	m, ok := k.mutexes[mutexID]
	if !ok {
		return kernelerr.New("kernel.UnlockMutex", kernelerr.CodeBadID)
	}
	return m.Unlock(taskID)
}

// AbandonMutexesOwnedBy releases every mutex currently owned by taskID,
// waking its waiters with kernelerr.Abandoned. The kernel facade calls
// this when a task exits or is forcibly terminated while still holding
// locks (spec.md §4.H).
func (k *Kernel) AbandonMutexesOwnedBy(taskID int) {
	for _, m := range k.mutexes {
		if owner, ok := m.Owner(); ok && owner == taskID {
			m.Abandon()
		}
	}
}

// WaitSemaphore claims one token from the given semaphore, blocking the
// caller if none is immediately available.
func (k *Kernel) WaitSemaphore(taskID, semID int, timeoutDur *timeout.Duration) error {
	s, ok := k.sems[semID]
	if !ok {
		return kernelerr.New("kernel.WaitSemaphore", kernelerr.CodeBadID)
	}
	blocked, err := s.Wait(taskID)
	if err != nil || !blocked {
		return err
	}
	return k.blockAndWait(taskID, s, timeoutDur, kernelerr.New("kernel.WaitSemaphore", kernelerr.CodeTimeout))
}

// SignalSemaphore releases n tokens to the given semaphore, handing them
// off directly to waiters one at a time before depositing any remainder
// into its count (sem.Semaphore.Signal).
func (k *Kernel) SignalSemaphore(semID int, n int) error {
	s, ok := k.sems[semID]
	if !ok {
		return kernelerr.New("kernel.SignalSemaphore", kernelerr.CodeBadID)
	}
	return s.Signal(n)
}

// DrainSemaphore unconditionally resets the given semaphore's count to
// zero, without affecting any task already queued on it
// (sem.Semaphore.Drain).
func (k *Kernel) DrainSemaphore(semID int) error {
	s, ok := k.sems[semID]
	if !ok {
		return kernelerr.New("kernel.DrainSemaphore", kernelerr.CodeBadID)
	}
	s.Drain()
	return nil
}

// WaitEventGroup blocks taskID until the given event group's bits
// satisfy (want, mode), as evtgroup.EventGroup.Wait. The returned
// origBits is the group's bit word as it stood the instant the wait was
// satisfied, before clearOnExit removed any of it (spec.md §4.J
// orig_bits); it is only meaningful when err is nil.
func (k *Kernel) WaitEventGroup(taskID, groupID int, want uint32, mode evtgroup.WaitMode, clearOnExit bool, timeoutDur *timeout.Duration) (origBits uint32, err error) {
	g, ok := k.groups[groupID]
	if !ok {
		return 0, kernelerr.New("kernel.WaitEventGroup", kernelerr.CodeBadID)
	}
	blocked, origBits, err := g.Wait(taskID, want, mode, clearOnExit)
	if err != nil || !blocked {
		return origBits, err
	}
	err = k.blockAndWait(taskID, g, timeoutDur, kernelerr.New("kernel.WaitEventGroup", kernelerr.CodeTimeout))
	return k.pool.Get(taskID).WaitBits, err
}

// SetEventGroup ORs mask into the given event group's bits.
func (k *Kernel) SetEventGroup(groupID int, mask uint32) error {
	g, ok := k.groups[groupID]
	if !ok {
		return kernelerr.New("kernel.SetEventGroup", kernelerr.CodeBadID)
	}
	g.Set(mask)
	return nil
}

// ClearEventGroup ANDs mask out of the given event group's bits.
func (k *Kernel) ClearEventGroup(groupID int, mask uint32) error {
	g, ok := k.groups[groupID]
	if !ok {
		return kernelerr.New("kernel.ClearEventGroup", kernelerr.CodeBadID)
	}
	g.Clear(mask)
	return nil
}

// StartTimer (re)schedules the given timer (timer.Timer.Start).
func (k *Kernel) StartTimer(timerID int, delay, period timeout.Duration) error {
	t, ok := k.timers[timerID]
	if !ok {
		return kernelerr.New("kernel.StartTimer", kernelerr.CodeBadID)
	}
	return t.Start(delay, period, k.port.TickCount())
}

// StopTimer cancels a pending fire of the given timer.
func (k *Kernel) StopTimer(timerID int) error {
	t, ok := k.timers[timerID]
	if !ok {
		return kernelerr.New("kernel.StopTimer", kernelerr.CodeBadID)
	}
	t.Stop()
	return nil
}

// SetTimerDelay reschedules the given timer's next fire (timer.Timer.SetDelay).
// A nil delay disarms the pending fire without deactivating the timer.
func (k *Kernel) SetTimerDelay(timerID int, delay *timeout.Duration) error {
	t, ok := k.timers[timerID]
	if !ok {
		return kernelerr.New("kernel.SetTimerDelay", kernelerr.CodeBadID)
	}
	t.SetDelay(delay, k.port.TickCount())
	return nil
}

// SetTimerPeriod changes the given timer's repeat interval
// (timer.Timer.SetPeriod). A nil period makes the timer one-shot.
func (k *Kernel) SetTimerPeriod(timerID int, period *timeout.Duration) error {
	t, ok := k.timers[timerID]
	if !ok {
		return kernelerr.New("kernel.SetTimerPeriod", kernelerr.CodeBadID)
	}
	t.SetPeriod(period)
	return nil
}

// AttachInterrupt declares interrupt line id at priority, running
// handler (with the Kernel passed through) when the port dispatches it.
func (k *Kernel) AttachInterrupt(id, priority int, handler func(k *Kernel)) error {
	return k.interrupts.Attach(id, priority, func() { handler(k) })
}

// DispatchInterrupt is called by the port when interrupt line id fires.
// After running the attached handler, it asks the port to re-run the
// scheduler promptly, since the handler may have made a higher-priority
// task ready (spec.md §4.L).
func (k *Kernel) DispatchInterrupt(id int) {
	k.interrupts.Dispatch(id)
	k.port.RequestDispatch()
}
