package mutex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/mutex"
	"github.com/r3go-kernel/r3go/task"
)

func activated(t *testing.T, p *task.Pool, i, prio int) {
	t.Helper()
	p.Get(i).BasePriority = prio
	p.Get(i).EffectivePriority = prio
	require.NoError(t, p.Activate(i))
}

func TestMutex_LockUnlockUncontended(t *testing.T) {
	p := task.NewPool(2, 16)
	activated(t, p, 0, 5)
	m := mutex.New(0, mutex.None, 0, p)

	blocked, err := m.Lock(0)
	require.NoError(t, err)
	assert.False(t, blocked)
	owner, ok := m.Owner()
	require.True(t, ok)
	assert.Equal(t, 0, owner)

	require.NoError(t, m.Unlock(0))
	_, ok = m.Owner()
	assert.False(t, ok)
}

func TestMutex_UnlockByNonOwnerFails(t *testing.T) {
	p := task.NewPool(2, 16)
	activated(t, p, 0, 5)
	activated(t, p, 1, 5)
	m := mutex.New(0, mutex.None, 0, p)
	_, err := m.Lock(0)
	require.NoError(t, err)

	err = m.Unlock(1)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeNotOwner))
}

func TestMutex_RelockByOwnerWouldDeadlock(t *testing.T) {
	p := task.NewPool(1, 16)
	activated(t, p, 0, 5)
	m := mutex.New(0, mutex.None, 0, p)
	_, err := m.Lock(0)
	require.NoError(t, err)

	_, err = m.Lock(0)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeWouldDeadlock))
}

func TestMutex_ContentionQueuesAndHandsOff(t *testing.T) {
	p := task.NewPool(2, 16)
	activated(t, p, 0, 5)
	activated(t, p, 1, 3)
	m := mutex.New(0, mutex.None, 0, p)

	blocked, err := m.Lock(0)
	require.NoError(t, err)
	require.False(t, blocked)

	blocked, err = m.Lock(1)
	require.NoError(t, err)
	require.True(t, blocked)
	assert.Equal(t, task.Waiting, p.Get(1).State)

	require.NoError(t, m.Unlock(0))
	assert.Equal(t, task.Ready, p.Get(1).State)
	assert.NoError(t, p.Get(1).WaitResult)
	owner, ok := m.Owner()
	require.True(t, ok)
	assert.Equal(t, 1, owner)
}

func TestMutex_CeilingBoostsOwnerAndRejectsHigherEffectivePriority(t *testing.T) {
	p := task.NewPool(1, 16)
	activated(t, p, 0, 10)
	m := mutex.New(0, mutex.Ceiling, 2, p)

	_, err := m.Lock(0)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Get(0).EffectivePriority)

	require.NoError(t, m.Unlock(0))
	assert.Equal(t, 10, p.Get(0).EffectivePriority)

	// once boosted above the ceiling (1 < 2), locking is rejected.
	p.BoostPriority(0, 1)
	_, err = m.Lock(0)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeBadParam))
}

func TestMutex_CeilingRejectsCallerAlreadyAboveCeiling(t *testing.T) {
	p := task.NewPool(1, 16)
	activated(t, p, 0, 1) // effective priority 1, numerically lower (more urgent) than ceiling 2
	m := mutex.New(0, mutex.Ceiling, 2, p)

	_, err := m.Lock(0)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeBadParam))
}

func TestMutex_InheritBoostsOwnerToWaiterPriority(t *testing.T) {
	p := task.NewPool(2, 16)
	activated(t, p, 0, 10)
	activated(t, p, 1, 1) // higher priority than owner
	m := mutex.New(0, mutex.Inherit, 0, p)

	_, err := m.Lock(0)
	require.NoError(t, err)
	blocked, err := m.Lock(1)
	require.NoError(t, err)
	require.True(t, blocked)

	assert.Equal(t, 1, p.Get(0).EffectivePriority, "owner boosted to waiter's priority")

	require.NoError(t, m.Unlock(0))
	assert.Equal(t, 10, p.Get(0).EffectivePriority, "boost released on unlock")
	assert.Equal(t, 1, p.Get(1).EffectivePriority)
}

func TestMutex_AbandonWithNoWaitersLeavesMutexUnlockedButInconsistent(t *testing.T) {
	p := task.NewPool(1, 16)
	activated(t, p, 0, 5)
	m := mutex.New(0, mutex.None, 0, p)
	_, err := m.Lock(0)
	require.NoError(t, err)

	m.Abandon()
	_, ok := m.Owner()
	assert.False(t, ok)
	assert.True(t, m.IsInconsistent())
}

func TestMutex_AbandonHandsOffToOneWaiterAsAbandoned(t *testing.T) {
	p := task.NewPool(3, 16)
	activated(t, p, 0, 5)
	activated(t, p, 1, 5)
	activated(t, p, 2, 5)
	m := mutex.New(0, mutex.None, 0, p)
	_, err := m.Lock(0)
	require.NoError(t, err)
	_, err = m.Lock(1)
	require.NoError(t, err)
	_, err = m.Lock(2)
	require.NoError(t, err)

	m.Abandon()

	// Exactly one waiter is handed ownership, told the state is
	// inconsistent; the other remains queued rather than failing.
	owner, ok := m.Owner()
	require.True(t, ok)
	assert.Equal(t, 1, owner)
	assert.Equal(t, task.Ready, p.Get(1).State)
	assert.True(t, kernelerr.OfCode(p.Get(1).WaitResult, kernelerr.CodeAbandoned))
	assert.Equal(t, task.Waiting, p.Get(2).State)

	// The still-queued waiter also inherits the inconsistent mutex once
	// it is eventually handed ownership.
	require.NoError(t, m.Unlock(1))
	owner, ok = m.Owner()
	require.True(t, ok)
	assert.Equal(t, 2, owner)
	assert.True(t, kernelerr.OfCode(p.Get(2).WaitResult, kernelerr.CodeAbandoned))
}

func TestMutex_LockOnAbandonedMutexGrantsOwnershipAndReturnsAbandoned(t *testing.T) {
	p := task.NewPool(2, 16)
	activated(t, p, 0, 5)
	activated(t, p, 1, 5)
	m := mutex.New(0, mutex.None, 0, p)
	_, err := m.Lock(0)
	require.NoError(t, err)
	m.Abandon()

	_, ok := m.Owner()
	assert.False(t, ok, "no waiters: abandoned mutex starts out unlocked")

	blocked, err := m.Lock(1)
	assert.False(t, blocked)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeAbandoned))
	owner, ok := m.Owner()
	require.True(t, ok, "ownership is granted even though Abandoned was returned")
	assert.Equal(t, 1, owner)
}

func TestMutex_AbandonedStatusPersistsAcrossUnlockUntilMarkConsistent(t *testing.T) {
	p := task.NewPool(2, 16)
	activated(t, p, 0, 5)
	activated(t, p, 1, 5)
	m := mutex.New(0, mutex.None, 0, p)
	_, err := m.Lock(0)
	require.NoError(t, err)
	m.Abandon()

	_, err = m.Lock(1)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeAbandoned))
	require.NoError(t, m.Unlock(1))

	_, err = m.Lock(1)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeAbandoned), "still inconsistent")
	require.NoError(t, m.Unlock(1))

	err = m.TryLock(1)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeAbandoned), "TryLock observes it too")
	require.NoError(t, m.Unlock(1))

	require.NoError(t, m.MarkConsistent())
	_, err = m.Lock(1)
	assert.NoError(t, err, "clean after MarkConsistent")
}

func TestMutex_MarkConsistentFailsWhenAlreadyConsistent(t *testing.T) {
	p := task.NewPool(1, 16)
	activated(t, p, 0, 5)
	m := mutex.New(0, mutex.None, 0, p)
	err := m.MarkConsistent()
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeBadObjectState))
}

func TestMutex_TryLockWouldBlockOnHeldMutex(t *testing.T) {
	p := task.NewPool(2, 16)
	activated(t, p, 0, 5)
	activated(t, p, 1, 5)
	m := mutex.New(0, mutex.None, 0, p)
	_, err := m.Lock(0)
	require.NoError(t, err)

	err = m.TryLock(1)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeTimeout))
}

func TestMutex_UnlockOutOfLIFOOrderFailsWithBadObjectState(t *testing.T) {
	p := task.NewPool(1, 16)
	activated(t, p, 0, 5)
	m1 := mutex.New(0, mutex.None, 0, p)
	m2 := mutex.New(1, mutex.None, 0, p)

	_, err := m1.Lock(0)
	require.NoError(t, err)
	_, err = m2.Lock(0)
	require.NoError(t, err)

	// m2 was locked last; unlocking m1 first violates LIFO order.
	err = m1.Unlock(0)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeBadObjectState))

	// Unlocking in the correct order succeeds.
	require.NoError(t, m2.Unlock(0))
	require.NoError(t, m1.Unlock(0))
}
