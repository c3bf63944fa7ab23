package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3go-kernel/r3go/kernelerr"
	"github.com/r3go-kernel/r3go/task"
	"github.com/r3go-kernel/r3go/wait"
)

func newPoolWithPriorities(t *testing.T, n int, prios []int) *task.Pool {
	t.Helper()
	p := task.NewPool(n, 16)
	for i, prio := range prios {
		p.Get(i).BasePriority = prio
		p.Get(i).EffectivePriority = prio
	}
	return p
}

func TestPool_ActivateRequiresDormant(t *testing.T) {
	p := newPoolWithPriorities(t, 2, []int{1, 1})
	require.NoError(t, p.Activate(0))
	assert.Equal(t, task.Ready, p.Get(0).State)

	err := p.Activate(0)
	assert.True(t, kernelerr.OfCode(err, kernelerr.CodeBadObjectState))
}

func TestPool_DispatchPrefersHigherPriority(t *testing.T) {
	p := newPoolWithPriorities(t, 2, []int{5, 1})
	require.NoError(t, p.Activate(0))
	require.NoError(t, p.Activate(1))

	next, ok := p.Dispatch()
	require.True(t, ok)
	assert.Equal(t, 1, next, "priority 1 is numerically higher priority than 5")
}

func TestPool_DispatchDoesNotPreemptEqualPriority(t *testing.T) {
	p := newPoolWithPriorities(t, 2, []int{3, 3})
	require.NoError(t, p.Activate(0))
	p.SwitchTo(0)
	require.NoError(t, p.Activate(1))

	next, ok := p.Dispatch()
	require.True(t, ok)
	assert.Equal(t, 0, next, "equal-priority ready task must not preempt the runner")
}

func TestPool_DispatchPreemptsStrictlyHigherPriority(t *testing.T) {
	p := newPoolWithPriorities(t, 2, []int{5, 5})
	require.NoError(t, p.Activate(0))
	p.SwitchTo(0)
	p.Get(1).BasePriority = 1
	p.Get(1).EffectivePriority = 1
	require.NoError(t, p.Activate(1))

	next, ok := p.Dispatch()
	require.True(t, ok)
	assert.Equal(t, 1, next)
}

func TestPool_SwitchToRequeuesPreviousRunner(t *testing.T) {
	p := newPoolWithPriorities(t, 2, []int{1, 1})
	require.NoError(t, p.Activate(0))
	require.NoError(t, p.Activate(1))
	p.SwitchTo(0)
	assert.Equal(t, task.Running, p.Get(0).State)

	p.SwitchTo(1)
	assert.Equal(t, task.Ready, p.Get(0).State)
	assert.Equal(t, task.Running, p.Get(1).State)
	running, ok := p.Running()
	require.True(t, ok)
	assert.Equal(t, 1, running)
}

func TestPool_MakeWaitingAndWake(t *testing.T) {
	p := newPoolWithPriorities(t, 1, []int{1})
	require.NoError(t, p.Activate(0))
	p.SwitchTo(0)

	p.MakeWaiting(0, wait.Payload{Reason: wait.ReasonSemaphore, ObjectID: 7})
	assert.Equal(t, task.Waiting, p.Get(0).State)
	_, running := p.Running()
	assert.False(t, running)

	p.Wake(0, kernelerr.New("sem.Wait", kernelerr.CodeTimeout))
	assert.Equal(t, task.Ready, p.Get(0).State)
	assert.True(t, kernelerr.OfCode(p.Get(0).WaitResult, kernelerr.CodeTimeout))
}

func TestPool_BoostAndUnboostPriority(t *testing.T) {
	p := newPoolWithPriorities(t, 1, []int{10})
	require.NoError(t, p.Activate(0))
	assert.Equal(t, 10, p.Get(0).EffectivePriority)

	p.BoostPriority(0, 2)
	assert.Equal(t, 2, p.Get(0).EffectivePriority)

	// nested boost to a lower-priority value than the current boost has no effect.
	p.BoostPriority(0, 5)
	assert.Equal(t, 2, p.Get(0).EffectivePriority)

	p.UnboostPriority(0)
	assert.Equal(t, 2, p.Get(0).EffectivePriority, "one boost still held")

	p.UnboostPriority(0)
	assert.Equal(t, 10, p.Get(0).EffectivePriority, "last boost released, reverts to base")
}

func TestPool_MakeDormantResetsState(t *testing.T) {
	p := newPoolWithPriorities(t, 1, []int{10})
	require.NoError(t, p.Activate(0))
	p.BoostPriority(0, 1)
	p.Unpark(0)

	p.MakeDormant(0)
	tcb := p.Get(0)
	assert.Equal(t, task.Dormant, tcb.State)
	assert.Equal(t, 10, tcb.EffectivePriority)
	assert.False(t, tcb.Parked)

	assert.NoError(t, p.Activate(0))
}

func TestPool_ParkUnpark(t *testing.T) {
	p := newPoolWithPriorities(t, 1, []int{1})
	require.NoError(t, p.Activate(0))
	p.SwitchTo(0)

	assert.False(t, p.Park(0), "no token pending yet")

	p.Unpark(0)
	assert.True(t, p.Park(0), "token delivered by Unpark is consumed")
	assert.False(t, p.Park(0), "token was already consumed")
}

func TestPool_UnparkWakesWaitingTask(t *testing.T) {
	p := newPoolWithPriorities(t, 1, []int{1})
	require.NoError(t, p.Activate(0))
	p.SwitchTo(0)
	p.MakeWaiting(0, wait.Payload{Reason: wait.ReasonTask})

	p.Unpark(0)
	assert.Equal(t, task.Ready, p.Get(0).State)
	assert.NoError(t, p.Get(0).WaitResult)
}
