package wait_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3go-kernel/r3go/internal/list"
	"github.com/r3go-kernel/r3go/wait"
)

type pool struct {
	links []list.Link
	prios []int
}

func newPool(prios []int) *pool {
	p := &pool{links: make([]list.Link, len(prios)), prios: prios}
	for i := range p.links {
		p.links[i] = list.Link{Prev: list.Nil, Next: list.Nil}
	}
	return p
}

func (p *pool) Link(i int) *list.Link { return &p.links[i] }
func (p *pool) Priority(i int) int    { return p.prios[i] }

func collect(q *wait.Queue) []int {
	var out []int
	q.Iter(func(i int) bool {
		out = append(out, i)
		return true
	})
	return out
}

func TestQueue_FIFOPreservesArrivalOrder(t *testing.T) {
	p := newPool([]int{5, 1, 9})
	q := wait.New(wait.FIFO, p)
	q.Enqueue(0)
	q.Enqueue(1)
	q.Enqueue(2)
	assert.Equal(t, []int{0, 1, 2}, collect(q))
}

func TestQueue_ByPriorityOrdersByPriority(t *testing.T) {
	p := newPool([]int{5, 1, 9, 1})
	q := wait.New(wait.ByPriority, p)
	q.Enqueue(0) // prio 5
	q.Enqueue(1) // prio 1, highest priority (lowest number) -> front
	q.Enqueue(2) // prio 9, lowest priority -> back
	q.Enqueue(3) // prio 1, ties with 1, queues behind it (FIFO among equals)
	assert.Equal(t, []int{1, 3, 0, 2}, collect(q))
}

func TestQueue_DequeueFIFO(t *testing.T) {
	p := newPool([]int{0, 0, 0})
	q := wait.New(wait.FIFO, p)
	q.Enqueue(0)
	q.Enqueue(1)
	i, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, []int{1}, collect(q))
}

func TestQueue_Remove(t *testing.T) {
	p := newPool([]int{0, 0, 0})
	q := wait.New(wait.FIFO, p)
	q.Enqueue(0)
	q.Enqueue(1)
	q.Enqueue(2)
	q.Remove(1)
	assert.Equal(t, []int{0, 2}, collect(q))
}

func TestQueue_WakeAllConditional(t *testing.T) {
	p := newPool([]int{0, 0, 0, 0})
	q := wait.New(wait.FIFO, p)
	for i := 0; i < 4; i++ {
		q.Enqueue(i)
	}
	var woken []int
	q.WakeAllConditional(
		func(i int) bool { return i%2 == 0 },
		func(i int) { woken = append(woken, i) },
	)
	assert.Equal(t, []int{0, 2}, woken)
	assert.Equal(t, []int{1, 3}, collect(q))
}

func TestQueue_Empty(t *testing.T) {
	p := newPool([]int{0})
	q := wait.New(wait.FIFO, p)
	assert.True(t, q.Empty())
	q.Enqueue(0)
	assert.False(t, q.Empty())
}
