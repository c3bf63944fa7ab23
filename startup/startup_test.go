package startup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/r3go-kernel/r3go/startup"
)

func TestChain_RunsInAscendingPriorityOrder(t *testing.T) {
	var c startup.Chain
	var order []int
	c.Register(5, func() { order = append(order, 5) })
	c.Register(1, func() { order = append(order, 1) })
	c.Register(3, func() { order = append(order, 3) })

	c.Run()
	assert.Equal(t, []int{1, 3, 5}, order)
}

func TestChain_EqualPriorityTieBreaksByRegistrationOrder(t *testing.T) {
	var c startup.Chain
	var order []string
	c.Register(1, func() { order = append(order, "first") })
	c.Register(1, func() { order = append(order, "second") })
	c.Register(1, func() { order = append(order, "third") })

	c.Run()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestChain_RunTwiceReproducesSameOrder(t *testing.T) {
	var c startup.Chain
	var order []int
	c.Register(2, func() { order = append(order, 2) })
	c.Register(1, func() { order = append(order, 1) })

	c.Run()
	c.Run()
	assert.Equal(t, []int{1, 2, 1, 2}, order)
}

func TestChain_Len(t *testing.T) {
	var c startup.Chain
	assert.Equal(t, 0, c.Len())
	c.Register(0, func() {})
	assert.Equal(t, 1, c.Len())
}
