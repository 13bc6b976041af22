package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickRing_EvictsOldestOnFull(t *testing.T) {
	r := newTickRing(2)
	t1 := &Tick{Symbol: "A"}
	t2 := &Tick{Symbol: "A"}
	t3 := &Tick{Symbol: "A"}

	r.push(t1)
	r.push(t2)
	r.push(t3)

	assert.Equal(t, 2, r.Len())
	assert.Same(t, t3, r.latest("A"))
}

func TestTickRing_LatestReturnsNilForUnknownSymbol(t *testing.T) {
	r := newTickRing(10)
	assert.Nil(t, r.latest("NOPE"))
}
