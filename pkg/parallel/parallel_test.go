package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_NilPoolPreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	out := Map[int, int](nil, items, func(x int) int { return x * x })
	assert.Equal(t, []int{1, 4, 9, 16, 25}, out)
}

func TestMap_PooledPreservesOrder(t *testing.T) {
	p := NewPool(4)
	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}
	out := Map(p, items, func(x int) int { return x + 1 })
	for i, v := range out {
		assert.Equal(t, i+1, v)
	}
}

func TestFilterMap_KeepsOrderAndDropsFalse(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	out := FilterMap(NewPool(2), items, func(x int) (int, bool) {
		return x, x%2 == 0
	})
	assert.Equal(t, []int{2, 4, 6}, out)
}

func TestChunks_CoversAllItems(t *testing.T) {
	items := make([]int, 500)
	for i := range items {
		items[i] = i
	}
	sums := Chunks(NewPool(4), items, func(chunk []int) int {
		total := 0
		for _, v := range chunk {
			total += v
		}
		return total
	})
	total := 0
	for _, s := range sums {
		total += s
	}
	want := 0
	for _, v := range items {
		want += v
	}
	assert.Equal(t, want, total)
}

func TestJoin_RunsBoth(t *testing.T) {
	a, b := Join(NewPool(2), func() int { return 1 }, func() string { return "x" })
	assert.Equal(t, 1, a)
	assert.Equal(t, "x", b)
}

func TestPool_ChunkSizeClamped(t *testing.T) {
	p := NewPool(1)
	assert.Equal(t, 100, p.ChunkSize(10))
	assert.LessOrEqual(t, p.ChunkSize(1_000_000), 10000)
}

func TestPool_NilWorkersIsOne(t *testing.T) {
	var p *Pool
	assert.Equal(t, 1, p.Workers())
}
