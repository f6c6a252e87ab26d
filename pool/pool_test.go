package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type item struct {
	value int
}

func newItemPool() *Pool[item] {
	return NewPool(
		func() *item { return &item{} },
		func(i *item) { i.value = 0 },
		func(i *item) {},
	)
}

func TestPoolResetsOnPut(t *testing.T) {
	p := newItemPool()

	it := p.Get()
	require.NotNil(t, it)
	it.value = 42
	p.Put(it)
	require.Zero(t, it.value)

	p.Put(nil)

	allocated, _ := p.Stats()
	require.Equal(t, uint64(1), allocated)
}

func TestPoolDisabled(t *testing.T) {
	p := newItemPool()
	p.Disabled = true

	it := p.Get()
	it.value = 42
	p.Put(it)
	require.Equal(t, 42, it.value)

	require.NotNil(t, p.Get())
	allocated, reused := p.Stats()
	require.Equal(t, uint64(2), allocated)
	require.Zero(t, reused)
}

func TestPoolAllocFailure(t *testing.T) {
	p := NewPool(
		func() *item { return nil },
		func(i *item) {},
		func(i *item) {},
	)
	require.Nil(t, p.Get())
	allocated, _ := p.Stats()
	require.Zero(t, allocated)
}
