// Package pool recycles C-backed objects (libav packets and frames) between
// decoder calls.
//
// An object dropped by the pool is freed by a finalizer, so C memory is
// reclaimed even if an object is never put back.
package pool

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
)

type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T)

	// Disabled makes every Get allocate and every Put drop the object,
	// which makes use-after-put bugs visible.
	Disabled bool

	allocated atomic.Uint64
	reused    atomic.Uint64
}

// NewPool returns a pool allocating with alloc; reset prepares an object
// for reuse and free releases it once the pool drops it.
func NewPool[T any](
	alloc func() *T,
	reset func(*T),
	free func(*T),
) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any {
		obj := alloc()
		if obj == nil {
			return (*T)(nil)
		}
		p.allocated.Inc()
		runtime.SetFinalizer(obj, free)
		return obj
	}
	return p
}

// Get returns nil if the allocation failed.
func (p *Pool[T]) Get() *T {
	if p.Disabled {
		return p.pool.New().(*T)
	}
	allocated := p.allocated.Load()
	obj := p.pool.Get().(*T)
	if obj != nil && p.allocated.Load() == allocated {
		p.reused.Inc()
	}
	return obj
}

// Put resets obj and keeps it for the next Get; nil is ignored.
func (p *Pool[T]) Put(obj *T) {
	if obj == nil || p.Disabled {
		return
	}
	p.reset(obj)
	p.pool.Put(obj)
}

// Stats returns how many objects were allocated and how many Get calls
// were served by a recycled one.
func (p *Pool[T]) Stats() (allocated, reused uint64) {
	return p.allocated.Load(), p.reused.Load()
}
