package mempool

import (
	"sync"
)

// Sized pools for the []int and []bool scratch buffers of the labeling and
// morphology hot paths.

var (
	intPools  sync.Map // key: size class (int), value: *sync.Pool
	boolPools sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 1024 (minimum 1024) to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func get[T any](pools *sync.Map, n int) []T {
	cls := sizeClass(n)
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]T, cls)[:n]
	}
	buf, ok := p.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	// Pooled buffers are reused; callers rely on clean state.
	clear(buf)
	return buf
}

func put[T any](pools *sync.Map, buf []T) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		return // not from a pool
	}
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetInt retrieves a zeroed []int buffer of length n from the pool.
// The caller must return it via PutInt when done.
func GetInt(n int) []int { return get[int](&intPools, n) }

// PutInt returns a buffer to the pool. It is safe to pass a nil slice.
func PutInt(buf []int) { put(&intPools, buf) }

// GetBool retrieves a zeroed (all false) []bool buffer of length n from the pool.
// The caller must return it via PutBool when done.
func GetBool(n int) []bool { return get[bool](&boolPools, n) }

// PutBool returns a buffer to the pool. It is safe to pass a nil slice.
func PutBool(buf []bool) { put(&boolPools, buf) }
