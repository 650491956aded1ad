// Package parallel implements fork-join execution helpers (Map, FilterMap,
// Chunks, Join, Sort) for work that splits into independent chunks. The
// pipeline stages in this module run sequentially and do not call them.
//
// Only two execution tiers are realistic in a native Go binary: a bounded
// goroutine pool, or plain sequential execution when no Pool is supplied.
// The upstream design additionally distinguishes a WASM-parallel tier
// (wasm-bindgen-rayon) from a native-parallel tier (rayon); that distinction
// has no Go equivalent; both collapse to the same goroutine-pool tier here.
package parallel

import (
	"runtime"
	"sort"
	"sync"
)

// Pool bounds the number of goroutines used by the Map/Chunks helpers below.
// A nil *Pool means "run sequentially" and every helper in this package
// accepts a nil receiver for exactly that reason.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker count. A count <= 0 or above
// runtime.NumCPU() is clamped to runtime.NumCPU(), and the result is capped
// at 8 workers.
func NewPool(workers int) *Pool {
	if workers <= 0 || workers > runtime.NumCPU() {
		workers = runtime.NumCPU()
	}
	if workers > 8 {
		workers = 8
	}
	return &Pool{workers: workers}
}

// Workers reports the pool's concurrency, or 1 for a nil pool.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// ChunkSize derives a chunk size for n items across the pool's workers,
// clamped to [100, 10000] as a balance between scheduling overhead and
// load-imbalance tail latency.
func (p *Pool) ChunkSize(n int) int {
	workers := p.Workers()
	size := n / (4 * workers)
	if size < 100 {
		size = 100
	}
	if size > 10000 {
		size = 10000
	}
	return size
}

// Map applies fn to every item of items, preserving order, running on the
// pool's goroutines when p is non-nil, sequentially otherwise.
func Map[T, R any](p *Pool, items []T, fn func(T) R) []R {
	out := make([]R, len(items))
	if p == nil || p.workers <= 1 || len(items) <= 1 {
		for i, it := range items {
			out[i] = fn(it)
		}
		return out
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers)
	for i, it := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, it T) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = fn(it)
		}(i, it)
	}
	wg.Wait()
	return out
}

// FilterMap applies fn to every item, keeping only the results where ok is
// true, in index order (not completion order).
func FilterMap[T, R any](p *Pool, items []T, fn func(T) (R, bool)) []R {
	type slot struct {
		val R
		ok  bool
	}
	slots := Map(p, items, func(it T) slot {
		v, ok := fn(it)
		return slot{v, ok}
	})
	out := make([]R, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.val)
		}
	}
	return out
}

// Chunks splits items into contiguous chunks (sized via p.ChunkSize, or the
// whole slice for a nil pool) and applies fn to each chunk concurrently.
func Chunks[T, R any](p *Pool, items []T, fn func([]T) R) []R {
	if p == nil || len(items) == 0 {
		if len(items) == 0 {
			return nil
		}
		return []R{fn(items)}
	}
	size := p.ChunkSize(len(items))
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return Map(p, chunks, fn)
}

// Join runs a and b concurrently (when p is non-nil) and returns both
// results once both complete.
func Join[A, B any](p *Pool, a func() A, b func() B) (A, B) {
	if p == nil || p.workers <= 1 {
		return a(), b()
	}
	var ra A
	var rb B
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); ra = a() }()
	go func() { defer wg.Done(); rb = b() }()
	wg.Wait()
	return ra, rb
}

// Sort sorts items in place; s reports whether i should sort before j. It is
// a thin wrapper over sort.Slice kept here so call sites depend on this
// package's execution-strategy abstraction rather than on sort directly,
// matching the upstream par_sort entry point even though Go's sort.Slice is
// already well-optimized sequentially and parallel sorting a typical tile or
// region list (tens to low thousands of elements) buys nothing.
func Sort[T any](items []T, less func(i, j int) bool) {
	sort.Slice(items, less)
}
