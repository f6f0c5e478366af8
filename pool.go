// pool.go - Form buffer allocator (mm_pool_temp analogue)

// Grounded on memory_bus.go's SystemBus: a single mutex-guarded resource
// (there, main memory; here, a byte budget) with a small accounting
// surface. spec.md §5 names mm_pool_temp as the pool every form buffer is
// allocated from, with cost hints distinguishing ordinary allocations from
// ones that may dip into reserve memory.
package halftone

import "sync"

// AllocCost is the cost hint spec.md §5 names for buffer-pool allocations.
type AllocCost int

const (
	// CostNormal is an ordinary allocation that must not touch reserves.
	CostNormal AllocCost = iota
	// CostBelowReserves may use memory normally held back as a reserve.
	// Nothing in this package requests it: preload and get_nearest both
	// allocate with CostNormal.
	CostBelowReserves
)

// BufferPool is the engine's single byte-budgeted allocator for form
// buffers. It tracks used bytes against a budget and exposes an
// AvailableFraction used by preload's warning message (spec.md §7, "the
// percentage of required memory that was available").
type BufferPool struct {
	mu        sync.Mutex
	budget    int64
	used      int64
	reserve   int64 // fraction of budget reserved, released only for CostBelowReserves
}

// NewBufferPool creates a pool with the given byte budget. 10% of the
// budget is held back as a reserve, released only to CostBelowReserves
// requests, mirroring low-memory handlers that keep a margin for recovery
// operations (spec.md §5, "Suspension points").
func NewBufferPool(budget int64) *BufferPool {
	return &BufferPool{budget: budget, reserve: budget / 10}
}

// Alloc attempts to reserve n bytes from the pool. It returns false
// (never panics) on failure so callers can implement spec.md's documented
// fallback behaviour (partial preload, poaching, InvalidForm markers).
func (p *BufferPool) Alloc(n int64, cost AllocCost) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	limit := p.budget - p.reserve
	if cost == CostBelowReserves {
		limit = p.budget
	}
	if p.used+n > limit {
		return false
	}
	p.used += n
	return true
}

// Free releases n bytes back to the pool.
func (p *BufferPool) Free(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.used -= n
	if p.used < 0 {
		p.used = 0
	}
}

// AvailableFraction returns how much of a requested number of bytes could
// currently be satisfied, in [0, 1], used to compute the preload warning
// percentage (spec.md §4.3 step 4, §8 scenario 2).
func (p *BufferPool) AvailableFraction(requested int64) float64 {
	if requested <= 0 {
		return 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	avail := p.budget - p.used
	if avail < 0 {
		avail = 0
	}
	frac := float64(avail) / float64(requested)
	if frac > 1 {
		frac = 1
	}
	return frac
}

// Used reports bytes currently allocated, for tests and introspection.
func (p *BufferPool) Used() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}
