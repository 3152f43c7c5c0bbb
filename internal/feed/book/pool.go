package book

import (
	"sync"

	"github.com/BullionBear/sequex/internal/feed/core"
)

// entryPool rents []core.PriceLevelEntry backing arrays sized to common
// depth-update widths so BufferedDepthUpdate never allocates on the
// steady-state path. Double-return is the caller's bug to avoid; Return
// does not detect it.
type entryPool struct {
	pools map[int]*sync.Pool
	mu    sync.Mutex
}

// sizeClasses are the bucket capacities the pool recycles. A rent for n
// entries is rounded up to the smallest class that fits.
var sizeClasses = []int{8, 16, 32, 64, 128, 256}

func newEntryPool() *entryPool {
	p := &entryPool{pools: make(map[int]*sync.Pool, len(sizeClasses))}
	for _, size := range sizeClasses {
		size := size
		p.pools[size] = &sync.Pool{
			New: func() interface{} {
				return make([]core.PriceLevelEntry, 0, size)
			},
		}
	}
	return p
}

func classFor(n int) int {
	for _, c := range sizeClasses {
		if n <= c {
			return c
		}
	}
	return n // oversized: not pooled, caller still may call Return harmlessly
}

// Rent returns a zero-length slice with capacity >= n.
func (p *entryPool) Rent(n int) []core.PriceLevelEntry {
	class := classFor(n)
	pool, ok := p.pools[class]
	if !ok {
		return make([]core.PriceLevelEntry, 0, n)
	}
	buf := pool.Get().([]core.PriceLevelEntry)
	return buf[:0]
}

// Return gives a rented slice back to its size class. Safe to call with a
// nil or oversized slice (no-op in the latter case).
func (p *entryPool) Return(buf []core.PriceLevelEntry) {
	if buf == nil {
		return
	}
	class := classFor(cap(buf))
	pool, ok := p.pools[class]
	if !ok {
		return
	}
	pool.Put(buf[:0]) //nolint:staticcheck // intentional zero-length reuse
}
