package dlheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type heapChunk struct {
	addr  int64
	size  int64
	inuse bool
	top   bool
}

func newTestHeap(t *testing.T, opts ...Option) *Allocator {
	t.Helper()
	return New(&MemCore{}, opts...)
}

// walkTopRegion walks the region currently holding top from its first chunk,
// in address order, top last. It fails the test if the walk does not reach
// top exactly.
func walkTopRegion(t *testing.T, x *Allocator) []heapChunk {
	t.Helper()
	if x.regionStart == 0 {
		require.Negative(t, x.top, `no region installed, top must still be the sentinel`)
		return nil
	}
	var out []heapChunk
	p := x.regionStart
	for p != x.top {
		require.Less(t, p, x.top, `walk overran top`)
		size := x.chunksize(p)
		require.GreaterOrEqual(t, size, int64(2*sizeSz))
		require.Zero(t, p&malignMask)
		out = append(out, heapChunk{addr: p, size: size, inuse: x.inuseBitAt(p, size)})
		p += size
	}
	out = append(out, heapChunk{addr: p, size: x.chunksize(p), inuse: true, top: true})
	return out
}

// checkHeapInvariants asserts the universal invariants on the top region:
// boundary tags of free chunks, prevInuse chaining, no two adjacent free
// chunks (fast-bin residents read as in use, which is exactly their exempt
// status), and top outside every bin with its prevInuse bit set.
func checkHeapInvariants(t *testing.T, x *Allocator) []heapChunk {
	t.Helper()
	chunks := walkTopRegion(t, x)
	prevInUse := true
	var prevFree bool
	for _, c := range chunks {
		require.Equal(t, prevInUse, x.prevInuseBit(c.addr),
			`prevInuse bit disagrees with predecessor at %#x`, c.addr)
		if !c.top && !c.inuse {
			require.False(t, prevFree, `adjacent free chunks at %#x`, c.addr)
			require.Equal(t, c.size, x.load(c.addr+c.size),
				`foot disagrees with head at %#x`, c.addr)
		}
		prevFree = !c.top && !c.inuse
		prevInUse = c.inuse || c.top
	}
	if len(chunks) != 0 {
		require.True(t, chunks[len(chunks)-1].top)
	}
	for i := 1; i < nBins; i++ {
		b := binAddr(i)
		for p := x.bk(b); p != b; p = x.bk(p) {
			require.NotEqual(t, x.top, p, `top linked into bin %d`, i)
		}
	}
	require.True(t, x.top < 0 || x.prevInuseBit(x.top))
	return chunks
}

// checkCoalesced drains the fast bins and asserts the coalescing invariant.
func checkCoalesced(t *testing.T, x *Allocator) {
	t.Helper()
	x.consolidate()
	checkHeapInvariants(t, x)
}
