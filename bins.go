package dlheap

import "math/bits"

// Bin layout: 128 logical bins. Bin 1 is the unsorted queue. Sizes below
// minLargeSize go to small bin size/8, each holding exactly one size, 8 bytes
// apart; the minimum chunk size maps to bin 4 and the small range ends at bin
// 31, so bins 32 and 33 stay empty. Bins
// 34..126 are approximately logarithmically spaced, four sub-bins per power
// of two; bin 127 absorbs everything above. Each bin is a circular
// doubly-linked list around an out-of-band sentinel node, addressed by a
// reserved negative pseudo-address so that sentinel links and in-band fd/bk
// words compose through one accessor layer.
const (
	nBins       = 128
	unsortedIdx = 1

	minLargeSize  = 256
	smallbinWidth = 8

	binmapShift = 5
	bitsPerMap  = 1 << binmapShift
	binmapSize  = nBins / bitsPerMap
)

type binNode struct {
	fd, bk int64
}

func binAddr(i int) int64    { return -int64(i) - 1 }
func binIndexOf(p int64) int { return int(-p - 1) }

func inSmallbinRange(sz int64) bool { return sz < minLargeSize }

func smallbinIndex(sz int64) int { return int(sz >> 3) }

// largebinIndex maps a chunk size >= minLargeSize to its bin: the power-of-two
// band of sz>>8 selects a group of four, the next two significant bits select
// the sub-bin. Monotonic non-decreasing in sz.
func largebinIndex(sz int64) int {
	e := bits.Len64(uint64(sz>>8)) - 1
	idx := 34 + 4*e + int((sz>>(uint(e)+6))&3)
	if idx > nBins-1 {
		idx = nBins - 1
	}
	return idx
}

func binIndex(sz int64) int {
	if inSmallbinRange(sz) {
		return smallbinIndex(sz)
	}
	return largebinIndex(sz)
}

// The binmap is a hint: a set bit means the bin has been observed non-empty
// and is cleared lazily when a scan finds it empty; a clear bit is
// authoritative at the moment of observation.
func idx2block(i int) int  { return i >> binmapShift }
func idx2bit(i int) uint32 { return 1 << (uint(i) & (bitsPerMap - 1)) }

func (x *Allocator) markBin(i int)   { x.binmap[idx2block(i)] |= idx2bit(i) }
func (x *Allocator) unmarkBin(i int) { x.binmap[idx2block(i)] &^= idx2bit(i) }

// Fast bins: singly-linked LIFO stacks of recently freed small chunks,
// indexed by (size/2W)-2. Chunks parked here keep the prevInuse bit of their
// successor set, which blocks coalescing and makes freeing O(1).
const (
	nFastBins = 10

	// MaxFastBound is the largest request size accepted by
	// [Allocator.Tune] for [ParamMaxFast].
	MaxFastBound = 160
)

func fastbinIndex(sz int64) int { return int(sz>>4) - 2 }

// Flag bits carried in the low bits of maxFast, which is otherwise a chunk
// size (a multiple of 2W).
const (
	anyChunksBit  = 1
	fastChunksBit = 2
	maxFastFlags  = anyChunksBit | fastChunksBit
)

func (x *Allocator) maxFastSize() int64   { return x.maxFast &^ maxFastFlags }
func (x *Allocator) anyChunks() bool      { return x.maxFast&anyChunksBit != 0 }
func (x *Allocator) haveFastChunks() bool { return x.maxFast&fastChunksBit != 0 }
func (x *Allocator) setAnyChunks()        { x.maxFast |= anyChunksBit }
func (x *Allocator) setFastChunks()       { x.maxFast |= anyChunksBit | fastChunksBit }
func (x *Allocator) clearFastChunks()     { x.maxFast &^= fastChunksBit }

// setMaxFast installs a new fast-bin request cap, preserving the flag bits.
// A zero request disables fast bins by setting the cap below the minimum
// chunk size.
func (x *Allocator) setMaxFast(req int64) {
	v := int64(smallbinWidth)
	if req != 0 {
		v = request2size(req)
	}
	x.maxFast = v | (x.maxFast & maxFastFlags)
}

// unsortedHeadInsert parks p at the head of the unsorted queue. The drain in
// allocation takes from the tail, so the queue is FIFO.
func (x *Allocator) unsortedHeadInsert(p int64) {
	ub := binAddr(unsortedIdx)
	f := x.fd(ub)
	x.setFd(p, f)
	x.setBk(p, ub)
	x.setBk(f, p)
	x.setFd(ub, p)
}
