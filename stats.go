package dlheap

// Stats is a point-in-time snapshot of the allocator's counters.
type Stats struct {
	// FastBlocks and FastBytes count chunks resident in the fast bins.
	FastBlocks int
	FastBytes  int64
	// OrdBlocks and OrdBytes count all other free chunks, including top.
	OrdBlocks int
	OrdBytes  int64
	// InUseBytes is the portion of the contiguous region neither free nor
	// parked in a fast bin.
	InUseBytes int64
	// SbrkBytes is the total obtained through contiguous extension.
	SbrkBytes int64
	// MapCount and MapBytes cover live direct mappings.
	MapCount int
	MapBytes int64
	// TopBytes is the size of top: what a trim could consider returning.
	TopBytes int64
	// MaxTotalBytes is the lifetime maximum of total bytes held.
	MaxTotalBytes int64
}

// Stats walks the fast bins and every normal bin to produce a snapshot.
func (x *Allocator) Stats() Stats {
	var s Stats
	for i := range x.fastbins {
		for p := x.fastbins[i]; p != 0; p = x.load(p + 2*sizeSz) {
			s.FastBlocks++
			s.FastBytes += x.chunksize(p)
		}
	}
	s.OrdBlocks = 1 // top
	s.OrdBytes = x.chunksize(x.top)
	for i := 1; i < nBins; i++ {
		b := binAddr(i)
		for p := x.bk(b); p != b; p = x.bk(p) {
			s.OrdBlocks++
			s.OrdBytes += x.chunksize(p)
		}
	}
	s.InUseBytes = x.sbrkedMem - s.OrdBytes - s.FastBytes
	s.SbrkBytes = x.sbrkedMem
	s.MapCount = x.nMaps
	s.MapBytes = x.mappedMem
	s.TopBytes = x.chunksize(x.top)
	s.MaxTotalBytes = x.maxTotalMem
	return s
}

// UsableSize reports the actual payload capacity of the allocation at p,
// which is at least the size originally requested. It is 0 for the null Ptr
// and for a freed chunk outside the fast bins; a chunk parked in a fast bin
// still reads as in use.
func (x *Allocator) UsableSize(p Ptr) int64 {
	if p == 0 {
		return 0
	}
	c := mem2chunk(int64(p))
	size := x.chunksize(c)
	if x.mapped(c) {
		return size - 2*sizeSz
	}
	if x.inuseBitAt(c, size) {
		return size - sizeSz
	}
	return 0
}

// Bytes returns the payload of the allocation at p as a byte slice of its
// usable size. The slice aliases the heap and is invalidated by any
// subsequent call that changes the heap shape.
func (x *Allocator) Bytes(p Ptr) []byte {
	if p == 0 {
		return nil
	}
	return x.slice(int64(p), x.UsableSize(p))
}
