package dlheap

// Memalign allocates n bytes with the payload aligned to the given
// alignment. A non-power-of-two alignment is rounded up; alignments at or
// below the chunk alignment degenerate to [Allocator.Malloc].
func (x *Allocator) Memalign(alignment, n int64) (Ptr, error) {
	if alignment <= malign {
		return x.Malloc(n)
	}
	if alignment < minSize {
		alignment = minSize
	}
	if alignment&(alignment-1) != 0 {
		alignment = nextPow2(alignment)
	}
	nb, err := checkedRequest2size(n)
	if err != nil || alignment > maxRequest-nb-minSize {
		return 0, ErrOutOfMemory
	}

	// overallocate so a fully aligned payload is guaranteed to exist
	// inside, with room to free the leading pad as a real chunk
	p := x.mallocChunk(nb + alignment + minSize)
	if p == 0 {
		return 0, ErrOutOfMemory
	}

	if mem := chunk2mem(p); mem&(alignment-1) != 0 {
		np := mem2chunk(roundUp(mem, alignment))
		if np-p < minSize {
			// too close to carve the pad off as a chunk; the
			// overallocation guarantees the next aligned spot fits
			np += alignment
		}
		lead := np - p
		newSize := x.chunksize(p) - lead
		if x.mapped(p) {
			// fold the pad into the mapping's recorded lead
			x.store(np, x.prevSize(p)+lead)
			x.setHead(np, newSize|isMapped)
			p = np
		} else {
			x.setHead(np, newSize|prevInuse)
			x.setInuseBitAt(np, newSize)
			x.setHeadSize(p, lead)
			x.freeChunk(p)
			p = np
		}
	}

	if !x.mapped(p) {
		if size := x.chunksize(p); size > nb+minSize {
			rem := p + nb
			x.setHead(rem, (size-nb)|prevInuse)
			x.setHeadSize(p, nb)
			x.freeChunk(rem)
		}
	}
	return Ptr(chunk2mem(p)), nil
}
