package dlheap

// Realloc resizes the allocation at p to n bytes, preserving the payload up
// to the smaller of the old and new sizes. A null p is equivalent to
// [Allocator.Malloc]; n == 0 with a non-null p behaves as a minimum-size
// allocation. On failure the old pointer remains valid.
func (x *Allocator) Realloc(p Ptr, n int64) (Ptr, error) {
	if p == 0 {
		return x.Malloc(n)
	}
	nb, err := checkedRequest2size(n)
	if err != nil {
		return 0, err
	}

	oldp := mem2chunk(int64(p))
	oldSize := x.chunksize(oldp)

	if x.mapped(oldp) {
		// mappings cannot grow in place: either the old one already fits
		// (with a word of slack), or allocate-copy-release
		if oldSize-sizeSz >= nb {
			return p, nil
		}
		np := x.mallocChunk(nb)
		if np == 0 {
			return 0, ErrOutOfMemory
		}
		copyLen := oldSize - 2*sizeSz
		copy(x.slice(chunk2mem(np), copyLen), x.slice(int64(p), copyLen))
		x.unmapChunk(oldp)
		return Ptr(chunk2mem(np)), nil
	}

	next := oldp + oldSize
	newp, newSize := oldp, oldSize

	if oldSize >= nb {
		// no grow; fall through to the remainder split
	} else if next == x.top && oldSize+x.chunksize(next) >= nb+minSize {
		// expand forward into the wilderness
		topSize := x.chunksize(next)
		x.top = oldp + nb
		x.setHead(x.top, (oldSize+topSize-nb)|prevInuse)
		x.setHeadSize(oldp, nb)
		return p, nil
	} else if nextSize := x.chunksize(next); next != x.top &&
		!x.inuseBitAt(next, nextSize) && oldSize+nextSize >= nb {
		// absorb the free successor
		x.unlink(next)
		newSize = oldSize + nextSize
	} else {
		np := x.mallocChunk(nb)
		if np == 0 {
			return 0, ErrOutOfMemory
		}
		if np == next {
			// the fresh chunk landed right after the old one: splice the
			// two and skip the copy
			newSize = oldSize + x.chunksize(np)
		} else {
			copyLen := oldSize - sizeSz
			copy(x.slice(chunk2mem(np), copyLen), x.slice(int64(p), copyLen))
			x.freeChunk(oldp)
			return Ptr(chunk2mem(np)), nil
		}
	}

	// split off any tail worth keeping; freeing it routes it to a fast bin
	// or the unsorted queue
	if remSize := newSize - nb; remSize >= minSize {
		rem := newp + nb
		x.setHeadSize(newp, nb)
		x.setHead(rem, remSize|prevInuse)
		x.setInuseBitAt(rem, remSize)
		x.freeChunk(rem)
	} else {
		x.setHeadSize(newp, newSize)
		x.setInuseBitAt(newp, newSize)
	}
	return Ptr(chunk2mem(newp)), nil
}
