package dlheap

// Free releases the payload at p. Free of the null Ptr is a no-op. Freeing
// an address not obtained from this allocator is undefined.
func (x *Allocator) Free(p Ptr) {
	if p == 0 {
		return
	}
	x.freeChunk(mem2chunk(int64(p)))
}

func (x *Allocator) freeChunk(p int64) {
	size := x.chunksize(p)

	if x.mapped(p) {
		x.unmapChunk(p)
		return
	}

	if size <= x.maxFastSize() {
		// park without touching neighbor metadata; the successor keeps its
		// prevInuse bit so the chunk stays invisible to coalescing
		x.setFastChunks()
		i := fastbinIndex(size)
		x.store(p+2*sizeSz, x.fastbins[i])
		x.fastbins[i] = p
		return
	}

	x.setAnyChunks()
	p, size, intoTop := x.mergeNeighbors(p, size)
	if intoTop {
		x.top = p
		x.setHead(p, size|prevInuse)
	} else {
		x.setHead(p, size|prevInuse)
		x.setFoot(p, size)
		x.unsortedHeadInsert(p)
	}

	if size >= x.trimThreshold>>1 {
		if x.haveFastChunks() {
			x.consolidate()
		}
		if !x.noTrim && x.chunksize(x.top) >= x.trimThreshold {
			x.sysTrim(x.topPad)
		}
	}
}

// mergeNeighbors coalesces p with its free physical neighbors, unlinking
// them from their bins. It reports the merged chunk, its size, and whether
// the successor was top (in which case the caller folds p into top). When
// the successor stays in use, its prevInuse bit is cleared; the successor's
// own in-use state is read from the chunk beyond it before anything is
// modified.
func (x *Allocator) mergeNeighbors(p, size int64) (int64, int64, bool) {
	if !x.prevInuseBit(p) {
		prevSz := x.prevSize(p)
		p -= prevSz
		size += prevSz
		x.unlink(p)
	}

	next := p + size
	if next == x.top {
		return p, size + x.chunksize(next), true
	}

	nextSize := x.chunksize(next)
	if x.inuseBitAt(next, nextSize) {
		x.clearPrevInuse(next)
	} else {
		x.unlink(next)
		size += nextSize
	}
	return p, size, false
}

// consolidate drains every fast bin, merging each resident with its free
// neighbors and parking the result in the unsorted queue (or folding it into
// top), then clears the fastChunks flag.
func (x *Allocator) consolidate() {
	x.clearFastChunks()
	for i := range x.fastbins {
		p := x.fastbins[i]
		x.fastbins[i] = 0
		for p != 0 {
			nextp := x.load(p + 2*sizeSz)
			q, size, intoTop := x.mergeNeighbors(p, x.chunksize(p))
			if intoTop {
				x.top = q
				x.setHead(q, size|prevInuse)
			} else {
				x.setHead(q, size|prevInuse)
				x.setFoot(q, size)
				x.unsortedHeadInsert(q)
			}
			p = nextp
		}
	}
}
