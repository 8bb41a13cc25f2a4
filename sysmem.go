package dlheap

// fallbackMapSize is the minimum unit taken from the mapping primitive when
// the contiguous extension primitive fails outright.
const fallbackMapSize = 1 << 20

// sysAlloc acquires system memory for a normalized size no bin path could
// satisfy. A foreign extension can leave a freshly installed top short of
// nb (the request was sized against a top that ended up orphaned); one
// further attempt continues from the new frontier.
func (x *Allocator) sysAlloc(nb int64) int64 {
	if p := x.sysAllocOnce(nb); p != 0 {
		return p
	}
	return x.sysAllocOnce(nb)
}

// sysAllocOnce makes a single acquisition attempt: a direct mapping for huge
// requests, otherwise a contiguous extension (with a mapping fallback when
// the extension primitive fails).
func (x *Allocator) sysAllocOnce(nb int64) int64 {
	if nb >= x.mapThreshold && x.nMaps < x.mapMax {
		if p := x.mapChunk(nb); p != 0 {
			return p
		}
		// mapping refused; fall through to extension
	}

	oldTop := x.top
	oldSize := x.chunksize(oldTop)
	oldEnd := oldTop + oldSize

	size := nb + x.topPad + minSize
	if x.contiguous {
		size -= oldSize
	}
	size = roundUp(size, x.pagesize)

	brk, err := x.core.Sbrk(size)
	if err != nil {
		if x.contiguous {
			size += oldSize
		}
		return x.sysAllocFallback(nb, size, oldTop, oldSize)
	}
	x.refreshContig()
	x.sbrkedMem += size

	if brk == oldEnd && oldSize != 0 {
		// the extension landed exactly at the frontier: top simply grows
		x.setHead(oldTop, (oldSize+size)|prevInuse)
	} else {
		x.installTop(brk, size, oldTop, oldSize)
	}
	x.updateMaxTotals()
	x.log.Debug().
		Int64(`size`, size).
		Int64(`brk`, brk).
		Int64(`top`, x.chunksize(x.top)).
		Log(`dlheap: heap extended`)
	return x.topAlloc(nb)
}

// installTop places top in newly granted space that did not start at the old
// frontier: the first extension, a new region, or space beyond a hole left
// by a foreign extension. The old top, if any, is fenced off and its body
// released through the ordinary free path.
func (x *Allocator) installTop(brk, size, oldTop, oldSize int64) {
	alignedBrk := brk
	if x.contiguous {
		// pad forward so the first chunk is aligned, then extend once more
		// so the frontier lands on a page boundary
		var correction int64
		if front := alignedBrk & malignMask; front != 0 {
			correction = malign - front
			alignedBrk += correction
		}
		end := brk + size + correction
		correction += roundUp(end, x.pagesize) - end
		if correction != 0 {
			if _, err := x.core.Sbrk(correction); err != nil {
				x.contiguous = false
				x.log.Debug().Log(`dlheap: extension correction failed, heap now non-contiguous`)
			} else {
				x.sbrkedMem += correction
			}
			x.refreshContig()
		}
	} else {
		alignedBrk = roundUp(brk, int64(malign))
	}

	// learn the frontier afresh; a foreign extension may have moved it
	sndBrk, err := x.core.Sbrk(0)
	if err != nil {
		sndBrk = brk + size
	}
	x.refreshContig()

	x.top = alignedBrk
	x.setHead(x.top, (sndBrk-alignedBrk)|prevInuse)
	x.regionStart = alignedBrk
	if oldSize != 0 {
		x.fencepost(oldTop, oldSize)
	}
}

// sysAllocFallback serves an extension failure from the mapping primitive as
// a one-shot non-contiguous region. The allocator is permanently marked
// non-contiguous afterwards.
func (x *Allocator) sysAllocFallback(nb, size, oldTop, oldSize int64) int64 {
	fb := size
	if fb < fallbackMapSize {
		fb = fallbackMapSize
	}
	fb = roundUp(fb, x.pagesize)
	base, data, err := x.core.Map(fb)
	if err != nil {
		return 0
	}
	x.regions = append(x.regions, region{base, data})
	x.sbrkedMem += fb
	x.contiguous = false
	x.top = base
	x.setHead(base, fb|prevInuse)
	x.regionStart = base
	if oldSize != 0 {
		x.fencepost(oldTop, oldSize)
	}
	x.updateMaxTotals()
	x.log.Debug().
		Int64(`size`, fb).
		Int64(`base`, base).
		Log(`dlheap: extension failed, mapped fallback region`)
	return x.topAlloc(nb)
}

// fencepost seals the boundary of an orphaned old top with two half-minimum
// in-use chunks, so that coalescing can never bridge into memory the
// allocator does not own: the first fencepost's in-use state is read from
// the second one's prevInuse bit, without leaving owned memory. Any body
// ahead of the fenceposts is released via free, with trimming disabled.
func (x *Allocator) fencepost(oldTop, oldSize int64) {
	const fence = 2 * sizeSz
	trimmed := (oldSize - 2*fence) &^ int64(malignMask)
	x.setHead(oldTop, trimmed|prevInuse)
	x.setHead(oldTop+trimmed, fence|prevInuse)
	x.setHead(oldTop+trimmed+fence, fence|prevInuse)
	if trimmed >= minSize {
		x.noTrim = true
		x.freeChunk(oldTop)
		x.noTrim = false
	}
}

// mapChunk serves nb as an independent anonymous mapping. The chunk records
// any leading alignment pad in its prev_size word so the original mapping
// base can be recovered on release.
func (x *Allocator) mapChunk(nb int64) int64 {
	size := roundUp(nb+sizeSz+malignMask, x.pagesize)
	base, data, err := x.core.Map(size)
	if err != nil {
		return 0
	}
	x.regions = append(x.regions, region{base, data})
	p := base
	var pad int64
	if front := base & malignMask; front != 0 {
		pad = malign - front
		p = base + pad
	}
	x.store(p, pad)
	x.setHead(p, (size-pad)|isMapped)
	x.nMaps++
	if x.nMaps > x.maxNMaps {
		x.maxNMaps = x.nMaps
	}
	x.mappedMem += size
	x.updateMaxTotals()
	x.log.Debug().
		Int64(`size`, size).
		Int64(`base`, base).
		Log(`dlheap: direct mapping`)
	return p
}

func (x *Allocator) unmapChunk(p int64) {
	size := x.chunksize(p)
	pad := x.prevSize(p)
	base := p - pad
	x.nMaps--
	x.mappedMem -= size + pad
	for i := range x.regions {
		if x.regions[i].base == base {
			x.regions = append(x.regions[:i], x.regions[i+1:]...)
			break
		}
	}
	if err := x.core.Unmap(base); err != nil {
		x.log.Err().Err(err).Int64(`base`, base).Log(`dlheap: unmap failed`)
	}
}

// Trim consolidates the fast bins and attempts to release memory at the
// heap frontier, keeping at least pad bytes of slack in top. It reports
// whether any memory was actually returned to the core.
func (x *Allocator) Trim(pad int64) bool {
	if pad < 0 {
		return false
	}
	x.consolidate()
	return x.sysTrim(pad)
}

func (x *Allocator) sysTrim(pad int64) bool {
	topSize := x.chunksize(x.top)
	extra := ((topSize-pad-minSize+(x.pagesize-1))/x.pagesize - 1) * x.pagesize
	if extra <= 0 {
		return false
	}
	cur, err := x.core.Sbrk(0)
	if err != nil || cur != x.top+topSize {
		// the frontier is not ours to shrink
		return false
	}
	if _, err := x.core.Sbrk(-extra); err != nil {
		return false
	}
	newBrk, err := x.core.Sbrk(0)
	if err != nil {
		return false
	}
	x.refreshContig()
	released := cur - newBrk
	if released <= 0 {
		return false
	}
	x.sbrkedMem -= released
	x.setHead(x.top, (topSize-released)|prevInuse)
	x.log.Debug().
		Int64(`released`, released).
		Int64(`top`, topSize-released).
		Log(`dlheap: trimmed`)
	return true
}
