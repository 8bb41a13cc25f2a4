package dlheap

// Calloc allocates count*elemSize bytes of zeroed memory. Overflow of the
// product is reported as [ErrOutOfMemory].
func (x *Allocator) Calloc(count, elemSize int64) (Ptr, error) {
	if count < 0 || elemSize < 0 ||
		(elemSize != 0 && count > maxRequest/elemSize) {
		return 0, ErrOutOfMemory
	}
	mem, err := x.Malloc(count * elemSize)
	if err != nil {
		return 0, err
	}
	p := mem2chunk(int64(mem))
	if !x.mapped(p) {
		// fresh mappings are zero filled by the core's contract
		clear(x.slice(int64(mem), x.chunksize(p)-sizeSz))
	}
	return mem, nil
}

// IndependentCalloc allocates n zeroed payloads of elemSize bytes each, all
// carved from a single host chunk on the heap. Freeing one payload does not
// free the others; the host remains allocated until every payload has been
// freed. If out has capacity for n pointers it is reused.
func (x *Allocator) IndependentCalloc(n int, elemSize int64, out []Ptr) ([]Ptr, error) {
	if n < 0 || elemSize < 0 || elemSize > maxRequest {
		return nil, ErrOutOfMemory
	}
	return x.bulkAlloc(n, request2size(elemSize), nil, true, out)
}

// IndependentComalloc allocates one payload per entry of sizes, all carved
// from a single host chunk on the heap, with the same lifetime contract as
// [Allocator.IndependentCalloc]. The payloads are not zeroed.
func (x *Allocator) IndependentComalloc(sizes []int64, out []Ptr) ([]Ptr, error) {
	for _, s := range sizes {
		if s < 0 || s > maxRequest {
			return nil, ErrOutOfMemory
		}
	}
	return x.bulkAlloc(len(sizes), 0, sizes, false, out)
}

func (x *Allocator) bulkAlloc(n int, elemSize int64, sizes []int64, zero bool, out []Ptr) ([]Ptr, error) {
	if n == 0 {
		return out[:0], nil
	}

	var contents int64
	for i := 0; i < n; i++ {
		size := elemSize
		if sizes != nil {
			size = request2size(sizes[i])
		}
		if contents > maxRequest-size {
			return nil, ErrOutOfMemory
		}
		contents += size
	}

	// the host must live on the heap so the carved boundary tags chain;
	// disable direct mapping for its allocation
	savedMapMax := x.mapMax
	x.mapMax = 0
	p := x.mallocChunk(contents)
	x.mapMax = savedMapMax
	if p == 0 {
		return nil, ErrOutOfMemory
	}

	remainder := x.chunksize(p)
	if zero {
		clear(x.slice(chunk2mem(p), remainder-sizeSz))
	}

	ptrs := out
	if cap(ptrs) < n {
		ptrs = make([]Ptr, n)
	}
	ptrs = ptrs[:n]

	for i := 0; ; i++ {
		ptrs[i] = Ptr(chunk2mem(p))
		if i == n-1 {
			// the final sub-chunk absorbs any overallocation slack
			x.setHead(p, remainder|prevInuse)
			break
		}
		size := elemSize
		if sizes != nil {
			size = request2size(sizes[i])
		}
		x.setHead(p, size|prevInuse)
		p += size
		remainder -= size
	}
	return ptrs, nil
}
