package dlheap

import "encoding/binary"

// A chunk is addressed by the offset of its first metadata word. The layout,
// at offsets from the chunk base, with W == sizeSz:
//
//	+0   prev_size  size of the previous chunk, valid only when it is free
//	+W   size       total size in bytes, low bits carry prevInuse/isMapped
//	+2W  payload    (fd when free)
//	+3W  ...        (bk when free)
//
// The last word of a free chunk (the next chunk's prev_size) repeats its size
// as the "foot". An in-use chunk owns its successor's prev_size word as
// payload, so the per-allocation overhead is a single word.
const (
	sizeSz     = 8
	malign     = 2 * sizeSz
	malignMask = malign - 1
	minSize    = 4 * sizeSz

	prevInuse = 1
	isMapped  = 2
	sizeBits  = prevInuse | isMapped
)

// maxRequest bounds user byte counts so that padding can never wrap.
const maxRequest = int64(1)<<62 - 1

// request2size pads a user byte count to a legal chunk size.
func request2size(req int64) int64 {
	if req+sizeSz+malignMask < minSize {
		return minSize
	}
	return roundUp(req+sizeSz, int64(malign))
}

func checkedRequest2size(req int64) (int64, error) {
	if req < 0 || req > maxRequest {
		return 0, ErrOutOfMemory
	}
	return request2size(req), nil
}

func chunk2mem(p int64) int64 { return p + 2*sizeSz }
func mem2chunk(m int64) int64 { return m - 2*sizeSz }

// region is a span of the simulated address space backed by a byte slice:
// either the contiguous heap, or one anonymous mapping.
type region struct {
	base int64
	data []byte
}

// slice resolves [p, p+n) to backing bytes. The contiguous heap is the
// common case; mappings are few (bounded by the mapping count tunable).
func (x *Allocator) slice(p, n int64) []byte {
	if p >= x.seg.base && p+n <= x.seg.base+int64(len(x.seg.data)) {
		return x.seg.data[p-x.seg.base : p-x.seg.base+n : p-x.seg.base+n]
	}
	for i := range x.regions {
		r := &x.regions[i]
		if p >= r.base && p+n <= r.base+int64(len(r.data)) {
			return r.data[p-r.base : p-r.base+n : p-r.base+n]
		}
	}
	panic(`dlheap: address outside any region`)
}

func (x *Allocator) load(p int64) int64 {
	return int64(binary.LittleEndian.Uint64(x.slice(p, sizeSz)))
}

func (x *Allocator) store(p, v int64) {
	binary.LittleEndian.PutUint64(x.slice(p, sizeSz), uint64(v))
}

// sizeField reads the raw size word, including the status bits.
func (x *Allocator) sizeField(p int64) int64 { return x.load(p + sizeSz) }

// chunksize reads the real size of p. Bin sentinels (negative
// pseudo-addresses) read as zero sized; the initial top is one.
func (x *Allocator) chunksize(p int64) int64 {
	if p < 0 {
		return 0
	}
	return x.sizeField(p) &^ sizeBits
}

func (x *Allocator) setHead(p, v int64) { x.store(p+sizeSz, v) }

// setHeadSize replaces the size of p, keeping its prevInuse bit.
func (x *Allocator) setHeadSize(p, sz int64) {
	x.store(p+sizeSz, sz|(x.sizeField(p)&prevInuse))
}

func (x *Allocator) prevSize(p int64) int64 { return x.load(p) }

// setFoot writes the trailing size copy of a free chunk.
func (x *Allocator) setFoot(p, sz int64) { x.store(p+sz, sz) }

func (x *Allocator) prevInuseBit(p int64) bool { return x.sizeField(p)&prevInuse != 0 }

func (x *Allocator) mapped(p int64) bool { return x.sizeField(p)&isMapped != 0 }

// inuseBitAt reports whether the chunk at p+sz is in use, read from the
// prevInuse bit of its successor.
func (x *Allocator) inuseBitAt(p, sz int64) bool {
	return x.load(p+sz+sizeSz)&prevInuse != 0
}

func (x *Allocator) setInuseBitAt(p, sz int64) {
	x.store(p+sz+sizeSz, x.load(p+sz+sizeSz)|prevInuse)
}

func (x *Allocator) clearPrevInuse(p int64) {
	x.store(p+sizeSz, x.sizeField(p)&^prevInuse)
}

// fd/bk read and write the list links of a free chunk, dispatching to the
// out-of-band sentinel node when p is a bin pseudo-address.
func (x *Allocator) fd(p int64) int64 {
	if p < 0 {
		return x.bins[binIndexOf(p)].fd
	}
	return x.load(p + 2*sizeSz)
}

func (x *Allocator) bk(p int64) int64 {
	if p < 0 {
		return x.bins[binIndexOf(p)].bk
	}
	return x.load(p + 3*sizeSz)
}

func (x *Allocator) setFd(p, v int64) {
	if p < 0 {
		x.bins[binIndexOf(p)].fd = v
		return
	}
	x.store(p+2*sizeSz, v)
}

func (x *Allocator) setBk(p, v int64) {
	if p < 0 {
		x.bins[binIndexOf(p)].bk = v
		return
	}
	x.store(p+3*sizeSz, v)
}

// unlink removes p from whichever doubly-linked list holds it.
func (x *Allocator) unlink(p int64) {
	f, b := x.fd(p), x.bk(p)
	x.setBk(f, b)
	x.setFd(b, f)
}
