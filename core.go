package dlheap

import "errors"

type (
	// Core is the system-memory primitive the allocator draws from: a
	// contiguous region grown and shrunk at a frontier ("the break"), plus
	// independent anonymous mappings for direct-mapped chunks.
	//
	// Implementations outside this package are expected: tests instantiate
	// fresh allocators over caller-supplied cores. Foreign Sbrk calls
	// interleaved with the allocator's are tolerated; the allocator detects
	// the resulting hole and fences it off.
	Core interface {
		// PageSize reports the allocation granularity. Must be a power of
		// 2, constant for the lifetime of the core.
		PageSize() int64

		// Sbrk adjusts the frontier of the contiguous region by delta bytes
		// and returns the frontier's address prior to adjustment. Sbrk(0)
		// queries. A negative delta releases memory at the frontier.
		Sbrk(delta int64) (int64, error)

		// Contiguous returns the base address and backing bytes of the
		// whole contiguous region, covering every address granted through
		// Sbrk. The slice is invalidated by the next Sbrk call.
		Contiguous() (base int64, data []byte)

		// Map creates an independent anonymous region of n bytes, zero
		// filled, at an address disjoint from the contiguous region and all
		// live mappings.
		Map(n int64) (base int64, data []byte, err error)

		// Unmap releases a region previously returned by Map, identified
		// by its base address.
		Unmap(base int64) error
	}

	// MemCore is the default, purely in-process [Core], backed by Go
	// slices. It doubles as the test double: calling Sbrk directly models a
	// foreign user of the extension primitive, and Limit/MapLimit force the
	// failure paths.
	MemCore struct {
		// Page is the page size; DefaultPageSize when zero.
		Page int64
		// Limit caps the contiguous region, in bytes. Zero applies
		// defaultCoreLimit, standing in for a machine's finite memory.
		Limit int64
		// MapLimit caps the number of live mappings. Zero means no cap; a
		// negative value refuses all mappings.
		MapLimit int

		mem     []byte
		brk     int64
		maps    map[int64][]byte
		nextMap int64
	}
)

// DefaultPageSize is the page size of a zero-configured [MemCore].
const DefaultPageSize = 4096

// defaultCoreLimit bounds the contiguous region of a MemCore with no Limit,
// and the size of any single mapping, so that impossible requests fail the
// way a real system primitive would.
const defaultCoreLimit = 1 << 34

// The simulated address space: the contiguous region starts at a small
// nonzero base (so the null Ptr is never a valid address), mappings are
// placed far above it with guard gaps between.
const (
	memCoreBase    = 1 << 16
	memCoreMapBase = 1 << 40
)

var (
	errCoreLimit = errors.New(`dlheap: core contiguous limit reached`)
	errCoreMaps  = errors.New(`dlheap: core mapping limit reached`)
)

func (x *MemCore) init() {
	if x.brk == 0 {
		x.brk = memCoreBase
		x.nextMap = memCoreMapBase
	}
}

func (x *MemCore) limit() int64 {
	if x.Limit == 0 {
		return defaultCoreLimit
	}
	return x.Limit
}

func (x *MemCore) page() int64 {
	if x.Page == 0 {
		return DefaultPageSize
	}
	return x.Page
}

func (x *MemCore) PageSize() int64 { return x.page() }

func (x *MemCore) Sbrk(delta int64) (int64, error) {
	x.init()
	prev := x.brk
	if delta == 0 {
		return prev, nil
	}
	nb := x.brk + delta
	if nb < memCoreBase {
		return 0, errors.New(`dlheap: core break below origin`)
	}
	if delta > 0 && nb-memCoreBase > x.limit() {
		return 0, errCoreLimit
	}
	if grow := nb - memCoreBase - int64(len(x.mem)); grow > 0 {
		x.mem = append(x.mem, make([]byte, grow)...)
	}
	x.brk = nb
	return prev, nil
}

func (x *MemCore) Contiguous() (int64, []byte) {
	x.init()
	return memCoreBase, x.mem[:x.brk-memCoreBase]
}

func (x *MemCore) Map(n int64) (int64, []byte, error) {
	x.init()
	if n <= 0 {
		return 0, nil, errors.New(`dlheap: core map of non-positive size`)
	}
	if x.MapLimit < 0 || (x.MapLimit > 0 && len(x.maps) >= x.MapLimit) {
		return 0, nil, errCoreMaps
	}
	if n > defaultCoreLimit {
		return 0, nil, errCoreLimit
	}
	n = roundUp(n, x.page())
	base := x.nextMap
	x.nextMap += n + x.page()
	data := make([]byte, n)
	if x.maps == nil {
		x.maps = map[int64][]byte{}
	}
	x.maps[base] = data
	return base, data, nil
}

func (x *MemCore) Unmap(base int64) error {
	if _, ok := x.maps[base]; !ok {
		return errors.New(`dlheap: core unmap of unknown region`)
	}
	delete(x.maps, base)
	return nil
}
