package dlheap

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// Ptr is the address of an allocated payload in the simulated address space.
// The zero Ptr is the null address.
type Ptr int64

// ErrOutOfMemory is returned when a request cannot be satisfied: the padded
// size is out of range, or the core refuses both extension and mapping.
var ErrOutOfMemory = errors.New(`dlheap: out of memory`)

// Tunable defaults.
const (
	DefaultMaxFast       = 64
	DefaultTrimThreshold = 256 << 10
	DefaultTopPad        = 0
	DefaultMapThreshold  = 256 << 10
	DefaultMapMax        = 65536
)

type (
	// Allocator is the process-wide allocator state. Create one with [New];
	// the zero value is not usable. An Allocator is not safe for concurrent
	// use; see [Locked].
	Allocator struct {
		core Core
		log  *logiface.Logger[logiface.Event]

		// maxFast is the fast-bin eligibility cap, with its two low bits
		// repurposed as the anyChunks/fastChunks flags.
		maxFast  int64
		fastbins [nFastBins]int64

		bins   [nBins]binNode
		binmap [binmapSize]uint32

		top           int64
		lastRemainder int64

		trimThreshold int64
		topPad        int64
		mapThreshold  int64
		mapMax        int

		// contiguous is cleared once the alignment/page correction that
		// follows a new-region extension fails, or once the mapping fallback
		// has been taken. An extension beyond a foreign hole leaves it set.
		contiguous bool
		// noTrim suppresses trimming while the system interface releases
		// the body of an orphaned top via the ordinary free path.
		noTrim bool

		pagesize int64

		nMaps       int
		maxNMaps    int
		mappedMem   int64
		maxMapped   int64
		sbrkedMem   int64
		maxSbrked   int64
		maxTotalMem int64

		seg     region
		regions []region

		// regionStart is the first chunk address of the region holding top.
		regionStart int64
	}

	// Option configures an [Allocator] at construction.
	Option func(*Allocator)
)

// WithLogger attaches a logger for system-memory events. A nil logger (the
// default) disables logging entirely.
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return func(x *Allocator) { x.log = l }
}

// New creates an allocator over the given core. Initialization is explicit:
// the returned allocator has empty circular bins, default tunables, and a
// zero-sized legal top (the unsorted-bin sentinel).
func New(core Core, opts ...Option) *Allocator {
	if core == nil {
		panic(`dlheap: nil core`)
	}
	x := &Allocator{core: core}
	for _, o := range opts {
		if o != nil {
			o(x)
		}
	}
	x.initState()
	return x
}

func (x *Allocator) initState() {
	x.pagesize = x.core.PageSize()
	if x.pagesize <= 0 || x.pagesize&(x.pagesize-1) != 0 {
		panic(`dlheap: core page size must be a power of 2`)
	}
	for i := 1; i < nBins; i++ {
		x.bins[i] = binNode{fd: binAddr(i), bk: binAddr(i)}
	}
	x.binmap = [binmapSize]uint32{}
	x.fastbins = [nFastBins]int64{}
	x.maxFast = 0
	x.setMaxFast(DefaultMaxFast)
	x.trimThreshold = DefaultTrimThreshold
	x.topPad = DefaultTopPad
	x.mapThreshold = DefaultMapThreshold
	x.mapMax = DefaultMapMax
	// the unsorted sentinel is a legal zero-sized top; the first allocation
	// replaces it via the system interface
	x.top = binAddr(unsortedIdx)
	x.lastRemainder = 0
	x.contiguous = true
	x.refreshContig()
}

func (x *Allocator) refreshContig() {
	x.seg.base, x.seg.data = x.core.Contiguous()
}

// Param identifies a tunable for [Allocator.Tune].
type Param int

const (
	// ParamMaxFast caps the request size eligible for fast bins, in
	// [0, MaxFastBound]. Zero disables fast bins.
	ParamMaxFast Param = iota
	// ParamTrimThreshold is the top size beyond which free attempts to
	// return memory to the core.
	ParamTrimThreshold
	// ParamTopPad is extra slack requested on every contiguous extension.
	ParamTopPad
	// ParamMapThreshold is the request size at or beyond which allocations
	// are served as independent mappings.
	ParamMapThreshold
	// ParamMapMax caps the number of simultaneous direct mappings.
	ParamMapMax
)

// Tune adjusts a tunable parameter, reporting whether the value was applied.
// Values outside the documented bounds are rejected.
func (x *Allocator) Tune(param Param, value int64) bool {
	switch param {
	case ParamMaxFast:
		if value < 0 || value > MaxFastBound {
			return false
		}
		x.setMaxFast(value)
	case ParamTrimThreshold:
		if value < 0 {
			return false
		}
		x.trimThreshold = value
	case ParamTopPad:
		if value < 0 {
			return false
		}
		x.topPad = value
	case ParamMapThreshold:
		if value < 0 {
			return false
		}
		x.mapThreshold = value
	case ParamMapMax:
		if value < 0 || value > int64(int(^uint(0)>>1)) {
			return false
		}
		x.mapMax = int(value)
	default:
		return false
	}
	return true
}

func (x *Allocator) updateMaxTotals() {
	if x.sbrkedMem > x.maxSbrked {
		x.maxSbrked = x.sbrkedMem
	}
	if x.mappedMem > x.maxMapped {
		x.maxMapped = x.mappedMem
	}
	if total := x.sbrkedMem + x.mappedMem; total > x.maxTotalMem {
		x.maxTotalMem = total
	}
}
