package dlheap

import "sync"

// Locked wraps an [Allocator] with a single mutex around every operation:
// the intended concurrency model. Note that [Locked.Bytes] returns a view
// that aliases the heap; callers coordinating concurrent access to payloads
// do so above this layer.
type Locked struct {
	mu sync.Mutex
	a  *Allocator
}

// NewLocked is [New], wrapped.
func NewLocked(core Core, opts ...Option) *Locked {
	return &Locked{a: New(core, opts...)}
}

// Do runs f on the wrapped allocator under the lock. Payload access via
// [Allocator.Bytes] must happen here when other goroutines may be growing
// the heap, as growth can move the backing memory.
func (x *Locked) Do(f func(a *Allocator)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	f(x.a)
}

func (x *Locked) Malloc(n int64) (Ptr, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.Malloc(n)
}

func (x *Locked) Free(p Ptr) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.a.Free(p)
}

func (x *Locked) Realloc(p Ptr, n int64) (Ptr, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.Realloc(p, n)
}

func (x *Locked) Memalign(alignment, n int64) (Ptr, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.Memalign(alignment, n)
}

func (x *Locked) Calloc(count, elemSize int64) (Ptr, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.Calloc(count, elemSize)
}

func (x *Locked) IndependentCalloc(n int, elemSize int64, out []Ptr) ([]Ptr, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.IndependentCalloc(n, elemSize, out)
}

func (x *Locked) IndependentComalloc(sizes []int64, out []Ptr) ([]Ptr, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.IndependentComalloc(sizes, out)
}

func (x *Locked) UsableSize(p Ptr) int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.UsableSize(p)
}

func (x *Locked) Bytes(p Ptr) []byte {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.Bytes(p)
}

func (x *Locked) Trim(pad int64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.Trim(pad)
}

func (x *Locked) Tune(param Param, value int64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.Tune(param, value)
}

func (x *Locked) Stats() Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.a.Stats()
}
