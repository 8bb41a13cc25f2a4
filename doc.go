// Package dlheap implements a general-purpose dynamic memory allocator over a
// caller-supplied core-memory primitive, using boundary-tagged chunks and
// segregated free lists (fast bins, small bins, large bins, an unsorted
// queue, and a wilderness "top" chunk). Sufficiently large requests are
// served as independent anonymous mappings, bypassing the bins entirely.
//
// The heap is modeled as an arena of raw bytes in a simulated address space;
// allocations are [Ptr] handles (byte offsets), and payload memory is
// accessed via [Allocator.Bytes]. All in-band chunk metadata is manipulated
// through typed accessors, so the package contains no unsafe code.
//
// The allocator itself is not safe for concurrent use. A single lock around
// every operation is the intended concurrency model, and is what [Locked]
// provides. Finer-grained locking is unsound, as coalescing crosses bins.
package dlheap
