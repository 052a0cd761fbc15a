// Package gc implements a conservative, non-moving, mark-and-sweep
// collector for a single contiguous heap carved into fixed-size blocks.
//
// The heap is split into blocks (WithBlockSize bytes, default 16, a power
// of two at least one pointer wide). Every allocation rounds its size up to a whole
// number of blocks. A successful allocation marks the first block HEAD
// and any following blocks TAIL; this lets the start and end of every
// object be found without a per-object size header. Block state lives in
// a packed 2-bit-per-block table (the ATB) kept separate from the pool
// bytes, plus an optional 1-bit-per-block finaliser table (the FTB).
//
// The allocator keeps a lower-bound "first free" hint per size bucket
// and an upper-bound "last free" cursor, and places long-lived
// allocations from the top of the heap downward so that churn in the
// short-lived region doesn't fragment the long-lived one. Marking is
// conservative: every pointer-aligned word in a scanned range is treated
// as a potential pointer, verified only by address range, alignment, and
// ATB state. The mark stack has a bounded capacity; on overflow it sets
// a sticky flag and recovers by rescanning the whole ATB for marked
// blocks once the initial roots have drained.
//
// None of this depends on any particular object model. The host
// (interpreter) supplies root ranges, an optional finaliser dispatcher,
// and a type-tag convention (an object's first word); the collector
// never looks past that.
package gc
