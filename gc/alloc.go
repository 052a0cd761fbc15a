package gc

import "unsafe"

// Alloc finds n_bytes worth of consecutive FREE blocks and returns a
// pointer to them, or nil. Zero-size requests return nil without side
// effects. A locked heap (Lock, or a collection in progress) also
// returns nil without attempting a collection. On exhaustion, Alloc
// collects once and retries; if still exhausted, it gives up.
//
// Placement is short-lived (search forward from the low end) unless
// longLived is set, in which case it searches backward from the high
// end, biasing long-lived objects toward the top of the heap so churn
// in the short-lived region doesn't fragment them.
func (h *Heap) Alloc(nBytes int, wantFinalizer bool, longLived bool) unsafe.Pointer {
	if !h.initialized {
		h.abort("gc: alloc on uninitialised heap")
		return nil
	}
	if nBytes == 0 {
		return nil
	}
	if h.lockDepth.Load() > 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocLocked(nBytes, wantFinalizer, longLived)
}

func (h *Heap) allocLocked(nBytes int, wantFinalizer bool, longLived bool) unsafe.Pointer {
	if h.allocThreshold > 0 && h.bytesSinceGC >= h.allocThreshold {
		h.collectLocked()
	}

	nBlocks := (nBytes + h.blockSize - 1) / h.blockSize
	bucket := nBlocks - 1
	if bucket >= h.buckets {
		bucket = h.buckets - 1
	}

	collected := false
	for {
		var start int
		var ok bool
		if longLived {
			start, ok = h.findRunLong(nBlocks)
		} else {
			start, ok = h.findRunShort(nBlocks, bucket)
		}
		if ok {
			h.commitAlloc(start, nBlocks, nBytes, longLived, wantFinalizer)
			h.mallocs++
			h.totalAlloc += uint64(nBytes)
			h.bytesSinceGC += nBytes
			return h.blockPtr(start)
		}
		if collected || !h.autoCollect {
			return nil
		}
		collected = true
		h.collectLocked()
	}
}

// findRunShort scans forward from the bucket's first-free hint, stopping
// early (a "crossover") if it reaches the long-lived region, so a
// short-lived search never eats into long-lived free space.
func (h *Heap) findRunShort(nBlocks, bucket int) (int, bool) {
	i := h.firstFreeATB[bucket]
	run := 0
	for i < h.numBlocks {
		if h.blockAddr(i) >= h.lowestLongLivedPtr {
			return 0, false
		}
		if h.atb.get(i) == blockFree {
			run++
			if run == nBlocks {
				return i - nBlocks + 1, true
			}
		} else {
			run = 0
		}
		i++
	}
	return 0, false
}

// findRunLong scans backward from the last-free cursor, stopping early
// only when it meets an occupied block below the long-lived boundary —
// a free block at or below the boundary still counts toward the run,
// since nothing long-lived has claimed it yet.
func (h *Heap) findRunLong(nBlocks int) (int, bool) {
	i := h.lastFreeATB
	run := 0
	for i >= 0 {
		if h.atb.get(i) == blockFree {
			run++
			if run == nBlocks {
				return i, true
			}
		} else {
			if h.blockAddr(i) < h.lowestLongLivedPtr {
				return 0, false
			}
			run = 0
		}
		i--
	}
	return 0, false
}

func (h *Heap) commitAlloc(start, nBlocks, nBytes int, longLived, wantFinalizer bool) {
	h.atb.setHead(start)
	for i := start + 1; i < start+nBlocks; i++ {
		h.atb.setTail(i)
	}

	if longLived {
		h.lastFreeATB = start - 1
	} else {
		end := start + nBlocks
		for i := nBlocks - 1; i < h.buckets; i++ {
			if h.firstFreeATB[i] < end {
				h.firstFreeATB[i] = end
			}
		}
	}

	addr := h.blockAddr(start)
	if longLived && addr < h.lowestLongLivedPtr {
		h.lowestLongLivedPtr = addr
	}

	// Only the slack past the caller's requested size needs zeroing by
	// default (ZeroTrailingOnly): that's the part that could otherwise
	// still hold a stale pointer-shaped value from the block's previous
	// tenant. ZeroFull zeroes the whole allocation instead.
	h.zeroAlloc(start, nBlocks, nBytes)

	if wantFinalizer {
		h.ftb.set(start)
		*(*uintptr)(h.blockPtr(start)) = 0
	}
}

// zeroAlloc clears the tail of the allocation past usedBytes (or the
// whole thing, in ZeroFull mode) so stale pointer-shaped bits left over
// from a previous tenant can't keep unrelated objects alive.
func (h *Heap) zeroAlloc(start, nBlocks, usedBytes int) {
	total := nBlocks * h.blockSize
	from := usedBytes
	if h.zeroMode == ZeroFull {
		from = 0
	}
	if from >= total {
		return
	}
	region := unsafe.Slice((*byte)(h.blockPtr(start)), total)
	for i := from; i < total; i++ {
		region[i] = 0
	}
}

// Free releases the object at p. A no-op if p is not a live HEAD
// pointer, or if the heap is currently locked (held until the next
// collection).
func (h *Heap) Free(p unsafe.Pointer) {
	if h.lockDepth.Load() > 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.freeLocked(p)
}

func (h *Heap) freeLocked(p unsafe.Pointer) {
	b, ok := h.headBlockFromAddr(uintptr(p))
	if !ok {
		return
	}
	h.ftb.clear(b)
	n := h.blockRunLen(b)
	for i := b; i < b+n; i++ {
		h.atb.free(i)
	}
	h.frees++

	bucket := n - 1
	if bucket >= h.buckets {
		bucket = h.buckets - 1
	}
	if b < h.firstFreeATB[bucket] {
		h.firstFreeATB[bucket] = b
	}
	if end := b + n - 1; end > h.lastFreeATB {
		h.lastFreeATB = end
	}
}
