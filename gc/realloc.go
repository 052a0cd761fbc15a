package gc

import "unsafe"

// Realloc grows, shrinks, or (if allowMove is set and neither fits in
// place) moves the object at p to hold nBytes. realloc(nil, n, _) is
// alloc(n, 0, false); realloc(p, 0, _) is free(p) returning nil.
func (h *Heap) Realloc(p unsafe.Pointer, nBytes int, allowMove bool) unsafe.Pointer {
	if p == nil {
		return h.Alloc(nBytes, false, false)
	}
	if nBytes == 0 {
		h.Free(p)
		return nil
	}
	if h.lockDepth.Load() > 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reallocLocked(p, nBytes, allowMove)
}

func (h *Heap) reallocLocked(p unsafe.Pointer, nBytes int, allowMove bool) unsafe.Pointer {
	addr := uintptr(p)
	b, ok := h.headBlockFromAddr(addr)
	if !ok {
		return nil
	}
	m := h.blockRunLen(b)
	newBlocks := (nBytes + h.blockSize - 1) / h.blockSize

	switch {
	case newBlocks == m:
		return p

	case newBlocks < m:
		for i := b + newBlocks; i < b+m; i++ {
			h.atb.free(i)
		}
		if end := b + m - 1; end > h.lastFreeATB {
			h.lastFreeATB = end
		}
		bucket := newBlocks - 1
		if bucket >= h.buckets {
			bucket = h.buckets - 1
		}
		if freedStart := b + newBlocks; freedStart < h.firstFreeATB[bucket] {
			h.firstFreeATB[bucket] = freedStart
		}
		return p
	}

	// Growing: see how many FREE blocks immediately follow the chain.
	nFree := 0
	for i := b + m; i < h.numBlocks && h.atb.get(i) == blockFree; i++ {
		nFree++
	}

	if m+nFree >= newBlocks {
		for i := b + m; i < b+newBlocks; i++ {
			h.atb.setTail(i)
		}
		h.zeroAlloc(b, newBlocks, m*h.blockSize)
		return p
	}

	if !allowMove {
		return nil
	}

	hadFinalizer := h.ftb.get(b)
	newPtr := h.allocLocked(nBytes, hadFinalizer, false)
	if newPtr == nil {
		return nil
	}
	oldBytes := m * h.blockSize
	src := unsafe.Slice((*byte)(p), oldBytes)
	dst := unsafe.Slice((*byte)(newPtr), oldBytes)
	copy(dst, src)
	h.freeLocked(p)
	return newPtr
}
