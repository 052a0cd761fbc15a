package gc

import "unsafe"

// MakeLongLived moves p into the long-lived region if that's likely to
// help, and returns the (possibly unchanged) pointer. If p is already at
// or above the long-lived boundary, or isn't a live allocation, it is
// returned unchanged. Otherwise a long-lived copy is allocated; it is
// kept only if it lands strictly below p, and is freed again (returning
// p) if not. The old copy becomes unreferenced and is reclaimed
// by the next collection; callers must not retain interior references
// to the old address across this call.
func (h *Heap) MakeLongLived(p unsafe.Pointer) unsafe.Pointer {
	if h.lockDepth.Load() > 0 {
		return p
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	addr := uintptr(p)
	b, ok := h.headBlockFromAddr(addr)
	if !ok {
		return p
	}
	if addr >= h.lowestLongLivedPtr {
		return p
	}

	n := h.blockRunLen(b)
	hadFinalizer := h.ftb.get(b)
	newPtr := h.allocLocked(n*h.blockSize, hadFinalizer, true)
	if newPtr == nil {
		return p
	}
	if uintptr(newPtr) >= addr {
		// No benefit: the new copy isn't strictly lower than the old one.
		h.freeLocked(newPtr)
		return p
	}

	size := n * h.blockSize
	src := unsafe.Slice((*byte)(p), size)
	dst := unsafe.Slice((*byte)(newPtr), size)
	copy(dst, src)
	return newPtr
}
