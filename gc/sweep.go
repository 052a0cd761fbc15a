package gc

import "unsafe"

// sweep makes a single linear pass over the ATB, freeing every unmarked
// HEAD (and its TAILs), firing any pending finaliser first, and
// unmarking every surviving MARK back to HEAD.
func (h *Heap) sweep() {
	freeingTails := false
	for b := 0; b < h.numBlocks; b++ {
		switch h.atb.get(b) {
		case blockFree:
			freeingTails = false
		case blockHead:
			if h.ftb.get(b) {
				h.invokeFinalizer(b)
				h.ftb.clear(b)
			}
			h.atb.free(b)
			freeingTails = true
			h.frees++
		case blockMark:
			h.atb.unmark(b)
			freeingTails = false
		case blockTail:
			if freeingTails {
				h.atb.free(b)
			}
		}
	}
}

// invokeFinalizer loads the type tag from the object's first word and,
// if non-null, dispatches to the host Finalizer under the scheduler
// lock (if any), recovering and discarding any panic exactly as the
// spec requires exceptions from a finaliser to be caught and discarded.
func (h *Heap) invokeFinalizer(b int) {
	if h.finalizer == nil {
		return
	}
	addr := h.blockAddr(b)
	tag := *(*uintptr)(unsafe.Pointer(addr))
	if tag == 0 {
		return
	}
	if h.schedLocker != nil {
		h.schedLocker.LockScheduler()
		defer h.schedLocker.UnlockScheduler()
	}
	h.runFinalizer(tag, unsafe.Pointer(addr))
}

func (h *Heap) runFinalizer(tag uintptr, obj unsafe.Pointer) {
	defer func() {
		recover()
	}()
	h.finalizer.Finalize(tag, obj)
}

// resetHints discards the allocator's first/last-free cursors so the
// next allocation rediscovers free runs from scratch, and resets the
// long-lived boundary to the heap end: a full sweep is the one point
// where it's allowed to un-lower, re-lowering again only as long-lived
// objects get re-allocated.
func (h *Heap) resetHints() {
	for i := range h.firstFreeATB {
		h.firstFreeATB[i] = 0
	}
	h.lastFreeATB = h.numBlocks - 1
	h.lowestLongLivedPtr = h.poolEnd
}
