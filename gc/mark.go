package gc

import "unsafe"

// SetGlobalRoots records the interpreter's fixed root range (e.g.
// dict_locals through the end of the VM root section), scanned
// conservatively at every CollectStart.
func (h *Heap) SetGlobalRoots(lo, hi uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.globalLo, h.globalHi, h.globalRootsSet = lo, hi, true
}

// SetStackRoots records an optional auxiliary interpreter stack range,
// scanned conservatively at every CollectStart alongside the global
// roots.
func (h *Heap) SetStackRoots(lo, hi uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stackLo, h.stackHi, h.stackRootsSet = lo, hi, true
}

// CollectRoot marks each of ptrs as a root. Root marking is host-driven:
// call this (or CollectPointer) any number of times between CollectStart
// and CollectEnd to supply roots beyond the fixed ranges, e.g. a C
// callee's spilled registers.
func (h *Heap) CollectRoot(ptrs []uintptr) {
	for _, p := range ptrs {
		h.markRoot(p)
	}
}

// CollectPointer marks a single pointer as a root.
func (h *Heap) CollectPointer(p uintptr) {
	h.markRoot(p)
}

// enqueue pushes block b onto the bounded mark stack. On overflow it
// sets the sticky stackOverflow flag and drops the push instead of
// growing past capacity; finishMark recovers from this afterward by
// rescanning the whole ATB.
func (h *Heap) enqueue(b int) {
	if len(h.markStack) == cap(h.markStack) {
		h.stackOverflow = true
		return
	}
	h.markStack = append(h.markStack, b)
}

func (h *Heap) popMark() (int, bool) {
	n := len(h.markStack)
	if n == 0 {
		return 0, false
	}
	b := h.markStack[n-1]
	h.markStack = h.markStack[:n-1]
	return b, true
}

// scanConservative treats every pointer-aligned word in [lo, hi) as a
// potential root.
func (h *Heap) scanConservative(lo, hi uintptr) {
	ptrSize := unsafe.Sizeof(uintptr(0))
	for addr := lo; addr+ptrSize <= hi; addr += ptrSize {
		word := *(*uintptr)(unsafe.Pointer(addr))
		h.markRoot(word)
	}
}

// verifyWord checks whether word could be a pointer to a live object:
// within the pool, block-aligned, and pointing at a HEAD or MARK block.
// Anything else (out of range, misaligned, FREE, or TAIL — this
// collector does not support interior pointers) is not a pointer.
func (h *Heap) verifyWord(word uintptr) (int, bool) {
	b, ok := h.pointerBlock(word)
	if !ok {
		return 0, false
	}
	switch h.atb.get(b) {
	case blockHead, blockMark:
		return b, true
	default:
		return 0, false
	}
}

// markRoot marks the object word points at, if any, pushing it onto the
// mark stack to have its own contents scanned later. A word pointing at
// an already-marked object, or at nothing allocated, is a silent no-op —
// the whole point of conservative scanning is that most words are not
// pointers at all.
func (h *Heap) markRoot(word uintptr) {
	b, ok := h.verifyWord(word)
	if !ok {
		return
	}
	if h.atb.get(b) == blockMark {
		return
	}
	h.atb.mark(b)
	h.enqueue(b)
}

// scanObject scans the words of the object at block b, marking anything
// it points to.
func (h *Heap) scanObject(b int) {
	n := h.blockRunLen(b)
	start := h.blockAddr(b)
	end := start + uintptr(n*h.blockSize)
	ptrSize := unsafe.Sizeof(uintptr(0))
	for addr := start; addr+ptrSize <= end; addr += ptrSize {
		word := *(*uintptr)(unsafe.Pointer(addr))
		h.markRoot(word)
	}
}

// drainMarkStack processes the mark stack until empty, scanning each
// popped object for further pointers.
func (h *Heap) drainMarkStack() {
	for {
		b, ok := h.popMark()
		if !ok {
			return
		}
		h.scanObject(b)
	}
}

// rescanSubtree re-enqueues an already-marked block and drains it,
// used by finishMark's overflow recovery to pick up children that were
// dropped when the stack was full the first time around.
func (h *Heap) rescanSubtree(b int) {
	h.enqueue(b)
	h.drainMarkStack()
}

// finishMark drains the mark stack and, if it ever overflowed, repeats a
// full rescan of every currently-marked block until a pass completes
// without overflowing the stack again. This always terminates: a pass
// only overflows after marking a new block, and the set of marked blocks
// is bounded by numBlocks.
func (h *Heap) finishMark() {
	h.drainMarkStack()
	for h.stackOverflow {
		h.stackOverflow = false
		for b := 0; b < h.numBlocks; b++ {
			if h.atb.get(b) == blockMark {
				h.rescanSubtree(b)
			}
		}
	}
}
