package gc

import "unsafe"

// ptrSize is the width of one registry slot; blockSize is always a
// multiple of it since blockSize must itself be a power of two no
// smaller than a pointer.
var ptrSize = unsafe.Sizeof(uintptr(0))

// slotsPerNode is how many pointer-sized slots fit in one block: slot 0
// is the next-node link, slots 1..N-1 hold registered pointers.
func (h *Heap) slotsPerNode() int {
	return h.blockSize / int(ptrSize)
}

func (h *Heap) slotAddr(node uintptr, slot int) uintptr {
	return node + uintptr(slot)*ptrSize
}

func (h *Heap) readSlot(node uintptr, slot int) uintptr {
	return *(*uintptr)(unsafe.Pointer(h.slotAddr(node, slot)))
}

func (h *Heap) writeSlot(node uintptr, slot int, v uintptr) {
	*(*uintptr)(unsafe.Pointer(h.slotAddr(node, slot))) = v
}

func (h *Heap) findEmptySlot(node uintptr) int {
	for i := 1; i < h.slotsPerNode(); i++ {
		if h.readSlot(node, i) == 0 {
			return i
		}
	}
	return -1
}

// NeverFree registers p as unconditionally live: it is marked as a root
// at every future collection until the heap itself is torn down. It
// returns false if p is not a valid heap pointer. The registry lives
// inside the heap itself, as a singly linked chain of long-lived nodes
// (slot 0 is the next-node link); it survives collection solely because
// its head is scanned as a dedicated root at every CollectStart, not
// through any special-casing in sweep.
func (h *Heap) NeverFree(p unsafe.Pointer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	addr := uintptr(p)
	if _, ok := h.pointerBlock(addr); !ok {
		return false
	}

	var prev uintptr
	cur := h.permHead
	for cur != 0 {
		if slot := h.findEmptySlot(cur); slot >= 0 {
			h.writeSlot(cur, slot, addr)
			return true
		}
		prev = cur
		cur = h.readSlot(cur, 0)
	}

	node := h.allocLocked(h.blockSize, false, true)
	if node == nil {
		return false
	}
	nodeAddr := uintptr(node)
	h.writeSlot(nodeAddr, 0, 0)
	h.writeSlot(nodeAddr, 1, addr)

	if prev == 0 {
		h.permHead = nodeAddr
	} else {
		h.writeSlot(prev, 0, nodeAddr)
	}
	return true
}
