package gc

import (
	"testing"
	"unsafe"
)

// rootArray returns the inclusive/exclusive address range of a small
// array of uintptr words a test can use as a fake "VM global" root
// range via SetGlobalRoots.
func rootArray(words *[4]uintptr) (lo, hi uintptr) {
	lo = uintptr(unsafe.Pointer(&words[0]))
	hi = lo + uintptr(len(words))*unsafe.Sizeof(uintptr(0))
	return lo, hi
}

func TestCollectKeepsReachableObject(t *testing.T) {
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, false, false)
	if p == nil {
		t.Fatal("alloc failed")
	}
	roots[0] = uintptr(p)

	h.Collect()

	if n := h.NBytes(p); n == 0 {
		t.Fatal("reachable object was collected")
	}
}

func TestCollectReclaimsUnreachableObject(t *testing.T) {
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, false, false)
	if p == nil {
		t.Fatal("alloc failed")
	}
	// Never stored into roots: unreachable from the start.

	h.Collect()

	if n := h.NBytes(p); n != 0 {
		t.Fatal("unreachable object survived collection")
	}
}

func TestCollectDropsClearedRoot(t *testing.T) {
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, false, false)
	roots[0] = uintptr(p)
	h.Collect()
	if n := h.NBytes(p); n == 0 {
		t.Fatal("object should still be alive after first collection")
	}

	roots[0] = 0
	h.Collect()
	if n := h.NBytes(p); n != 0 {
		t.Fatal("object should be reclaimed once its only root is cleared")
	}
}

func TestCollectTracesChainOfObjects(t *testing.T) {
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	// Build a 3-link chain: roots[0] -> a -> b -> c, each a single
	// pointer-sized word object.
	c := h.Alloc(int(unsafe.Sizeof(uintptr(0))), false, false)
	b := h.Alloc(int(unsafe.Sizeof(uintptr(0))), false, false)
	a := h.Alloc(int(unsafe.Sizeof(uintptr(0))), false, false)
	if a == nil || b == nil || c == nil {
		t.Fatal("chain alloc failed")
	}
	*(*uintptr)(b) = uintptr(c)
	*(*uintptr)(a) = uintptr(b)
	roots[0] = uintptr(a)

	h.Collect()

	if h.NBytes(a) == 0 || h.NBytes(b) == 0 || h.NBytes(c) == 0 {
		t.Fatal("whole chain should survive when reachable from a root")
	}

	roots[0] = 0
	h.Collect()

	if h.NBytes(a) != 0 || h.NBytes(b) != 0 || h.NBytes(c) != 0 {
		t.Fatal("whole chain should be reclaimed once unreachable")
	}
}

func TestSweepAllReclaimsEverythingUnconditionally(t *testing.T) {
	h := newTestHeap(t, 4096, WithBlockSize(16), WithAutoCollect(false))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, false, false)
	roots[0] = uintptr(p) // reachable, but SweepAll ignores roots entirely

	h.SweepAll()

	if n := h.NBytes(p); n != 0 {
		t.Fatal("SweepAll should reclaim every object regardless of reachability")
	}
}
