package gc

import (
	"testing"
	"unsafe"
)

type fakeFinalizer struct {
	calls []uintptr // object addresses finalised, in dispatch order
	tags  []uintptr
}

func (f *fakeFinalizer) Finalize(tag uintptr, obj unsafe.Pointer) {
	f.tags = append(f.tags, tag)
	f.calls = append(f.calls, uintptr(obj))
}

func TestFinalizerFiresOnCollectedObject(t *testing.T) {
	fin := &fakeFinalizer{}
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false), WithFinalizer(fin))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, true, false)
	if p == nil {
		t.Fatal("alloc failed")
	}
	*(*uintptr)(p) = 0x1234 // type tag, first word

	h.Collect()

	if len(fin.calls) != 1 {
		t.Fatalf("finaliser called %d times, want 1", len(fin.calls))
	}
	if fin.calls[0] != uintptr(p) {
		t.Fatalf("finaliser called with %#x, want %#x", fin.calls[0], uintptr(p))
	}
	if fin.tags[0] != 0x1234 {
		t.Fatalf("finaliser tag = %#x, want 0x1234", fin.tags[0])
	}
}

func TestFinalizerDoesNotFireOnReachableObject(t *testing.T) {
	fin := &fakeFinalizer{}
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false), WithFinalizer(fin))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, true, false)
	*(*uintptr)(p) = 0x1234
	roots[0] = uintptr(p)

	h.Collect()

	if len(fin.calls) != 0 {
		t.Fatalf("finaliser fired on a reachable object")
	}
}

func TestFinalizerNotDispatchedWithoutTag(t *testing.T) {
	fin := &fakeFinalizer{}
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false), WithFinalizer(fin))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	// Finalizer requested, but the type-tag word is left zero (Alloc
	// writes a null tag for every allocation that requests a finaliser).
	h.Alloc(16, true, false)

	h.Collect()

	if len(fin.calls) != 0 {
		t.Fatal("finaliser should not dispatch when the tag word is zero")
	}
}

// panicFinalizer always panics; sweep must recover and continue.
type panicFinalizer struct{ invoked int }

func (f *panicFinalizer) Finalize(tag uintptr, obj unsafe.Pointer) {
	f.invoked++
	panic("boom")
}

func TestFinalizerPanicIsRecovered(t *testing.T) {
	fin := &panicFinalizer{}
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false), WithFinalizer(fin))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, true, false)
	*(*uintptr)(p) = 0xBEEF

	h.Collect() // must not propagate the panic

	if fin.invoked != 1 {
		t.Fatalf("finaliser invoked %d times, want 1", fin.invoked)
	}
	if n := h.NBytes(p); n != 0 {
		t.Fatal("object should still be reclaimed despite the panicking finaliser")
	}
}

type lockCounter struct{ locked, unlocked int }

func (l *lockCounter) LockScheduler()   { l.locked++ }
func (l *lockCounter) UnlockScheduler() { l.unlocked++ }

func TestFinalizerRunsUnderSchedulerLock(t *testing.T) {
	fin := &fakeFinalizer{}
	sched := &lockCounter{}
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false),
		WithFinalizer(fin), WithSchedulerLocker(sched))

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, true, false)
	*(*uintptr)(p) = 0x1

	h.Collect()

	if sched.locked != 1 || sched.unlocked != 1 {
		t.Fatalf("scheduler lock/unlock = %d/%d, want 1/1", sched.locked, sched.unlocked)
	}
}

func TestFinalizerCanReentrantlyAllocWithoutDeadlock(t *testing.T) {
	h := newTestHeap(t, 8192, WithBlockSize(16), WithAutoCollect(false))
	reentrant := &reentrantFinalizer{h: h}
	h.finalizer = reentrant

	var roots [4]uintptr
	lo, hi := rootArray(&roots)
	h.SetGlobalRoots(lo, hi)

	p := h.Alloc(16, true, false)
	*(*uintptr)(p) = 0x1

	h.Collect()

	if !reentrant.ran {
		t.Fatal("reentrant finaliser never ran")
	}
	if reentrant.allocResult != nil {
		t.Fatal("Alloc called from inside a finaliser must observe the lock and return nil")
	}
}

type reentrantFinalizer struct {
	h           *Heap
	ran         bool
	allocResult unsafe.Pointer
}

func (r *reentrantFinalizer) Finalize(tag uintptr, obj unsafe.Pointer) {
	r.ran = true
	r.allocResult = r.h.Alloc(16, false, false)
}
