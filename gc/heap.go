package gc

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// debugAsserts gates the invariant checks in block.go. Left off by
// default, same trade-off the teacher makes with its own gcAsserts
// const: these checks are only useful while developing the collector
// itself, and cost real cycles on every state transition.
const debugAsserts = false

// Heap is one block-based conservative heap. The zero value is not
// usable; construct one with New.
type Heap struct {
	mu sync.Mutex

	region []byte // whole backing region, kept alive for the pool's sake
	pool   []byte // the block pool slice of region

	atb atb
	ftb ftb // nil if finalisers are disabled

	blockSize int
	buckets   int
	numBlocks int

	poolStart uintptr
	poolEnd   uintptr

	firstFreeATB []int // per-bucket lower bound, in block indices
	lastFreeATB  int    // upper bound, in block indices

	lowestLongLivedPtr uintptr

	markStack    []int
	stackOverflow bool

	globalLo, globalHi uintptr
	globalRootsSet     bool
	stackLo, stackHi   uintptr
	stackRootsSet      bool

	permHead uintptr // head of the permanent-pointer registry, 0 = empty

	lockDepth atomic.Int32

	autoCollect    bool
	allocThreshold int
	bytesSinceGC   int
	zeroMode       ZeroMode
	debug          bool

	finalizer    Finalizer
	schedLocker  SchedulerLocker
	safeModeHook SafeModeHook

	initialized bool

	mallocs    uint64
	frees      uint64
	totalAlloc uint64
	gcCount    uint64
}

// New partitions region into an ATB, an optional FTB, and a block pool,
// per the layout computed by computeLayout, and resets every allocator
// hint to its initial state. The host retains ownership of region and
// must keep it alive and unmoved for the Heap's entire lifetime; nothing
// else may write to it.
func New(region []byte, opts ...Option) (*Heap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ptrSize := int(unsafe.Sizeof(uintptr(0)))
	if cfg.blockSize < ptrSize || cfg.blockSize&(cfg.blockSize-1) != 0 {
		return nil, ErrBadBlockSize
	}
	if cfg.buckets < 1 {
		cfg.buckets = 1
	}

	total := len(region)
	atbLen, ftbLen, poolLen := computeLayout(total, cfg.blockSize, cfg.withFinalizers)
	if atbLen == 0 || poolLen == 0 {
		return nil, ErrHeapTooSmall
	}

	h := &Heap{
		region:         region,
		blockSize:      cfg.blockSize,
		buckets:        cfg.buckets,
		autoCollect:    cfg.autoCollect,
		allocThreshold: cfg.allocThreshold,
		zeroMode:       cfg.zeroMode,
		debug:          cfg.debug,
		finalizer:      cfg.finalizer,
		schedLocker:    cfg.schedLocker,
		safeModeHook:   cfg.safeModeHook,
	}

	h.atb = atb(region[:atbLen])
	for i := range h.atb {
		h.atb[i] = 0
	}
	if cfg.withFinalizers {
		h.ftb = ftb(region[atbLen : atbLen+ftbLen])
		for i := range h.ftb {
			h.ftb[i] = 0
		}
	}
	h.pool = region[total-poolLen:]
	h.poolStart = uintptr(unsafe.Pointer(&h.pool[0]))
	h.poolEnd = h.poolStart + uintptr(poolLen)
	h.numBlocks = poolLen / cfg.blockSize

	h.firstFreeATB = make([]int, cfg.buckets)
	h.lastFreeATB = h.numBlocks - 1
	h.lowestLongLivedPtr = h.poolEnd
	h.markStack = make([]int, 0, cfg.markStackSize)
	h.initialized = true

	return h, nil
}

// computeLayout finds the largest ATB byte length A such that
// A + F(A) + P(A) <= total, where F(A) is the FTB length implied by A
// (0 if finalisers are disabled) and P(A) is the pool length implied by
// A, per spec step 4.3.2. A binary search keeps this exact regardless of
// region size, rather than approximating and nudging.
func computeLayout(total, blockSize int, withFinalizers bool) (atbLen, ftbLen, poolLen int) {
	fits := func(a int) bool {
		if a <= 0 {
			return true
		}
		blocks := a * blocksPerATBByte
		f := 0
		if withFinalizers {
			f = (blocks + 7) / 8
		}
		p := blocks * blockSize
		return a+f+p <= total
	}
	lo, hi := 0, total
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	atbLen = lo
	blocks := atbLen * blocksPerATBByte
	if withFinalizers {
		ftbLen = (blocks + 7) / 8
	}
	poolLen = blocks * blockSize
	return
}

// Deinit runs finalisers on every live object and marks the heap
// unusable. Further Alloc calls will hit the safe-mode hook.
func (h *Heap) Deinit() {
	h.SweepAll()
	h.mu.Lock()
	h.initialized = false
	h.mu.Unlock()
}

func (h *Heap) abort(reason string) {
	if h.safeModeHook != nil {
		h.safeModeHook.Abort(reason)
	}
	panic(reason)
}

func (h *Heap) blockAddr(b int) uintptr {
	return h.poolStart + uintptr(b)*uintptr(h.blockSize)
}

func (h *Heap) blockPtr(b int) unsafe.Pointer {
	return unsafe.Pointer(h.blockAddr(b))
}

// blockRunLen returns the number of contiguous blocks (HEAD/MARK plus
// any following TAILs) making up the object starting at block b.
func (h *Heap) blockRunLen(b int) int {
	n := 1
	i := b + 1
	for i < h.numBlocks && h.atb.get(i) == blockTail {
		n++
		i++
	}
	return n
}

// pointerBlock resolves addr to a block index iff it falls within the
// pool and is block-aligned, without regard to that block's state.
func (h *Heap) pointerBlock(addr uintptr) (int, bool) {
	if addr < h.poolStart || addr >= h.poolEnd {
		return 0, false
	}
	off := addr - h.poolStart
	if off%uintptr(h.blockSize) != 0 {
		return 0, false
	}
	return int(off / uintptr(h.blockSize)), true
}

// headBlockFromAddr resolves addr to a block index iff it is a live
// HEAD: in range, block-aligned, and currently allocated. Used by every
// public operation that takes a pointer the host claims came from Alloc.
func (h *Heap) headBlockFromAddr(addr uintptr) (int, bool) {
	b, ok := h.pointerBlock(addr)
	if !ok || h.atb.get(b) != blockHead {
		return 0, false
	}
	return b, true
}

// NBytes returns the byte size of the block-chain at p, or 0 if p is not
// a live allocation.
func (h *Heap) NBytes(p unsafe.Pointer) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.headBlockFromAddr(uintptr(p))
	if !ok {
		return 0
	}
	return h.blockRunLen(b) * h.blockSize
}

// HasFinalizer reports whether p is a live allocation with its
// finaliser bit set.
func (h *Heap) HasFinalizer(p unsafe.Pointer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.headBlockFromAddr(uintptr(p))
	if !ok {
		return false
	}
	return h.ftb.get(b)
}

// IsLocked reports whether the heap currently has a positive lock depth.
func (h *Heap) IsLocked() bool {
	return h.lockDepth.Load() > 0
}

// Lock increments the reentrancy depth, making every Alloc, Free,
// Realloc and MakeLongLived call a no-op until a matching Unlock (Alloc
// and Realloc return nil, MakeLongLived returns its argument). Collect,
// CollectStart/CollectEnd and SweepAll do not check the depth and still
// run. Hosts use this to pin the heap while walking roots by hand.
func (h *Heap) Lock() {
	h.lockDepth.Add(1)
}

// Unlock decrements the reentrancy depth.
func (h *Heap) Unlock() {
	h.lockDepth.Add(-1)
}
