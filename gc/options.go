package gc

// ZeroMode selects how much of a fresh allocation gets zeroed.
type ZeroMode int

const (
	// ZeroTrailingOnly zeroes only the unused tail of the last block, the
	// spec-minimum needed so stale pointer-shaped bits can't keep
	// unrelated objects alive.
	ZeroTrailingOnly ZeroMode = iota
	// ZeroFull zeroes the entire allocation, trading a little speed for
	// never exposing any previous tenant's bytes.
	ZeroFull
)

// Option configures a Heap at construction time.
type Option func(*config)

type config struct {
	blockSize      int
	buckets        int
	markStackSize  int
	withFinalizers bool
	autoCollect    bool
	allocThreshold int
	zeroMode       ZeroMode
	debug          bool
	finalizer      Finalizer
	schedLocker    SchedulerLocker
	safeModeHook   SafeModeHook
}

func defaultConfig() config {
	return config{
		blockSize:      16,
		buckets:        8,
		markStackSize:  1024,
		withFinalizers: true,
		autoCollect:    true,
		allocThreshold: 0,
		zeroMode:       ZeroTrailingOnly,
	}
}

// WithBlockSize sets the allocation unit in bytes. Must be a power of
// two at least as wide as a pointer. Default 16.
func WithBlockSize(n int) Option { return func(c *config) { c.blockSize = n } }

// WithAllocBuckets sets K, the number of allocator size buckets used for
// the first_free_atb hints (objects of K blocks or more share the last
// bucket). Default 8.
func WithAllocBuckets(k int) Option { return func(c *config) { c.buckets = k } }

// WithMarkStackSize sets the bounded mark stack capacity S, in block
// indices. Default 1024.
func WithMarkStackSize(n int) Option { return func(c *config) { c.markStackSize = n } }

// WithFinalizers enables or disables the finaliser table (FTB). Disabling
// it saves 1 bit/block when the host has no __del__ protocol. Default true.
func WithFinalizers(enabled bool) Option { return func(c *config) { c.withFinalizers = enabled } }

// WithAutoCollect controls whether exhausted allocations automatically
// trigger a collection and retry once. Default true.
func WithAutoCollect(enabled bool) Option { return func(c *config) { c.autoCollect = enabled } }

// WithAllocThreshold sets the number of bytes that may be allocated
// since the last collection before the next Alloc proactively collects.
// Zero (the default) disables this trigger; Alloc still collects on
// exhaustion regardless.
func WithAllocThreshold(n int) Option { return func(c *config) { c.allocThreshold = n } }

// WithZeroMode selects how much of a fresh allocation is zeroed.
func WithZeroMode(m ZeroMode) Option { return func(c *config) { c.zeroMode = m } }

// WithDebug enables the debug ASCII heap dump (DumpASCII).
func WithDebug(enabled bool) Option { return func(c *config) { c.debug = enabled } }

// WithFinalizer installs the host callback invoked for objects allocated
// with a requested finaliser.
func WithFinalizer(f Finalizer) Option { return func(c *config) { c.finalizer = f } }

// WithSchedulerLocker installs a host hook that is held for the duration
// of each finaliser invocation during sweep, so asynchronous host
// callbacks cannot reenter allocation.
func WithSchedulerLocker(l SchedulerLocker) Option { return func(c *config) { c.schedLocker = l } }

// WithSafeModeHook installs the host's fatal-abort hook, invoked when
// alloc is attempted on an uninitialised heap.
func WithSafeModeHook(h SafeModeHook) Option { return func(c *config) { c.safeModeHook = h } }
