// Command gcdemo exercises the collector package end to end: plain
// alloc/free, a collection that reclaims an unreachable object, a
// finaliser firing on collection, long-lived placement, and (with
// -workload=wasm) the toy hostvm bytecode machine standing in for a
// guest program.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"unsafe"

	"github.com/tinyvm-project/memgc/gc"
	"github.com/tinyvm-project/memgc/internal/hostvm"
)

// demoRoots is the fixed root range every demo registers via
// SetGlobalRoots, standing in for an interpreter's global variable
// table. Unused slots are left zero.
var demoRoots [64]uintptr

func rootRange() (lo, hi uintptr) {
	lo = uintptr(unsafe.Pointer(&demoRoots[0]))
	hi = lo + uintptr(len(demoRoots))*unsafe.Sizeof(uintptr(0))
	return lo, hi
}

func newDemoHeap(heapSize, blockSize int, debug bool, fin gc.Finalizer) *gc.Heap {
	region := make([]byte, heapSize)
	opts := []gc.Option{
		gc.WithBlockSize(blockSize),
		gc.WithDebug(debug),
	}
	if fin != nil {
		opts = append(opts, gc.WithFinalizer(fin))
	}
	h, err := gc.New(region, opts...)
	if err != nil {
		log.Fatalf("gc.New: %v", err)
	}
	lo, hi := rootRange()
	h.SetGlobalRoots(lo, hi)
	return h
}

func printInfo(h *gc.Heap) {
	info := h.Info()
	stats := h.Stats()
	fmt.Printf("  info:  total=%d used=%d free=%d maxFreeRun=%d maxBlockCount=%d\n",
		info.TotalBytes, info.UsedBytes, info.FreeBytes, info.MaxFreeRun, info.MaxBlockCount)
	fmt.Printf("  stats: mallocs=%d frees=%d totalAlloc=%d collections=%d\n",
		stats.Mallocs, stats.Frees, stats.TotalAlloc, stats.Collections)
	h.DumpASCII(os.Stdout) // prints only when the heap was built with -debug
}

func demoBasic(heapSize, blockSize int, debug bool) {
	fmt.Println("--- basic: alloc, free, reuse ---")
	h := newDemoHeap(heapSize, blockSize, debug, nil)
	p := h.Alloc(32, false, false)
	fmt.Printf("allocated %d bytes at %p\n", h.NBytes(p), p)
	h.Free(p)
	q := h.Alloc(32, false, false)
	fmt.Printf("reallocated same size, got %p (reused=%v)\n", q, p == q)
	printInfo(h)
}

func demoChain(heapSize, blockSize int, debug bool) {
	fmt.Println("--- chain: unreachable objects are reclaimed ---")
	h := newDemoHeap(heapSize, blockSize, debug, nil)
	defer func() { demoRoots[0] = 0 }()

	const n = 32
	nodes := make([]unsafe.Pointer, n)
	for i := 0; i < n; i++ {
		nodes[i] = h.Alloc(int(unsafe.Sizeof(uintptr(0))), false, false)
	}
	for i := 0; i < n-1; i++ {
		*(*uintptr)(nodes[i]) = uintptr(nodes[i+1])
	}
	demoRoots[0] = uintptr(nodes[0])

	h.Collect()
	fmt.Printf("after collect with root set: node 0 alive=%v\n", h.NBytes(nodes[0]) != 0)

	demoRoots[0] = 0
	h.Collect()
	fmt.Printf("after collect with root cleared: node 0 alive=%v\n", h.NBytes(nodes[0]) != 0)
	printInfo(h)
}

type loggingFinalizer struct{}

func (loggingFinalizer) Finalize(tag uintptr, obj unsafe.Pointer) {
	fmt.Printf("finaliser fired: tag=%d obj=%p\n", tag, obj)
}

func demoFinalizer(heapSize, blockSize int, debug bool) {
	fmt.Println("--- finalizer: fires exactly once, when unreachable ---")
	h := newDemoHeap(heapSize, blockSize, debug, loggingFinalizer{})
	defer func() { demoRoots[0] = 0 }()

	p := h.Alloc(16, true, false)
	*(*uintptr)(p) = 0xC0FFEE
	h.Collect()
	fmt.Printf("object alive=%v\n", h.NBytes(p) != 0)
	printInfo(h)
}

func demoLongLived(heapSize, blockSize int, debug bool) {
	fmt.Println("--- longlived: placement biases toward the heap's top ---")
	h := newDemoHeap(heapSize, blockSize, debug, nil)

	p := h.Alloc(16, false, false)
	q := h.MakeLongLived(p)
	fmt.Printf("short-lived at %p, long-lived copy at %p (moved=%v)\n", p, q, p != q)
	printInfo(h)
}

func demoWasm(heapSize, blockSize int, debug bool) {
	fmt.Println("--- wasm: toy hostvm bytecode machine over the same collector ---")
	var vm *hostvm.VM
	region := make([]byte, heapSize)
	h, err := gc.New(region, gc.WithBlockSize(blockSize), gc.WithDebug(debug),
		gc.WithFinalizer(gc.FinalizerFunc(func(tag uintptr, obj unsafe.Pointer) {
			vm.Finalize(tag, obj)
		})))
	if err != nil {
		log.Fatalf("gc.New: %v", err)
	}
	vm = hostvm.New(h, func(msg string) { fmt.Println(" ", msg) })

	// Build a small list (1 . (2 . 3)) via Cons, then drop it.
	vm.PushBox(1, true)
	vm.PushBox(2, false)
	vm.PushBox(3, false)
	vm.Cons() // (2 . 3)
	vm.Cons() // (1 . (2 . 3))
	fmt.Printf("built list, stack depth=%d\n", vm.StackDepth())

	h.Collect()
	fmt.Println("list kept alive by the VM's own stack roots")

	vm.Clear()
	h.Collect()
	fmt.Println("list dropped and collected")
	printInfo(h)
}

func main() {
	heapSize := flag.Int("heap-size", 64*1024, "backing region size in bytes")
	blockSize := flag.Int("block-size", 16, "allocator block size in bytes")
	workload := flag.String("workload", "all", "basic|chain|finalizer|longlived|wasm|all")
	debug := flag.Bool("debug", false, "enable the debug ASCII heap dump")
	flag.Parse()

	run := map[string]func(int, int, bool){
		"basic":     demoBasic,
		"chain":     demoChain,
		"finalizer": demoFinalizer,
		"longlived": demoLongLived,
		"wasm":      demoWasm,
	}

	if *workload == "all" {
		for _, name := range []string{"basic", "chain", "finalizer", "longlived", "wasm"} {
			run[name](*heapSize, *blockSize, *debug)
		}
		return
	}

	fn, ok := run[*workload]
	if !ok {
		log.Fatalf("unknown -workload %q", *workload)
	}
	fn(*heapSize, *blockSize, *debug)
}
