// Package hostvm is a minimal stack-based bytecode machine standing in
// for the external interpreter the collector treats as a named
// collaborator: it owns a gc.Heap, exposes its value stack as GC stack
// roots, and implements gc.Finalizer for objects allocated with one
// requested. It exists for cmd/gcdemo's -workload flag, not as a real
// language runtime.
package hostvm

import (
	"fmt"
	"unsafe"

	"github.com/tinyvm-project/memgc/gc"
)

// Object tags: the first word of every heap object allocated by this
// VM, discoverable the way the collector's Finalizer contract requires.
const (
	TagNone uintptr = 0
	TagBox  uintptr = 1 // boxed integer: [tag, value]
	TagPair uintptr = 2 // cons cell: [tag, car, cdr]
)

const stackDepth = 256

// VM is the toy interpreter. Its value stack is a fixed array so its
// address can be handed to gc.Heap.SetStackRoots once at construction.
type VM struct {
	Heap  *gc.Heap
	stack [stackDepth]uintptr
	sp    int
	log   func(string)
}

// New builds a VM over heap and registers the VM's value stack as the
// heap's stack root range.
func New(heap *gc.Heap, log func(string)) *VM {
	vm := &VM{Heap: heap, log: log}
	lo := uintptr(unsafe.Pointer(&vm.stack[0]))
	hi := lo + uintptr(stackDepth)*unsafe.Sizeof(uintptr(0))
	heap.SetStackRoots(lo, hi)
	return vm
}

func (vm *VM) push(v uintptr) {
	if vm.sp >= stackDepth {
		panic("hostvm: stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() uintptr {
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = 0
	return v
}

// Top returns the value on top of the stack without popping it.
func (vm *VM) Top() uintptr {
	return vm.stack[vm.sp-1]
}

// StackDepth reports how many values are currently on the stack.
func (vm *VM) StackDepth() int { return vm.sp }

// Clear empties the stack, dropping every reference it was holding.
func (vm *VM) Clear() {
	for vm.sp > 0 {
		vm.pop()
	}
}

// PushBox allocates a one-word boxed integer and pushes it.
func (vm *VM) PushBox(n int, wantFinalizer bool) uintptr {
	ptrSize := int(unsafe.Sizeof(uintptr(0)))
	p := vm.Heap.Alloc(2*ptrSize, wantFinalizer, false)
	if p == nil {
		panic("hostvm: out of memory allocating a box")
	}
	words := (*[2]uintptr)(p)
	words[0] = TagBox
	words[1] = uintptr(n)
	v := uintptr(p)
	vm.push(v)
	return v
}

// Cons pops two values and pushes a pair pointing at both.
func (vm *VM) Cons() uintptr {
	cdr := vm.pop()
	car := vm.pop()
	ptrSize := int(unsafe.Sizeof(uintptr(0)))
	p := vm.Heap.Alloc(3*ptrSize, false, false)
	if p == nil {
		panic("hostvm: out of memory allocating a pair")
	}
	words := (*[3]uintptr)(p)
	words[0] = TagPair
	words[1] = car
	words[2] = cdr
	v := uintptr(p)
	vm.push(v)
	return v
}

// Dup duplicates the top of the stack.
func (vm *VM) Dup() {
	vm.push(vm.Top())
}

// Drop discards the top of the stack.
func (vm *VM) Drop() {
	vm.pop()
}

// Finalize implements gc.Finalizer, logging every finalised object's
// tag and address through the VM's configured sink.
func (vm *VM) Finalize(tag uintptr, obj unsafe.Pointer) {
	if vm.log == nil {
		return
	}
	name := "unknown"
	switch tag {
	case TagBox:
		name = "box"
	case TagPair:
		name = "pair"
	}
	vm.log(fmt.Sprintf("hostvm: finalised %s object at %p", name, obj))
}
