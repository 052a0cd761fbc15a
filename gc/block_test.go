package gc

import "testing"

func TestATBTransitions(t *testing.T) {
	a := make(atb, 4) // 16 blocks

	a.setHead(0)
	a.setTail(1)
	a.setTail(2)
	if got := a.get(0); got != blockHead {
		t.Fatalf("block 0 = %v, want HEAD", got)
	}
	if got := a.get(1); got != blockTail {
		t.Fatalf("block 1 = %v, want TAIL", got)
	}

	a.mark(0)
	if got := a.get(0); got != blockMark {
		t.Fatalf("block 0 = %v, want MARK after mark", got)
	}

	a.unmark(0)
	if got := a.get(0); got != blockHead {
		t.Fatalf("block 0 = %v, want HEAD after unmark", got)
	}

	a.free(0)
	a.free(1)
	a.free(2)
	for b := 0; b < 3; b++ {
		if got := a.get(b); got != blockFree {
			t.Fatalf("block %d = %v, want FREE after free", b, got)
		}
	}
}

func TestATBPacking(t *testing.T) {
	a := make(atb, 1) // 4 blocks in one byte
	a.setHead(0)
	a.setTail(1)
	a.setTail(2)
	a.setHead(3)

	want := []blockState{blockHead, blockTail, blockTail, blockHead}
	for b, w := range want {
		if got := a.get(b); got != w {
			t.Errorf("block %d = %v, want %v", b, got, w)
		}
	}

	// Changing one block must not disturb its neighbours.
	a.free(1)
	if got := a.get(0); got != blockHead {
		t.Errorf("block 0 disturbed by neighbour free: got %v", got)
	}
	if got := a.get(2); got != blockTail {
		t.Errorf("block 2 disturbed by neighbour free: got %v", got)
	}
}

func TestFTB(t *testing.T) {
	f := make(ftb, 2) // 16 blocks
	if f.get(5) {
		t.Fatal("fresh ftb bit set")
	}
	f.set(5)
	if !f.get(5) {
		t.Fatal("set bit not observed")
	}
	if f.get(4) || f.get(6) {
		t.Fatal("set disturbed a neighbouring bit")
	}
	f.clear(5)
	if f.get(5) {
		t.Fatal("bit still set after clear")
	}
}

func TestFTBNil(t *testing.T) {
	var f ftb
	if f.get(0) {
		t.Fatal("nil ftb.get must report false")
	}
	f.set(0)  // must not panic
	f.clear(0) // must not panic
}
