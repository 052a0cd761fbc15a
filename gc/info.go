package gc

import (
	"fmt"
	"io"
)

// Info reports the current shape of the heap, matching the fields the
// spec's info(out) operation requires.
type Info struct {
	TotalBytes      int
	UsedBytes       int
	FreeBytes       int
	MaxFreeRun      int // bytes, the longest contiguous free run
	OneBlockObjects int
	TwoBlockObjects int
	MaxBlockCount   int // blocks, the largest live object
}

// Info walks the ATB once and reports the heap's current shape.
func (h *Heap) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	var info Info
	info.TotalBytes = h.numBlocks * h.blockSize

	curFreeRun := 0
	for b := 0; b < h.numBlocks; {
		switch h.atb.get(b) {
		case blockFree:
			curFreeRun++
			if curFreeRun > info.MaxFreeRun/h.blockSize {
				info.MaxFreeRun = curFreeRun * h.blockSize
			}
			info.FreeBytes += h.blockSize
			b++
		case blockHead, blockMark:
			curFreeRun = 0
			n := h.blockRunLen(b)
			if n > info.MaxBlockCount {
				info.MaxBlockCount = n
			}
			switch n {
			case 1:
				info.OneBlockObjects++
			case 2:
				info.TwoBlockObjects++
			}
			b += n
		default: // blockTail: unreachable here, blockRunLen always consumes its tails
			curFreeRun = 0
			b++
		}
	}
	info.UsedBytes = info.TotalBytes - info.FreeBytes
	return info
}

// Stats reports allocator-lifetime counters, the optional observability
// the spec leaves to the host's discretion.
type Stats struct {
	Mallocs      uint64
	Frees        uint64
	TotalAlloc   uint64 // bytes ever requested, not rounded to blocks
	Collections  uint64
}

func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Mallocs:     h.mallocs,
		Frees:       h.frees,
		TotalAlloc:  h.totalAlloc,
		Collections: h.gcCount,
	}
}

// DumpASCII writes one character per block (* HEAD, - TAIL, # MARK,
// . FREE), 64 per line, for quick visual inspection of fragmentation.
// It writes nothing unless the heap was built with WithDebug(true).
func (h *Heap) DumpASCII(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.debug {
		return
	}
	for b := 0; b < h.numBlocks; b++ {
		var c byte
		switch h.atb.get(b) {
		case blockHead:
			c = '*'
		case blockTail:
			c = '-'
		case blockMark:
			c = '#'
		default:
			c = '.'
		}
		fmt.Fprintf(w, "%c", c)
		if b%64 == 63 || b+1 == h.numBlocks {
			fmt.Fprintln(w)
		}
	}
}
