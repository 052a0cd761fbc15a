package gc

import "errors"

// ErrHeapTooSmall is returned by New when the supplied region cannot fit
// even a single block alongside its own metadata.
var ErrHeapTooSmall = errors.New("gc: region too small to hold any blocks")

// ErrBadBlockSize is returned by New when the requested block size is
// not a power of two at least as wide as a pointer.
var ErrBadBlockSize = errors.New("gc: block size must be a power of two no smaller than a pointer")
