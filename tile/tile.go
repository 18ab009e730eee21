/*
Package tile implements the QCT tile decoder: the three compression modes
(prefix-code, bit-packed, run-length), the fixed row permutation tiles are
stored under, and placement of a decoded tile — optionally down-sampled —
into a destination image buffer.

A tile never shares state with another; each call to Decode is
independent and self-contained.
*/
package tile

import "math/bits"

// Size is the width and height of one decoded tile in pixels.
const Size = 64

// Pixels is the number of pixels in one tile.
const Pixels = Size * Size

// RowSeq is the fixed row de-interleaving sequence: RowSeq[k] is the row
// within the tile that decoded row k belongs at. It is the 6-bit
// bit-reversal permutation and is therefore its own inverse — applying it
// twice is the identity.
var RowSeq = [Size]int{
	0, 32, 16, 48, 8, 40, 24, 56, 4, 36, 20, 52, 12, 44, 28, 60, 2,
	34, 18, 50, 10, 42, 26, 58, 6, 38, 22, 54, 14, 46, 30, 62, 1,
	33, 17, 49, 9, 41, 25, 57, 5, 37, 21, 53, 13, 45, 29, 61, 3, 35,
	19, 51, 11, 43, 27, 59, 7, 39, 23, 55, 15, 47, 31, 63,
}

// bitsPerPixel returns the number of bits needed to index a sub-palette of
// k colours: ceil(log2(k)), saturating to 1 for k==1. k is expected in
// [1, 127]. This is effectively a table lookup via the CPU's bit-length
// instruction rather than a floating-point log2 call.
func bitsPerPixel(k int) int {
	if k <= 1 {
		return 1
	}
	return bits.Len(uint(k - 1))
}
