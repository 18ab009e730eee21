package tile

import (
	"errors"

	"github.com/arbcharts/qct/internal/wire"
)

// ErrUnsupportedMode marks the reserved tile packing byte 128.
var ErrUnsupportedMode = errors.New("tile: unsupported packing mode 128")

// ErrMalformedPrefixTable marks a prefix-code table that fails
// validation, or a bit-packed/RLE sub-palette index decoded past the
// end of the sub-palette that was declared for the tile.
var ErrMalformedPrefixTable = errors.New("tile: malformed prefix-code table")

// prefixEntry values below this are leaves (palette indices); 128 is a
// long branch needing two extra bytes; above 128 is a short branch.
const prefixLongBranch = 128

// Decode reads one tile from r, which must be positioned at the tile's
// first byte, and writes the decoded — and, if scale>1, down-sampled —
// pixels into dst at the subregion belonging to tile (tileX, tileY).
// dst is a scale-adjusted image buffer of the given stride (bytes per
// row). interp is the 128x128 palette-interpolation matrix used when
// scale>1.
//
// On any error dst is left untouched for this tile's region: the caller
// is expected to have zero-initialized dst, so a failed tile decodes as
// palette index 0, matching the legacy behaviour of substituting a blank
// tile rather than aborting the whole image.
func Decode(r *wire.Reader, dst []byte, stride, tileX, tileY, scale int, interp *[128][128]byte) error {
	var scratch [Pixels]byte

	mode, err := r.ReadByte()
	if err != nil {
		return err
	}

	switch {
	case mode == 0 || mode == 255:
		if err := decodePrefixCode(r, &scratch); err != nil {
			return err
		}
	case mode == prefixLongBranch:
		for i := 0; i < 8; i++ {
			if _, err := r.ReadByte(); err != nil {
				return err
			}
		}
		return ErrUnsupportedMode
	case mode < prefixLongBranch:
		if err := decodeRLE(r, &scratch, int(mode)); err != nil {
			return err
		}
	default:
		if err := decodeBitPacked(r, &scratch, 256-int(mode)); err != nil {
			return err
		}
	}

	place(&scratch, dst, stride, tileX, tileY, scale, interp)
	return nil
}

func decodePrefixCode(r *wire.Reader, scratch *[Pixels]byte) error {
	var table []byte
	var leaves, branches int

	for leaves <= branches {
		e, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case e == prefixLongBranch:
			lo, err := r.ReadByte()
			if err != nil {
				return err
			}
			hi, err := r.ReadByte()
			if err != nil {
				return err
			}
			table = append(table, e, lo, hi)
			branches++
		case e > prefixLongBranch:
			table = append(table, e)
			branches++
		default:
			table = append(table, e)
			leaves++
		}
	}

	if leaves == 1 {
		for i := range scratch {
			scratch[i] = table[0]
		}
		return nil
	}

	if err := validatePrefixTable(table); err != nil {
		return err
	}

	cursor := 0
	var curByte byte
	bitsLeft := 0
	pixelnum := 0

	for pixelnum < Pixels {
		e := table[cursor]
		if e < prefixLongBranch {
			scratch[pixelnum] = e
			pixelnum++
			cursor = 0
			continue
		}

		if bitsLeft == 0 {
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			curByte = b
			bitsLeft = 8
		}
		bit := curByte & 1
		curByte >>= 1
		bitsLeft--

		if bit == 0 {
			if e == prefixLongBranch {
				cursor += 3
			} else {
				cursor++
			}
		} else if e == prefixLongBranch {
			lo, hi := table[cursor+1], table[cursor+2]
			delta := 65537 - (256*int(hi) + int(lo)) + 2
			cursor += delta
		} else {
			delta := 257 - int(e)
			cursor += delta
		}
	}

	return nil
}

// validatePrefixTable walks the fully-built table checking that every
// branch's jump target lies strictly within the table, so the bit-stream
// traversal in decodePrefixCode can never walk off the end.
func validatePrefixTable(table []byte) error {
	for i := 0; i < len(table); {
		e := table[i]
		switch {
		case e < prefixLongBranch:
			i++
		case e == prefixLongBranch:
			if i+2 >= len(table) {
				return ErrMalformedPrefixTable
			}
			lo, hi := table[i+1], table[i+2]
			delta := 65537 - (256*int(hi) + int(lo)) + 2
			if i+delta >= len(table) {
				return ErrMalformedPrefixTable
			}
			i += 3
		default:
			delta := 257 - int(e)
			if i+delta >= len(table) {
				return ErrMalformedPrefixTable
			}
			i++
		}
	}
	return nil
}

// decodeBitPacked reads a k-colour sub-palette followed by little-endian
// u32 words, each packing 32/b pixels of b = bitsPerPixel(k) bits.
func decodeBitPacked(r *wire.Reader, scratch *[Pixels]byte, k int) error {
	subpal := make([]byte, k)
	for i := range subpal {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		subpal[i] = b
	}

	b := bitsPerPixel(k)
	mask := uint32(1<<b) - 1
	perWord := 32 / b

	pixelnum := 0
	for pixelnum < Pixels {
		word, err := r.ReadU32()
		if err != nil {
			return err
		}
		for run := 0; run < perWord && pixelnum < Pixels; run++ {
			idx := word & mask
			if int(idx) >= k {
				return ErrMalformedPrefixTable
			}
			scratch[pixelnum] = subpal[idx]
			word >>= uint(b)
			pixelnum++
		}
	}
	return nil
}

// decodeRLE reads a k-colour sub-palette followed by run-length bytes:
// the low bitsPerPixel(k) bits select the sub-palette entry, the
// remaining high bits are the run length.
func decodeRLE(r *wire.Reader, scratch *[Pixels]byte, k int) error {
	subpal := make([]byte, k)
	for i := range subpal {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		subpal[i] = b
	}

	b := bitsPerPixel(k)
	mask := int(1<<b) - 1

	pixelnum := 0
	for pixelnum < Pixels {
		v, err := r.ReadByte()
		if err != nil {
			return err
		}
		colour := int(v) & mask
		if colour >= k {
			return ErrMalformedPrefixTable
		}
		runs := int(v) >> b
		for ; runs > 0 && pixelnum < Pixels; runs-- {
			scratch[pixelnum] = subpal[colour]
			pixelnum++
		}
	}
	return nil
}

// decodedRow returns the Size-byte slice of scratch holding the tile's
// final row finalRow (0..Size-1), after undoing the row permutation.
// RowSeq is its own inverse, so the decoded buffer's row RowSeq[finalRow]
// is exactly the data belonging at finalRow once de-interleaved.
func decodedRow(scratch *[Pixels]byte, finalRow int) []byte {
	src := RowSeq[finalRow] * Size
	return scratch[src : src+Size]
}

func place(scratch *[Pixels]byte, dst []byte, stride, tileX, tileY, scale int, interp *[128][128]byte) {
	outSize := Size / scale
	destTop := tileY * outSize
	destLeft := tileX * outSize

	if scale == 1 {
		for y := 0; y < outSize; y++ {
			row := decodedRow(scratch, y)
			destOff := (destTop+y)*stride + destLeft
			copy(dst[destOff:destOff+outSize], row)
		}
		return
	}

	for yOut := 0; yOut < outSize; yOut++ {
		row := decodedRow(scratch, yOut*scale)
		destOff := (destTop+yOut)*stride + destLeft
		for xOut := 0; xOut < outSize; xOut++ {
			pix := row[xOut*scale]
			for n := 1; n < scale; n++ {
				pix = interp[interpIndex(pix)][interpIndex(row[xOut*scale+n])]
			}
			dst[destOff+xOut] = pix
		}
	}
}

// interpIndex folds a full 256-entry palette index into the 128 rows or
// columns of the interpolation matrix. A tile's sub-palette can
// legitimately reference any of the 256 global palette entries, but the
// interpolation matrix only has 128 entries per axis, so indices
// 128..255 are folded down rather than left to index out of bounds.
func interpIndex(pix byte) byte {
	return pix & 0x7f
}
