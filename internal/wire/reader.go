/*
Package wire implements the little-endian primitive readers shared by the
QCT header, metadata, and tile decoders.

All multi-byte scalars on the wire are little-endian regardless of host
byte order, and file offsets are 32-bit and absolute from the start of the
file; there is no support for files larger than 2GiB.
*/
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrTruncated is returned when fewer bytes remain than a field requires.
var ErrTruncated = errors.New("wire: truncated")

// Reader wraps an io.ReadSeeker with the primitive readers used throughout
// the QCT decoder, plus scoped save/restore of the read position for
// offset-indirect fields.
type Reader struct {
	rs io.ReadSeeker
}

// NewReader returns a Reader positioned wherever rs currently is.
func NewReader(rs io.ReadSeeker) *Reader {
	return &Reader{rs: rs}
}

func wrapEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}

// ReadU32 reads a 32-bit little-endian value. The format uses this both for
// unsigned offsets/sizes and for signed counts; callers reinterpret the bit
// pattern as needed.
func (r *Reader) ReadU32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.rs, b[:]); err != nil {
		return 0, wrapEOF(err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadI32 reads a 32-bit little-endian value interpreted as signed.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadF64 reads an IEEE-754 double in little-endian byte order.
func (r *Reader) ReadF64() (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r.rs, b[:]); err != nil {
		return 0, wrapEOF(err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.rs, b[:]); err != nil {
		return 0, wrapEOF(err)
	}
	return b[0], nil
}

// ReadFull reads exactly len(b) bytes.
func (r *Reader) ReadFull(b []byte) error {
	if _, err := io.ReadFull(r.rs, b); err != nil {
		return wrapEOF(err)
	}
	return nil
}

// Tell returns the current absolute read position.
func (r *Reader) Tell() (int64, error) {
	return r.rs.Seek(0, io.SeekCurrent)
}

// SeekAbs seeks to an absolute byte offset from the start of the stream.
func (r *Reader) SeekAbs(offset int64) error {
	_, err := r.rs.Seek(offset, io.SeekStart)
	return err
}

// WithSavedPosition saves the current read position, runs f, and restores
// the saved position on every exit path including a panic or an error
// returned by f. This replaces the ad-hoc save-current-position /
// seek / restore triples the format requires at every offset-indirect
// field.
func (r *Reader) WithSavedPosition(f func() error) error {
	pos, err := r.Tell()
	if err != nil {
		return err
	}
	defer r.SeekAbs(pos) //nolint:errcheck
	return f()
}

// ReadCStringAtOffset reads a 32-bit offset at the current position; if the
// offset is zero, it returns an empty string and the read position advances
// only by the four bytes of the offset field. Otherwise the current
// position is saved, the stream seeks to the offset, bytes are read until a
// NUL, and the position is restored to immediately after the offset field.
// The string is returned exactly as stored; QCT files are not guaranteed to
// be valid UTF-8 and this function does not validate encoding.
func (r *Reader) ReadCStringAtOffset() (string, error) {
	offset, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if offset == 0 {
		return "", nil
	}

	var s string
	err = r.WithSavedPosition(func() error {
		if err := r.SeekAbs(int64(offset)); err != nil {
			return err
		}
		var buf []byte
		for {
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			if b == 0 {
				break
			}
			buf = append(buf, b)
		}
		s = string(buf)
		return nil
	})
	if err != nil {
		return "", err
	}
	return s, nil
}
