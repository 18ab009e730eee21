package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderPrimitives(t *testing.T) {
	buf := []byte{
		0x01, 0x00, 0x00, 0x00, // u32 = 1
		0xff, 0xff, 0xff, 0xff, // i32 = -1
	}
	r := NewReader(bytes.NewReader(buf))

	u, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), u)

	i, err := r.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i)

	_, err = r.ReadU32()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReadCStringAtOffsetZero(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x00}
	r := NewReader(bytes.NewReader(buf))

	s, err := r.ReadCStringAtOffset()
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestReadCStringAtOffsetRestoresPosition(t *testing.T) {
	// offset field (4 bytes) points at byte 8, where "hi\x00" lives.
	buf := []byte{
		0x08, 0x00, 0x00, 0x00,
		0xaa, 0xaa, 0xaa, 0xaa,
		'h', 'i', 0x00,
	}
	r := NewReader(bytes.NewReader(buf))

	s, err := r.ReadCStringAtOffset()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	pos, err := r.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos, "position must land immediately after the offset field, not before it")
}

func TestWithSavedPositionRestoresOnError(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3, 4, 5}))

	require.NoError(t, r.SeekAbs(2))

	err := r.WithSavedPosition(func() error {
		require.NoError(t, r.SeekAbs(0))
		return assert.AnError
	})
	assert.Error(t, err)

	pos, err := r.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)
}
