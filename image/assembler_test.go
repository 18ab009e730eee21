package image

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbcharts/qct/metadata"
)

func headerWithOneBlankTile() *metadata.Header {
	h := &metadata.Header{
		WidthTiles:  1,
		HeightTiles: 1,
		TileIndex:   []uint32{0}, // zero offset: tile region stays blank
	}
	return h
}

// TestLoadBlankTile is testable property 1, specialised to a header
// whose single tile offset is zero: the image is still fully allocated
// and every pixel defaults to palette index 0.
func TestLoadBlankTile(t *testing.T) {
	h := headerWithOneBlankTile()

	img, err := Load(bytes.NewReader(nil), h, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
	for _, p := range img.Pix {
		assert.Equal(t, byte(0), p)
	}
}

// TestLoadScaleFactors is testable property 6.
func TestLoadScaleFactors(t *testing.T) {
	h := &metadata.Header{WidthTiles: 2, HeightTiles: 3, TileIndex: make([]uint32, 6)}

	for _, scale := range []int{1, 2, 4, 8} {
		img, err := Load(bytes.NewReader(nil), h, scale, nil)
		require.NoError(t, err)
		assert.Equal(t, 2*64/scale, img.Bounds().Dx())
		assert.Equal(t, 3*64/scale, img.Bounds().Dy())
	}
}

// TestLoadRejectsZeroScale covers a caller passing a non-positive scale
// directly to Load, bypassing Map.LoadImage's own clamp: Size/scale
// would otherwise divide by zero.
func TestLoadRejectsZeroScale(t *testing.T) {
	h := headerWithOneBlankTile()

	_, err := Load(bytes.NewReader(nil), h, 0, nil)
	assert.ErrorIs(t, err, ErrAllocationFailure)

	_, err = Load(bytes.NewReader(nil), h, -1, nil)
	assert.ErrorIs(t, err, ErrAllocationFailure)
}

func TestPaletteByteOrder(t *testing.T) {
	h := &metadata.Header{}
	h.Palette[3] = 0x00112233 // blue in the LSB, red in the third byte

	pal := Palette(h)
	assert.Equal(t, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}, pal[3])
}
