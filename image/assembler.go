/*
Package image assembles a full QCT chart raster from its tile grid.

A chart's pixel dimensions are its tile grid dimensions times 64,
divided by the requested scale factor. Loading is single-threaded and
synchronous like the rest of a Map: tiles are visited row-major, one
seek and one decode at a time, on the same file handle the header was
read from.
*/
package image

import (
	"errors"
	stdimage "image"
	"image/color"
	"io"
	"io/ioutil"

	"github.com/sirupsen/logrus"

	"github.com/arbcharts/qct/internal/wire"
	"github.com/arbcharts/qct/metadata"
	"github.com/arbcharts/qct/tile"
)

// ErrAllocationFailure is returned when the requested scale factor and
// tile grid dimensions would overflow an int-sized pixel buffer.
var ErrAllocationFailure = errors.New("image: allocation failure")

// Palette converts a header's raw 32-bit packed colours — blue in the
// least-significant byte, red in the third byte — into a color.Palette
// suitable for an image.Paletted.
func Palette(h *metadata.Header) color.Palette {
	pal := make(color.Palette, len(h.Palette))
	for i, v := range h.Palette {
		pal[i] = color.RGBA{
			R: byte(v >> 16),
			G: byte(v >> 8),
			B: byte(v),
			A: 0xff,
		}
	}
	return pal
}

// Load decodes every tile of h, in row-major order, into a paletted image
// at the given scale factor (1 downsamples not at all, 2 downsamples
// 2:1, and so on; it must evenly divide 64). rs must be the same stream
// the header was loaded from; its position on return is unspecified. log
// receives a warning for every tile that fails to decode; a failed tile
// is left as palette index 0 rather than aborting the load, since the
// format carries no per-tile checksum to tell a corrupt tile from a
// legitimately blank one.
func Load(rs io.ReadSeeker, h *metadata.Header, scale int, log *logrus.Logger) (*stdimage.Paletted, error) {
	if log == nil {
		log = logrus.New()
		log.Out = ioutil.Discard
	}

	if scale <= 0 {
		return nil, ErrAllocationFailure
	}

	outTile := tile.Size / scale
	width := int(h.WidthTiles) * outTile
	height := int(h.HeightTiles) * outTile
	if outTile <= 0 || width <= 0 || height <= 0 || width/outTile != int(h.WidthTiles) {
		return nil, ErrAllocationFailure
	}

	img := stdimage.NewPaletted(stdimage.Rect(0, 0, width, height), Palette(h))
	if len(h.TileIndex) == 0 {
		return img, nil
	}

	r := wire.NewReader(rs)
	for ty := 0; ty < int(h.HeightTiles); ty++ {
		for tx := 0; tx < int(h.WidthTiles); tx++ {
			offset := h.TileIndex[ty*int(h.WidthTiles)+tx]
			if offset == 0 {
				continue
			}
			if err := r.SeekAbs(int64(offset)); err != nil {
				log.WithError(err).WithField("tile", [2]int{tx, ty}).Warn("seek failed, tile left blank")
				continue
			}
			if err := tile.Decode(r, img.Pix, img.Stride, tx, ty, scale, &h.Interp); err != nil {
				log.WithError(err).WithField("tile", [2]int{tx, ty}).Warn("decode failed, tile left blank")
			}
		}
	}

	return img, nil
}
