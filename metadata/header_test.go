package metadata

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbcharts/qct/internal/wire"
)

func f64(v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}

// TestLoadBadMagic is scenario S1: anything other than the magic bytes
// is rejected before any other field is read.
func TestLoadBadMagic(t *testing.T) {
	r := wire.NewReader(bytes.NewReader([]byte{0, 0, 0, 0}))
	_, err := Load(r)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestReadPoly10Order(t *testing.T) {
	var buf bytes.Buffer
	coeffs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	for _, c := range coeffs {
		buf.Write(f64(c))
	}

	r := wire.NewReader(bytes.NewReader(buf.Bytes()))
	p, err := readPoly10(r)
	require.NoError(t, err)

	assert.Equal(t, Poly10{C: 1, Y: 2, X: 3, YY: 4, XY: 5, XX: 6, YYY: 7, XYY: 8, XXY: 9, XXX: 10}, p)
}

func TestPoly10Eval(t *testing.T) {
	p := Poly10{C: 1, X: 2, Y: 3}
	assert.Equal(t, 1+2*4+3*5, int(p.Eval(4, 5)))
}

// patch records a deferred write of a 4-byte offset once the position it
// points at becomes known.
type patch struct {
	pos   int
	value uint32
}

// fixtureBuilder assembles a synthetic QCT byte stream: fixed fields are
// written in place, offset-indirect fields are written as placeholders
// and patched once the block they point at has been appended.
type fixtureBuilder struct {
	buf     bytes.Buffer
	patches []patch
}

func (b *fixtureBuilder) u32(v uint32) { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *fixtureBuilder) i32(v int32)  { binary.Write(&b.buf, binary.LittleEndian, v) }
func (b *fixtureBuilder) f64(v float64) {
	binary.Write(&b.buf, binary.LittleEndian, math.Float64bits(v))
}
func (b *fixtureBuilder) cstring(s string) {
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
}

// mark returns the offset the next byte written will land at.
func (b *fixtureBuilder) mark() uint32 { return uint32(b.buf.Len()) }

// placeholder writes a zero offset now and returns its position, to be
// filled in later via resolve once the target block's mark is known.
func (b *fixtureBuilder) placeholder() int {
	pos := b.buf.Len()
	b.u32(0)
	return pos
}

func (b *fixtureBuilder) resolve(pos int, value uint32) {
	b.patches = append(b.patches, patch{pos: pos, value: value})
}

func (b *fixtureBuilder) bytes() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	for _, p := range b.patches {
		binary.LittleEndian.PutUint32(out[p.pos:p.pos+4], p.value)
	}
	return out
}

// TestLoadFullHeader builds a complete synthetic QCT stream by hand --
// fixed fields inline, every offset-indirect string, the extended
// metadata block, a populated license and serial sub-record, the datum
// shift, and a non-empty outline -- and checks a field from each of those
// parts, plus the coefficients, palette, and tile index, against what was
// written.
func TestLoadFullHeader(t *testing.T) {
	b := &fixtureBuilder{}

	b.u32(Magic)
	b.u32(7)    // Version
	b.u32(2)    // WidthTiles
	b.u32(1)    // HeightTiles

	phTitle := b.placeholder()
	phName := b.placeholder()
	phIdent := b.placeholder()
	phEdition := b.placeholder()
	phRevision := b.placeholder()
	phKeywords := b.placeholder()
	phCopyright := b.placeholder()
	phScale := b.placeholder()
	phDatum := b.placeholder()
	phDepths := b.placeholder()
	phHeights := b.placeholder()
	phProjection := b.placeholder()

	b.u32(0x2) // Flags
	phOrigFilename := b.placeholder()
	b.u32(654321)    // OrigFileSize
	b.u32(1000000000) // OrigFileTime
	b.u32(0)          // Unknown1

	phExt := b.placeholder()

	b.u32(3) // numOutline
	phOutline := b.placeholder()

	poly := func(c float64) {
		b.f64(c)
		for i := 0; i < 9; i++ {
			b.f64(0)
		}
	}
	poly(10) // Eas
	poly(20) // Nor
	poly(30) // Lat
	poly(40) // Lon

	var palette [256]uint32
	palette[5] = 0x00112233
	for _, v := range palette {
		b.u32(v)
	}

	var blankRow [128]byte
	for i := 0; i < 128; i++ {
		b.buf.Write(blankRow[:])
	}

	for i := 0; i < 2; i++ { // WidthTiles*HeightTiles tile index entries
		b.u32(uint32(900 + i))
	}

	// Heap: top-level strings.
	topStrings := map[int]string{
		phTitle:      "Test Chart",
		phName:       "TESTCHART",
		phIdent:      "US,TEST,1",
		phEdition:    "1",
		phRevision:   "0",
		phKeywords:   "test, fixture",
		phCopyright:  "(c) nobody",
		phScale:      "1:80000",
		phDatum:      "WGS84",
		phDepths:     "Feet",
		phHeights:    "Feet",
		phProjection: "Mercator",
	}
	for ph, s := range topStrings {
		off := b.mark()
		b.cstring(s)
		b.resolve(ph, off)
	}
	{
		off := b.mark()
		b.cstring("ORIGINAL.KAP")
		b.resolve(phOrigFilename, off)
	}

	// Heap: extended metadata block.
	extOff := b.mark()
	b.resolve(phExt, extOff)
	phMapType := b.placeholder()
	phDS := b.placeholder()
	phDiskName := b.placeholder()
	b.u32(11) // Unknown2
	b.u32(22) // Unknown3
	phLicense := b.placeholder()
	phAssoc := b.placeholder()
	b.u32(33) // Unknown6

	{
		off := b.mark()
		b.cstring("S63")
		b.resolve(phMapType, off)
	}
	{
		off := b.mark()
		b.f64(1.5)  // DatumShiftNorth
		b.f64(-2.5) // DatumShiftEast
		b.resolve(phDS, off)
	}
	{
		off := b.mark()
		b.cstring("DISK1")
		b.resolve(phDiskName, off)
	}
	{
		off := b.mark()
		b.resolve(phLicense, off)
		b.i32(4242) // Identifier
		b.u32(0)    // unknown
		b.u32(0)    // unknown
		phDesc := b.placeholder()
		phSerial := b.placeholder()
		b.u32(0) // unknown

		descOff := b.mark()
		b.cstring("Public Domain")
		b.resolve(phDesc, descOff)

		serialOff := b.mark()
		b.i32(99887766)
		b.resolve(phSerial, serialOff)
	}
	{
		off := b.mark()
		b.cstring("chart.qct")
		b.resolve(phAssoc, off)
	}

	// Heap: outline.
	{
		off := b.mark()
		b.resolve(phOutline, off)
		points := []OutlinePoint{{Lat: 10, Lon: -70}, {Lat: 10.5, Lon: -69.5}, {Lat: 9.5, Lon: -69.8}}
		for _, p := range points {
			b.f64(p.Lat)
			b.f64(p.Lon)
		}
	}

	r := wire.NewReader(bytes.NewReader(b.bytes()))
	h, err := Load(r)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), h.Version)
	assert.Equal(t, uint32(2), h.WidthTiles)
	assert.Equal(t, uint32(1), h.HeightTiles)
	assert.Equal(t, "Test Chart", h.Title)
	assert.Equal(t, "TESTCHART", h.Name)
	assert.Equal(t, "US,TEST,1", h.Ident)
	assert.Equal(t, "1:80000", h.Scale)
	assert.Equal(t, "WGS84", h.Datum)
	assert.Equal(t, "Mercator", h.Projection)
	assert.Equal(t, "ORIGINAL.KAP", h.OrigFilename)
	assert.Equal(t, uint32(654321), h.OrigFileSize)

	assert.Equal(t, "S63", h.MapType)
	assert.Equal(t, 1.5, h.DatumShiftNorth)
	assert.Equal(t, -2.5, h.DatumShiftEast)
	assert.Equal(t, "DISK1", h.DiskName)
	assert.Equal(t, "chart.qct", h.AssociatedData)

	require.True(t, h.License.Present)
	assert.Equal(t, int32(4242), h.License.Identifier)
	assert.Equal(t, "Public Domain", h.License.Description)
	require.True(t, h.License.HasSerial)
	assert.Equal(t, int32(99887766), h.License.Serial)

	require.Len(t, h.Outline, 3)
	assert.Equal(t, OutlinePoint{Lat: 10, Lon: -70}, h.Outline[0])
	assert.Equal(t, OutlinePoint{Lat: 9.5, Lon: -69.8}, h.Outline[2])

	assert.Equal(t, Poly10{C: 10}, h.Eas)
	assert.Equal(t, Poly10{C: 20}, h.Nor)
	assert.Equal(t, Poly10{C: 30}, h.Lat)
	assert.Equal(t, Poly10{C: 40}, h.Lon)

	assert.Equal(t, uint32(0x00112233), h.Palette[5])

	require.Len(t, h.TileIndex, 2)
	assert.Equal(t, uint32(900), h.TileIndex[0])
	assert.Equal(t, uint32(901), h.TileIndex[1])
}
