/*
Package qct reads QuickChart (QCT) raster nautical chart files: a
fixed-layout header and extended metadata, a palette and down-sampling
interpolation matrix, a tile index, and per-tile compressed pixel data.

A Map is opened from a path, optionally decodes its image at a chosen
scale factor, and answers georeferencing and outline queries against
its metadata. It is not safe for concurrent mutation; concurrent reads
of an already-decoded image are fine.
*/
package qct

import (
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	qctimage "github.com/arbcharts/qct/image"
	"github.com/arbcharts/qct/georef"
	"github.com/arbcharts/qct/internal/wire"
	"github.com/arbcharts/qct/metadata"
	"github.com/arbcharts/qct/tile"
)

// Map is a single opened QCT file: its metadata is read eagerly by
// Open; its pixel data is decoded lazily by LoadImage.
type Map struct {
	path   string
	f      *os.File
	header *metadata.Header
	xform  *georef.Transform
	img    *image.Paletted
	scale  int
	log    *logrus.Logger
}

// Open reads a QCT file's header and metadata. If headerOnly is false
// it also decodes the image at the given scale factor, equivalent to
// calling LoadImage immediately after Open succeeds. log receives
// decode diagnostics; a nil log discards them.
func Open(path string, headerOnly bool, scale int, log *logrus.Logger) (*Map, error) {
	if log == nil {
		log = logrus.New()
		log.Out = ioutil.Discard
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	h, err := metadata.Load(wire.NewReader(f))
	if err != nil {
		f.Close()
		return nil, translateLoadError(err)
	}

	if scale <= 0 {
		scale = 1
	}

	m := &Map{
		path:   path,
		f:      f,
		header: h,
		log:    log,
		scale:  scale,
		xform:  newTransform(h, scale),
	}

	if !headerOnly {
		if err := m.LoadImage(scale); err != nil {
			f.Close()
			return nil, err
		}
	}

	return m, nil
}

// newTransform builds the georeferencing transform for scale from header
// fields alone, needing no decoded pixels: the same width/height a
// LoadImage at that scale would produce.
func newTransform(h *metadata.Header, scale int) *georef.Transform {
	outTile := tile.Size / scale
	width := int(h.WidthTiles) * outTile
	height := int(h.HeightTiles) * outTile
	return georef.New(h, scale, width, height)
}

// LoadImage decodes the chart's tiles into a pixel buffer at the given
// scale factor (1, 2, 4, or 8; it must evenly divide 64), replacing any
// previously loaded image. Metadata, palette, and georeferencing
// coefficients are unaffected and a different scale may be loaded
// later without reopening the file.
func (m *Map) LoadImage(scale int) error {
	if scale <= 0 {
		scale = 1
	}
	img, err := qctimage.Load(m.f, m.header, scale, m.log)
	if err != nil {
		return translateLoadError(err)
	}
	m.img = img
	m.scale = scale
	m.xform = newTransform(m.header, scale)
	return nil
}

// UnloadImage releases the decoded pixel buffer. Metadata and palette
// remain valid, georeferencing queries keep working against the last
// scale's pixel grid, and a subsequent LoadImage may use a different
// scale.
func (m *Map) UnloadImage() {
	m.img = nil
}

// Close releases the underlying file handle. The Map must not be used
// afterwards.
func (m *Map) Close() error {
	return m.f.Close()
}

func (m *Map) Title() string      { return m.header.Title }
func (m *Map) Name() string       { return m.header.Name }
func (m *Map) Identifier() string { return m.header.Ident }
func (m *Map) Edition() string    { return m.header.Edition }
func (m *Map) Revision() string   { return m.header.Revision }
func (m *Map) Keywords() string   { return m.header.Keywords }
func (m *Map) Copyright() string  { return m.header.Copyright }
func (m *Map) Projection() string { return m.header.Projection }
func (m *Map) Datum() string      { return m.header.Datum }

// License returns the chart's optional license sub-record. Present is
// false when the file carried no license block.
func (m *Map) License() metadata.License { return m.header.License }

// OutlineSize returns the number of vertices in the chart's boundary
// polygon.
func (m *Map) OutlineSize() int { return len(m.header.Outline) }

// OutlinePoint returns the i'th boundary vertex. ok is false, rather
// than an error, for an out-of-range index: out-of-range queries never
// abort a load.
func (m *Map) OutlinePoint(i int) (point metadata.OutlinePoint, ok bool) {
	if i < 0 || i >= len(m.header.Outline) {
		return metadata.OutlinePoint{}, false
	}
	return m.header.Outline[i], true
}

// OutlinePoints returns every boundary vertex.
func (m *Map) OutlinePoints() []metadata.OutlinePoint {
	return m.header.Outline
}

// ImageWidth returns the width in pixels of the currently loaded image,
// or 0 if none is loaded.
func (m *Map) ImageWidth() int {
	if m.img == nil {
		return 0
	}
	return m.img.Bounds().Dx()
}

// ImageHeight returns the height in pixels of the currently loaded
// image, or 0 if none is loaded.
func (m *Map) ImageHeight() int {
	if m.img == nil {
		return 0
	}
	return m.img.Bounds().Dy()
}

// Image returns the currently loaded image, or nil if none is loaded.
func (m *Map) Image() *image.Paletted {
	return m.img
}

// GetColour returns the red, green, and blue components of palette
// index i. Only indices 0..127 are reported valid here, matching the
// legacy getter; the remaining 128 entries exist and are usable as
// sub-palette targets but are not considered part of the "visible"
// palette by this accessor. Use RawPalette for unrestricted access.
func (m *Map) GetColour(i int) (r, g, b byte, ok bool) {
	if i < 0 || i > 127 {
		return 0, 0, 0, false
	}
	v := m.header.Palette[i]
	return byte(v >> 16), byte(v >> 8), byte(v), true
}

// RawPalette returns all 256 palette entries, each packed with blue in
// the least-significant byte and red in the third byte.
func (m *Map) RawPalette() [256]uint32 {
	return m.header.Palette
}

// XYToLatLon converts an image-pixel coordinate into latitude and
// longitude at the map's current scale factor (the scale passed to
// Open or the most recent LoadImage). No decoded image is required:
// the transform is built from header fields alone.
func (m *Map) XYToLatLon(x, y float64) (lat, lon float64) {
	return m.xform.XYToLatLon(x, y)
}

// LatLonToXY converts latitude and longitude into an image-pixel
// coordinate at the currently loaded scale factor.
func (m *Map) LatLonToXY(lat, lon float64) (x, y int) {
	return m.xform.LatLonToXY(lat, lon)
}

// DegreesPerPixel returns the longitude span of one horizontal pixel at
// the image's mid-height.
func (m *Map) DegreesPerPixel() float64 {
	return m.xform.DegreesPerPixel()
}

// CoordInsideMap reports whether (lat, lon) falls within the chart's
// boundary polygon. It requires at least three outline vertices; with
// fewer it reports false rather than failing, matching the legacy
// behavior of treating an under-specified outline as covering nothing.
func (m *Map) CoordInsideMap(lat, lon float64) bool {
	if len(m.header.Outline) < 3 {
		return false
	}

	verts := make([][2]uint32, len(m.header.Outline))
	for i, p := range m.header.Outline {
		verts[i] = [2]uint32{
			uint32((p.Lon + 180) * 1000),
			uint32((p.Lat + 90) * 1000),
		}
	}

	return pointInPolygon(verts, uint32((lon+180)*1000), uint32((lat+90)*1000))
}

// PrintMetadata writes a diagnostic dump of the chart's descriptive
// fields and georeferencing to w. When kml is true the boundary polygon
// is additionally emitted as a KML Placemark, suitable for loading into
// a mapping tool to sanity-check an outline visually.
func (m *Map) PrintMetadata(w io.Writer, kml bool) error {
	fmt.Fprintf(w, "Title:      %s\n", m.header.Title)
	fmt.Fprintf(w, "Name:       %s\n", m.header.Name)
	fmt.Fprintf(w, "Identifier: %s\n", m.header.Ident)
	fmt.Fprintf(w, "Edition:    %s\n", m.header.Edition)
	fmt.Fprintf(w, "Revision:   %s\n", m.header.Revision)
	fmt.Fprintf(w, "Keywords:   %s\n", m.header.Keywords)
	fmt.Fprintf(w, "Copyright:  %s\n", m.header.Copyright)
	fmt.Fprintf(w, "Scale:      %s\n", m.header.Scale)
	fmt.Fprintf(w, "Datum:      %s\n", m.header.Datum)
	fmt.Fprintf(w, "Depths:     %s\n", m.header.Depths)
	fmt.Fprintf(w, "Heights:    %s\n", m.header.Heights)
	fmt.Fprintf(w, "Projection: %s\n", m.header.Projection)
	fmt.Fprintf(w, "Tiles:      %dx%d\n", m.header.WidthTiles, m.header.HeightTiles)
	fmt.Fprintf(w, "Datum shift: north=%g east=%g\n", m.header.DatumShiftNorth, m.header.DatumShiftEast)
	if m.header.License.Present {
		fmt.Fprintf(w, "License:    %s (id %d)\n", m.header.License.Description, m.header.License.Identifier)
	}
	fmt.Fprintf(w, "Outline points: %d\n", len(m.header.Outline))

	if m.xform != nil {
		width, height := m.xform.Bounds()
		tlLat, tlLon := m.xform.XYToLatLon(0, 0)
		trLat, trLon := m.xform.XYToLatLon(float64(width-1), 0)
		blLat, blLon := m.xform.XYToLatLon(0, float64(height-1))
		brLat, brLon := m.xform.XYToLatLon(float64(width-1), float64(height-1))
		fmt.Fprintf(w, "TL  %f, %f\n", tlLat, tlLon)
		fmt.Fprintf(w, "TR  %f, %f\n", trLat, trLon)
		fmt.Fprintf(w, "BL  %f, %f\n", blLat, blLon)
		fmt.Fprintf(w, "BR  %f, %f\n", brLat, brLon)
		fmt.Fprintf(w, "Degrees/pixel: %g\n", m.xform.DegreesPerPixel())
	}

	if !kml || len(m.header.Outline) == 0 {
		return nil
	}

	doc, err := m.outlineKML()
	if err != nil {
		return err
	}
	_, err = w.Write(doc)
	return err
}

type kmlDocument struct {
	XMLName   xml.Name     `xml:"kml"`
	XMLNS     string       `xml:"xmlns,attr"`
	Name      string       `xml:"Document>name"`
	Placemark kmlPlacemark `xml:"Document>Placemark"`
}

type kmlPlacemark struct {
	Name       string        `xml:"name"`
	LineString kmlLineString `xml:"LineString"`
}

type kmlLineString struct {
	Coordinates string `xml:"coordinates"`
}

// outlineKML renders the chart's boundary polygon as a KML LineString,
// the same document shape qct.cpp's printMetadata hand-wrote to
// outline.kml, but built through encoding/xml so a chart name
// containing "&" or "<" comes out escaped instead of malformed.
func (m *Map) outlineKML() ([]byte, error) {
	var coords strings.Builder
	for i, p := range m.header.Outline {
		if i > 0 {
			coords.WriteByte(' ')
		}
		fmt.Fprintf(&coords, "%f,%f,0", p.Lon, p.Lat)
	}

	doc := kmlDocument{
		XMLNS: "http://earth.google.com/kml/2.0",
		Name:  m.header.Name,
		Placemark: kmlPlacemark{
			Name:       m.header.Name,
			LineString: kmlLineString{Coordinates: coords.String()},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
