package georef

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arbcharts/qct/metadata"
)

// TestRoundTrip is scenario S6: a purely linear coefficient set maps
// (1000, 500) to (lat=-5e-4, lon=1e-3) forward, and the matching inverse
// coefficients map that pair straight back.
func TestRoundTrip(t *testing.T) {
	h := &metadata.Header{
		Lon: metadata.Poly10{X: 1e-6},
		Lat: metadata.Poly10{Y: -1e-6},
		Eas: metadata.Poly10{X: 1e6},
		Nor: metadata.Poly10{Y: -1e6},
	}

	tr := New(h, 1, 100000, 100000)

	lat, lon := tr.XYToLatLon(1000, 500)
	assert.InDelta(t, -5e-4, lat, 1e-9)
	assert.InDelta(t, 1e-3, lon, 1e-9)

	x, y := tr.LatLonToXY(lat, lon)
	assert.InDelta(t, 1000, x, 1)
	assert.InDelta(t, 500, y, 1)
}

func TestLatLonToXYClampsOutOfRangeLongitude(t *testing.T) {
	h := &metadata.Header{Eas: metadata.Poly10{C: 1}, Nor: metadata.Poly10{C: 1}}
	tr := New(h, 1, 10, 10)

	// lon outside [-360, 360] is replaced with 0, not clipped to an edge.
	x1, y1 := tr.LatLonToXY(0, 1000)
	x0, y0 := tr.LatLonToXY(0, 0)
	assert.Equal(t, x0, x1)
	assert.Equal(t, y0, y1)
}

func TestDegreesPerPixel(t *testing.T) {
	h := &metadata.Header{Lon: metadata.Poly10{X: 1e-6}}
	tr := New(h, 1, 1000, 1000)

	assert.InDelta(t, 9.99e-7, tr.DegreesPerPixel(), 1e-9)
}
