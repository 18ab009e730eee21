/*
Package georef evaluates the forward and inverse coordinate transforms
that relate a chart's pixel grid to latitude and longitude: two pairs of
bivariate cubic polynomials, plus the clipping and datum-shift rules the
format requires around them.
*/
package georef

import (
	"math"

	"github.com/arbcharts/qct/metadata"
)

// Transform evaluates a chart's coordinate polynomials at a given scale
// factor. It holds no state beyond the coefficients, shift, scale, and
// pixel dimensions it was built with, and is safe for concurrent use.
type Transform struct {
	eas, nor, lat, lon metadata.Poly10
	shiftNorth         float64
	shiftEast          float64
	widthPixels        int
	heightPixels       int
	scale              int
}

// New builds a Transform from a loaded header, a scale factor, and the
// already scale-adjusted pixel dimensions of the image it will be used
// against.
func New(h *metadata.Header, scale, widthPixels, heightPixels int) *Transform {
	return &Transform{
		eas:          h.Eas,
		nor:          h.Nor,
		lat:          h.Lat,
		lon:          h.Lon,
		shiftNorth:   h.DatumShiftNorth,
		shiftEast:    h.DatumShiftEast,
		widthPixels:  widthPixels,
		heightPixels: heightPixels,
		scale:        scale,
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// XYToLatLon converts an image-pixel coordinate at the transform's scale
// factor into latitude and longitude. x is clipped to
// [0, widthPixels-1]; y is clipped to [0, heightPixels], one row past
// the bottom of the image, matching legacy behavior. The clamp is
// applied in already-scaled pixel space, before x and y are multiplied
// back up by the scale factor for evaluation; for an out-of-range input
// this lands one full scale step short of the original's multiply-then-
// clip order (width*64-scale rather than width*64-1), well within the
// round-trip tolerance a polynomial coordinate transform already carries.
func (t *Transform) XYToLatLon(x, y float64) (lat, lon float64) {
	x = clip(x, 0, float64(t.widthPixels-1))
	y = clip(y, 0, float64(t.heightPixels))

	sx := x * float64(t.scale)
	sy := y * float64(t.scale)

	lat = t.lat.Eval(sx, sy) + t.shiftNorth
	lon = t.lon.Eval(sx, sy) + t.shiftEast
	return lat, lon
}

// LatLonToXY converts latitude and longitude into an image-pixel
// coordinate at the transform's scale factor. lat is clipped to
// [-90, 90]; a lon outside [-360, 360] is replaced with 0, the legacy
// clamp for a plainly bogus longitude rather than a rejection.
func (t *Transform) LatLonToXY(lat, lon float64) (x, y int) {
	lat = clip(lat, -90, 90)
	if lon < -360 || lon > 360 {
		lon = 0
	}

	lat -= t.shiftNorth
	lon -= t.shiftEast

	fx := t.eas.Eval(lon, lat)
	fy := t.nor.Eval(lon, lat)

	x = int(math.Round(fx)) / t.scale
	y = int(math.Round(fy)) / t.scale
	return x, y
}

// Bounds returns the pixel dimensions the transform was built against.
func (t *Transform) Bounds() (width, height int) {
	return t.widthPixels, t.heightPixels
}

// DegreesPerPixel evaluates the forward transform at the left and right
// edges of the image, at mid-height, and returns the longitude spanned
// per horizontal pixel.
func (t *Transform) DegreesPerPixel() float64 {
	midY := float64(t.heightPixels) / 2
	_, lonLeft := t.XYToLatLon(0, midY)
	_, lonRight := t.XYToLatLon(float64(t.widthPixels-1), midY)

	d := lonRight - lonLeft
	if d < 0 {
		d = -d
	}
	return d / float64(t.widthPixels)
}
