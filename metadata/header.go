/*
Package metadata implements the QCT fixed-layout header and the
extended-metadata, datum-shift, license, outline, georef, palette,
interpolation-matrix, and tile-index sub-records that follow it.

Every multi-byte scalar is little-endian; every string is pointed to by a
32-bit absolute offset from the start of the file. Load reads these fields
in the exact order the format's wire layout defines them.
*/
package metadata

import (
	"errors"

	"github.com/arbcharts/qct/internal/wire"
)

// Magic is the magic number every QCT file begins with.
const Magic = 0x1423D5FF

// ErrBadMagic is returned by Load when the first four bytes of the
// stream do not match Magic.
var ErrBadMagic = errors.New("metadata: bad magic number")

// Poly10 is one bivariate cubic polynomial in x and y, stored as the ten
// coefficients in the order the format lays them out on the wire: the
// constant term, then the Y and X linear terms, then the three quadratic
// terms (YY, XY, XX), then the four cubic terms (YYY, XYY, XXY, XXX).
type Poly10 struct {
	C, Y, X, YY, XY, XX, YYY, XYY, XXY, XXX float64
}

// Eval evaluates the polynomial at (x, y) as a plain monomial sum; Horner's
// rule buys nothing for a fixed ten-term form.
func (p Poly10) Eval(x, y float64) float64 {
	return p.C + p.Y*y + p.X*x +
		p.YY*y*y + p.XY*x*y + p.XX*x*x +
		p.YYY*y*y*y + p.XYY*x*y*y + p.XXY*x*x*y + p.XXX*x*x*x
}

func readPoly10(r *wire.Reader) (Poly10, error) {
	var p Poly10
	fields := []*float64{&p.C, &p.Y, &p.X, &p.YY, &p.XY, &p.XX, &p.YYY, &p.XYY, &p.XXY, &p.XXX}
	for _, f := range fields {
		v, err := r.ReadF64()
		if err != nil {
			return Poly10{}, err
		}
		*f = v
	}
	return p, nil
}

// OutlinePoint is one vertex of the map's boundary polygon.
type OutlinePoint struct {
	Lat, Lon float64
}

// License holds the optional license sub-record. Present is false when the
// license block offset in the file was zero, in which case the other
// fields are zero-valued.
type License struct {
	Present     bool
	Identifier  int32
	Description string
	HasSerial   bool
	Serial      int32
}

// Header is everything Load reads: descriptive fields, georeferencing
// coefficients, the palette, the interpolation matrix, and the tile index.
type Header struct {
	Version               uint32
	WidthTiles            uint32
	HeightTiles           uint32
	Title, Name, Ident    string
	Edition, Revision     string
	Keywords, Copyright   string
	Scale, Datum          string
	Depths, Heights       string
	Projection            string
	Flags                 uint32
	OrigFilename          string
	OrigFileSize          uint32
	OrigFileTime          uint32 // seconds since the Unix epoch
	Unknown1              uint32
	MapType               string
	DatumShiftNorth       float64
	DatumShiftEast        float64
	DiskName              string
	Unknown2, Unknown3    uint32
	License               License
	AssociatedData        string
	Unknown6              uint32
	Outline               []OutlinePoint
	Eas, Nor, Lat, Lon    Poly10
	Palette               [256]uint32
	Interp                [128][128]byte
	TileIndex             []uint32 // row-major by tile, width-major within a row
}

// Load reads a Header from r, which must be positioned at the very start
// of a QCT file. On return the stream position is immediately after the
// tile index, i.e. at the start of the tile data.
func Load(r *wire.Reader) (*Header, error) {
	magic, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrBadMagic
	}

	h := &Header{}

	if h.Version, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if h.WidthTiles, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if h.HeightTiles, err = r.ReadU32(); err != nil {
		return nil, err
	}

	strFields := []*string{
		&h.Title, &h.Name, &h.Ident, &h.Edition, &h.Revision,
		&h.Keywords, &h.Copyright, &h.Scale, &h.Datum,
		&h.Depths, &h.Heights, &h.Projection,
	}
	for _, f := range strFields {
		if *f, err = r.ReadCStringAtOffset(); err != nil {
			return nil, err
		}
	}

	if h.Flags, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if h.OrigFilename, err = r.ReadCStringAtOffset(); err != nil {
		return nil, err
	}
	if h.OrigFileSize, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if h.OrigFileTime, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if h.Unknown1, err = r.ReadU32(); err != nil {
		return nil, err
	}

	if err := h.loadExtendedMetadata(r); err != nil {
		return nil, err
	}

	if err := h.loadOutline(r); err != nil {
		return nil, err
	}

	if h.Eas, err = readPoly10(r); err != nil {
		return nil, err
	}
	if h.Nor, err = readPoly10(r); err != nil {
		return nil, err
	}
	if h.Lat, err = readPoly10(r); err != nil {
		return nil, err
	}
	if h.Lon, err = readPoly10(r); err != nil {
		return nil, err
	}

	for i := range h.Palette {
		if h.Palette[i], err = r.ReadU32(); err != nil {
			return nil, err
		}
	}

	for i := range h.Interp {
		var row [128]byte
		if err := r.ReadFull(row[:]); err != nil {
			return nil, err
		}
		h.Interp[i] = row
	}

	numTiles := int(h.WidthTiles) * int(h.HeightTiles)
	h.TileIndex = make([]uint32, numTiles)
	for i := range h.TileIndex {
		if h.TileIndex[i], err = r.ReadU32(); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// loadExtendedMetadata reads the block reachable via the extended-metadata
// offset field: map type, datum shift, disk name, an optional license
// sub-record, and associated-data string.
func (h *Header) loadExtendedMetadata(r *wire.Reader) error {
	extOffset, err := r.ReadU32()
	if err != nil {
		return err
	}

	return r.WithSavedPosition(func() error {
		if err := r.SeekAbs(int64(extOffset)); err != nil {
			return err
		}

		if h.MapType, err = r.ReadCStringAtOffset(); err != nil {
			return err
		}

		dsOffset, err := r.ReadU32()
		if err != nil {
			return err
		}
		if err := r.WithSavedPosition(func() error {
			if err := r.SeekAbs(int64(dsOffset)); err != nil {
				return err
			}
			if h.DatumShiftNorth, err = r.ReadF64(); err != nil {
				return err
			}
			if h.DatumShiftEast, err = r.ReadF64(); err != nil {
				return err
			}
			return nil
		}); err != nil {
			return err
		}

		if h.DiskName, err = r.ReadCStringAtOffset(); err != nil {
			return err
		}
		if h.Unknown2, err = r.ReadU32(); err != nil {
			return err
		}
		if h.Unknown3, err = r.ReadU32(); err != nil {
			return err
		}

		licenseOffset, err := r.ReadU32()
		if err != nil {
			return err
		}
		if licenseOffset != 0 {
			if err := r.WithSavedPosition(func() error {
				if err := r.SeekAbs(int64(licenseOffset)); err != nil {
					return err
				}
				id, err := r.ReadI32()
				if err != nil {
					return err
				}
				h.License.Present = true
				h.License.Identifier = id
				if _, err := r.ReadU32(); err != nil { // unknown
					return err
				}
				if _, err := r.ReadU32(); err != nil { // unknown
					return err
				}
				if h.License.Description, err = r.ReadCStringAtOffset(); err != nil {
					return err
				}

				serialOffset, err := r.ReadU32()
				if err != nil {
					return err
				}
				if serialOffset != 0 {
					if err := r.WithSavedPosition(func() error {
						if err := r.SeekAbs(int64(serialOffset)); err != nil {
							return err
						}
						serial, err := r.ReadI32()
						if err != nil {
							return err
						}
						h.License.HasSerial = true
						h.License.Serial = serial
						return nil
					}); err != nil {
						return err
					}
				}
				if _, err := r.ReadU32(); err != nil { // unknown
					return err
				}
				return nil
			}); err != nil {
				return err
			}
		}

		if h.AssociatedData, err = r.ReadCStringAtOffset(); err != nil {
			return err
		}
		if h.Unknown6, err = r.ReadU32(); err != nil {
			return err
		}
		return nil
	})
}

func (h *Header) loadOutline(r *wire.Reader) error {
	numOutline, err := r.ReadU32()
	if err != nil {
		return err
	}
	h.Outline = make([]OutlinePoint, numOutline)

	outlineOffset, err := r.ReadU32()
	if err != nil {
		return err
	}

	return r.WithSavedPosition(func() error {
		if err := r.SeekAbs(int64(outlineOffset)); err != nil {
			return err
		}
		for i := range h.Outline {
			lat, err := r.ReadF64()
			if err != nil {
				return err
			}
			lon, err := r.ReadF64()
			if err != nil {
				return err
			}
			h.Outline[i] = OutlinePoint{Lat: lat, Lon: lon}
		}
		return nil
	})
}
