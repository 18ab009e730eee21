package qct

import (
	"errors"

	"github.com/arbcharts/qct/image"
	"github.com/arbcharts/qct/internal/wire"
	"github.com/arbcharts/qct/metadata"
	"github.com/arbcharts/qct/tile"
)

// Error kinds returned by Open and LoadImage. Query methods never return
// an error; an out-of-range query reports false or an empty value. Tile
// decode failures never propagate one of these; a tile that cannot be
// decoded is silently left blank because the format carries no checksum
// and a partial chart is more useful than no chart at all.
var (
	// ErrBadMagic is returned when the first four bytes of a file do not
	// match the QCT magic number.
	ErrBadMagic = errors.New("qct: bad magic number")

	// ErrTruncated is returned when end-of-file is encountered mid-field.
	ErrTruncated = errors.New("qct: truncated file")

	// ErrAllocationFailure is returned when a buffer allocation is
	// refused, for example an image dimension that overflows int.
	ErrAllocationFailure = errors.New("qct: allocation failure")

	// ErrOutOfRange names the out-of-range query kind. No method returns
	// it: query methods given an out-of-range index report ok=false
	// instead, and never abort a load.
	ErrOutOfRange = errors.New("qct: index out of range")

	// ErrUnsupportedMode marks the reserved tile packing byte 128. It is
	// never returned to a caller: LoadImage absorbs it and leaves the
	// affected tile blank.
	ErrUnsupportedMode = errors.New("qct: unsupported tile packing mode")

	// ErrMalformedPrefixTable marks a prefix-code table that fails
	// validation. Like ErrUnsupportedMode it is absorbed during
	// LoadImage rather than returned.
	ErrMalformedPrefixTable = errors.New("qct: malformed prefix-code table")
)

// translateLoadError maps the lower layers' own sentinel errors onto the
// kinds documented above, so a caller of Open only needs to know this
// package's vocabulary.
func translateLoadError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, metadata.ErrBadMagic):
		return ErrBadMagic
	case errors.Is(err, wire.ErrTruncated):
		return ErrTruncated
	case errors.Is(err, image.ErrAllocationFailure):
		return ErrAllocationFailure
	case errors.Is(err, tile.ErrUnsupportedMode), errors.Is(err, tile.ErrMalformedPrefixTable):
		// Never actually reaches a caller: LoadImage absorbs per-tile
		// errors before they can propagate this far.
		return err
	default:
		return err
	}
}
