package bandcamp

import (
	"errors"
	"fmt"
)

// ErrParse is the parent of every error returned for malformed or incomplete
// page data. Use errors.Is(err, ErrParse) to classify parse failures.
var ErrParse = errors.New("parse page data")

var (
	// ErrUnrecognizedKind is returned when the linked-data type is neither an
	// album nor a track.
	ErrUnrecognizedKind = fmt.Errorf("%w: unrecognized item kind", ErrParse)

	// ErrMissingField is returned when an embedded payload or one of its
	// required fields is absent or null.
	ErrMissingField = fmt.Errorf("%w: missing field", ErrParse)

	// ErrInvalidDate is returned when the publish date does not follow
	// Bandcamp's "30 Jan 2022 00:00:00 GMT" layout.
	ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrParse)
)

// ErrNoAlbumFound is returned when no album or track URLs can be found on a page.
//
// This typically occurs when:
//   - The URL is not a valid Bandcamp artist/music page
//   - The artist has no published albums or tracks
//   - The HTML structure has changed unexpectedly
var ErrNoAlbumFound = errors.New("no album found on page")

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
