package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrTransfer is wrapped by every failure to locate or stream an artifact,
// including network and disk failures. Cancellation is not a transfer failure.
var ErrTransfer = errors.New("transfer artifact")

var (
	// ErrMissingPageData is returned when the download page has no
	// #pagedata blob.
	ErrMissingPageData = fmt.Errorf("%w: download page has no page data", ErrTransfer)

	// ErrMissingAssetURL is returned when the page data or a completed
	// status check carries no asset URL.
	ErrMissingAssetURL = fmt.Errorf("%w: no FLAC download URL", ErrTransfer)

	// ErrMissingRetryURL is returned when a pending status check does not
	// say where to check next.
	ErrMissingRetryURL = fmt.Errorf("%w: status check has no retry URL", ErrTransfer)

	// ErrStatusCheckExhausted is returned when the asset was not ready
	// within the allowed number of status checks.
	ErrStatusCheckExhausted = fmt.Errorf("%w: asset not ready", ErrTransfer)

	// ErrUnexpectedStatus is returned when the asset request is answered
	// outside the 2xx range.
	ErrUnexpectedStatus = fmt.Errorf("%w: unexpected HTTP status", ErrTransfer)

	// ErrMissingContentLength is returned when the asset response does not
	// announce its length.
	ErrMissingContentLength = fmt.Errorf("%w: missing content length", ErrTransfer)

	// ErrShortTransfer is returned when the body ends before the announced
	// length.
	ErrShortTransfer = fmt.Errorf("%w: body shorter than content length", ErrTransfer)
)

// ErrAlreadyExists is returned, inside an *fs.PathError, when the artifact
// destination is taken. It matches fs.ErrExist.
var ErrAlreadyExists = fmt.Errorf("artifact already exists: %w", fs.ErrExist)

// transferError tags err, a network or disk failure of op, with ErrTransfer.
// Once ctx is done the failure is a consequence of cancellation and is only
// annotated.
func transferError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransfer, op, err)
}
