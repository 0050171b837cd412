package resolve

import (
	"errors"
	"fmt"
)

// ErrResolve is wrapped by every error returned from Resolver.Resolve.
var ErrResolve = errors.New("resolve free download")

var (
	// ErrEmailRequestRejected is returned when Bandcamp does not acknowledge
	// the email download form.
	ErrEmailRequestRejected = fmt.Errorf("%w: email download request rejected", ErrResolve)

	// ErrEmailTimeout is returned when no message from Bandcamp arrived
	// within the polling budget.
	ErrEmailTimeout = fmt.Errorf("%w: download email not received", ErrResolve)

	// ErrMissingDeliveryLink is returned when Bandcamp's message carries no
	// usable link.
	ErrMissingDeliveryLink = fmt.Errorf("%w: download email has no link", ErrResolve)
)
