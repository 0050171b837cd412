// Package resolve drives the acquisition of a release's download page.
//
// A release parsed by the bandcamp package is in one of three free-download
// states. The Resolver maps them onto a small state machine:
//
//	Unavailable  -> NotAvailable
//	DirectLink   -> DirectReady(url)
//	EmailGated   -> RequestingMailbox -> AwaitingDelivery -> Delivered(url)
//
// Any step of the email path may end in Failed. Transitions are reported to
// an optional Observer so front-ends can show what is being waited on.
//
// Errors are classified with errors.Is against ErrResolve and its specific
// kinds ErrEmailRequestRejected, ErrEmailTimeout and ErrMissingDeliveryLink.
package resolve
