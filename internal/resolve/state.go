package resolve

// State is a step of the free-download resolution.
type State int

const (
	// StateNotAvailable is terminal: the release has no free download.
	StateNotAvailable State = iota

	// StateDirectReady is terminal: the release page links its download page.
	StateDirectReady

	// StateRequestingMailbox covers provisioning an address and submitting
	// the email form.
	StateRequestingMailbox

	// StateAwaitingDelivery polls the mailbox for Bandcamp's message.
	StateAwaitingDelivery

	// StateDelivered is terminal: the download page link arrived by email.
	StateDelivered

	// StateFailed is terminal: resolution stopped with an error.
	StateFailed
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateNotAvailable:
		return "not_available"
	case StateDirectReady:
		return "direct_ready"
	case StateRequestingMailbox:
		return "requesting_mailbox"
	case StateAwaitingDelivery:
		return "awaiting_delivery"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateNotAvailable, StateDirectReady, StateDelivered, StateFailed:
		return true
	}
	return false
}

// Result is the outcome of a successful resolution.
//
// DownloadPageURL is empty only for StateNotAvailable.
type Result struct {
	State           State
	DownloadPageURL string
}

// Transition is reported to an Observer each time the resolver changes
// state.
type Transition struct {
	State State

	// Mailbox is the provisioned address once one exists.
	Mailbox string

	// Attempt is the delivery check about to run, only set while awaiting
	// delivery.
	Attempt uint64

	// DownloadPageURL is set on the terminal success states.
	DownloadPageURL string

	// Err is set on StateFailed.
	Err error
}

// Observer receives state transitions.
type Observer func(Transition)
