package download

import (
	"time"

	"github.com/samber/lo"

	"github.com/handiism/bandcamp-free-downloader/internal/model"
)

// Outcome is the result of processing one item.
type Outcome int

const (
	// OutcomeDownloaded means the artifact was saved.
	OutcomeDownloaded Outcome = iota

	// OutcomeExists means the artifact, or its unpacked folder, was already
	// present.
	OutcomeExists

	// OutcomeNoFreeDownload means the release cannot be downloaded for free.
	OutcomeNoFreeDownload

	// OutcomeFailed means processing stopped with an error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "Downloaded"
	case OutcomeExists:
		return "Exists"
	case OutcomeNoFreeDownload:
		return "NoFreeDownload"
	case OutcomeFailed:
		return "Failed"
	}
	return "Unknown"
}

// ItemResult records what happened to one input item.
type ItemResult struct {
	URL     string
	RunID   string
	Outcome Outcome

	// Release is nil when the page could not be fetched or parsed.
	Release *model.ReleaseInfo

	// Path is the artifact path, empty when the release was never parsed.
	Path string

	// Err is set when Outcome is OutcomeFailed.
	Err error

	Elapsed time.Duration
}

// Summary collects the results of a batch in processing order.
type Summary struct {
	Items []ItemResult
}

// Count returns the number of items with outcome o.
func (s *Summary) Count(o Outcome) int {
	return lo.CountBy(s.Items, func(item ItemResult) bool {
		return item.Outcome == o
	})
}

// Failed reports whether any item failed.
func (s *Summary) Failed() bool {
	return s.Count(OutcomeFailed) > 0
}
