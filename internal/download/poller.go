package download

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/bandcamp-free-downloader/internal/bandcamp"
	"github.com/handiism/bandcamp-free-downloader/internal/poll"
)

// DefaultStatusPolicy allows 30 status checks one second apart.
var DefaultStatusPolicy = poll.Policy{
	Interval:    time.Second,
	MaxAttempts: 30,
}

const assetPath = "download_items.0.downloads.flac.url"

// PageFetcher is the part of the HTTP client the Poller needs.
type PageFetcher interface {
	GetString(ctx context.Context, rawURL string) (string, error)
	GetJSON(ctx context.Context, rawURL string, v any) error
}

// Poller resolves a download page into the URL of the FLAC asset.
//
// Bandcamp prepares free downloads on demand. The download page carries a
// preparation URL; its status-check variant answers either "ok" with the
// final URL, or with a retry URL to check next. The Poller follows that
// chain under a bounded policy.
//
// Example:
//
//	poller := NewPoller(httpClient, extractor)
//	assetURL, err := poller.Resolve(ctx, "https://bandcamp.com/download?id=123&sig=abc")
//	if errors.Is(err, ErrStatusCheckExhausted) {
//	    // Bandcamp did not finish preparing the file in time
//	}
type Poller struct {
	http      PageFetcher
	extractor *bandcamp.Extractor
	policy    poll.Policy
	logger    zerolog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithStatusPolicy sets the status-check bound and interval.
func WithStatusPolicy(p poll.Policy) PollerOption {
	return func(pl *Poller) { pl.policy = p }
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger zerolog.Logger) PollerOption {
	return func(pl *Poller) { pl.logger = logger }
}

// NewPoller creates a Poller fetching pages through http.
func NewPoller(http PageFetcher, extractor *bandcamp.Extractor, opts ...PollerOption) *Poller {
	p := &Poller{
		http:      http,
		extractor: extractor,
		policy:    DefaultStatusPolicy,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type statusReply struct {
	Result      string `json:"result"`
	DownloadURL string `json:"download_url"`
	RetryURL    string `json:"retry_url"`
}

// Resolve returns the asset URL behind downloadPageURL.
//
// Every returned error wraps ErrTransfer, network failures included, except
// when ctx is cancelled.
func (p *Poller) Resolve(ctx context.Context, downloadPageURL string) (string, error) {
	page, err := p.http.GetString(ctx, downloadPageURL)
	if err != nil {
		return "", transferError(ctx, "fetch download page", err)
	}

	data, ok := p.extractor.PageData(page)
	if !ok {
		return "", ErrMissingPageData
	}

	next := data.Get(assetPath).String()
	if next == "" {
		return "", fmt.Errorf("%w: %s missing from page data", ErrMissingAssetURL, assetPath)
	}

	assetURL, err := poll.Until(ctx, p.policy, func(ctx context.Context, attempt uint64) (string, bool, error) {
		statusURL := StatusURL(next)
		p.logger.Debug().Uint64("attempt", attempt).Str("url", statusURL).Msg("Checking download status")

		var reply statusReply
		if err := p.http.GetJSON(ctx, statusURL, &reply); err != nil {
			return "", false, transferError(ctx, "check download status", err)
		}

		if reply.Result == "ok" {
			if reply.DownloadURL == "" {
				return "", false, fmt.Errorf("%w: status check succeeded without download_url", ErrMissingAssetURL)
			}
			return reply.DownloadURL, true, nil
		}

		if reply.RetryURL == "" {
			return "", false, fmt.Errorf("%w: result %q", ErrMissingRetryURL, reply.Result)
		}
		next = reply.RetryURL
		return "", false, nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		return "", fmt.Errorf("%w: %w", ErrStatusCheckExhausted, err)
	}
	if err != nil {
		return "", err
	}

	return assetURL, nil
}

// StatusURL turns a preparation or retry URL into its status-check form.
func StatusURL(rawURL string) string {
	u := strings.ReplaceAll(rawURL, "/download/", "/statdownload/")
	if strings.Contains(u, "?") {
		return u + "&.vrs=1"
	}
	return u + "?.vrs=1"
}
