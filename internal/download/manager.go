package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/handiism/bandcamp-free-downloader/internal/bandcamp"
	"github.com/handiism/bandcamp-free-downloader/internal/cache"
	"github.com/handiism/bandcamp-free-downloader/internal/config"
	"github.com/handiism/bandcamp-free-downloader/internal/http"
	ioutils "github.com/handiism/bandcamp-free-downloader/internal/io"
	"github.com/handiism/bandcamp-free-downloader/internal/mailbox"
	"github.com/handiism/bandcamp-free-downloader/internal/model"
	"github.com/handiism/bandcamp-free-downloader/internal/poll"
	"github.com/handiism/bandcamp-free-downloader/internal/resolve"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// TransferEvent reports the byte progress of the artifact being streamed.
type TransferEvent struct {
	// Name is the artifact file name.
	Name     string
	Received int64
	Total    int64

	// Done is set once, after the last byte was written or the transfer
	// failed.
	Done bool
	Err  error
}

// Manager coordinates free downloads.
//
// Items are processed one at a time. Page fetches are spaced by the
// configured request interval, and each item goes through:
//
//  1. Fetch and parse the release page
//  2. Skip it if the artifact (or its unpacked folder) exists
//  3. Resolve its download page, by email if needed
//  4. Resolve the asset URL through the status-check chain
//  5. Stream the asset to disk
//  6. Save the cover art (optional)
type Manager struct {
	settings     *config.Settings
	httpClient   *http.Client
	mailbox      mailbox.Provider
	clock        poll.Clock
	extractor    *bandcamp.Extractor
	discography  *bandcamp.Discography
	resolver     *resolve.Resolver
	poller       *Poller
	streamer     *Streamer
	imageService *ioutils.ImageService
	cache        *cache.Cache
	limiter      *rate.Limiter
	logger       zerolog.Logger

	totalBytes    atomic.Int64
	receivedBytes atomic.Int64
	totalItems    atomic.Int32
	doneItems     atomic.Int32

	onProgress func(ProgressEvent)
	onTransfer func(TransferEvent)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the diagnostic logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithHTTPClient replaces the HTTP client built from the settings.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithMailbox replaces the mailbox client built from the settings.
func WithMailbox(p mailbox.Provider) Option {
	return func(m *Manager) { m.mailbox = p }
}

// WithClock sets the clock both polling loops wait on.
func WithClock(c poll.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithTransferObserver sets a callback receiving the byte progress of every
// artifact.
func WithTransferObserver(fn func(TransferEvent)) Option {
	return func(m *Manager) { m.onTransfer = fn }
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent), opts ...Option) (*Manager, error) {
	m := &Manager{
		settings:   settings,
		clock:      poll.RealClock{},
		logger:     zerolog.Nop(),
		onProgress: onProgress,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.httpClient == nil {
		m.httpClient = http.NewClient(
			http.WithUserAgent(settings.UserAgent),
			http.WithTimeout(settings.HTTPTimeout.Duration),
		)
	}
	if m.mailbox == nil {
		client, err := mailbox.NewClient(m.httpClient, settings.Mailbox.APIURL)
		if err != nil {
			return nil, err
		}
		m.mailbox = client
	}

	m.extractor = bandcamp.NewExtractor()
	m.discography = bandcamp.NewDiscography()
	m.resolver = resolve.NewResolver(m.httpClient, m.mailbox,
		resolve.WithDeliveryPolicy(poll.Policy{
			Interval:    settings.Mailbox.PollInterval.Duration,
			MaxAttempts: settings.Mailbox.PollAttempts,
			DelayFirst:  true,
			Clock:       m.clock,
		}),
		resolve.WithSenderDomain(settings.Mailbox.SenderDomain),
		resolve.WithLogger(m.logger.With().Str("component", "resolver").Logger()),
		resolve.WithObserver(m.onResolveTransition),
	)
	m.poller = NewPoller(m.httpClient, m.extractor,
		WithStatusPolicy(poll.Policy{
			Interval:    settings.Download.StatusCheckInterval.Duration,
			MaxAttempts: settings.Download.StatusCheckAttempts,
			Clock:       m.clock,
		}),
		WithPollerLogger(m.logger.With().Str("component", "poller").Logger()),
	)
	m.streamer = NewStreamer(m.httpClient,
		WithQueueSize(settings.Download.QueueSize),
		WithChunkSize(settings.Download.ChunkSize),
		WithStreamerLogger(m.logger.With().Str("component", "streamer").Logger()),
	)
	m.imageService = ioutils.NewImageService()
	m.cache = cache.New()

	interval := settings.RequestInterval.Duration
	m.limiter = rate.NewLimiter(lo.Ternary(interval > 0, rate.Every(interval), rate.Inf), 1)

	return m, nil
}

// Close releases background resources.
func (m *Manager) Close() {
	m.cache.Stop()
}

// GetProgress returns the byte progress of the current artifact and the
// item progress of the batch.
func (m *Manager) GetProgress() (received, total int64, itemsDone, itemsTotal int32) {
	return m.receivedBytes.Load(), m.totalBytes.Load(), m.doneItems.Load(), m.totalItems.Load()
}

// Run expands inputs into items and processes them in order.
//
// Inputs are item URLs or artist URLs; artist pages are expanded into their
// releases. With fail_fast unset, a failing input or item is recorded in the
// summary and the batch goes on. With fail_fast set, the first failure stops
// the batch and is returned. Cancellation always stops the batch.
func (m *Manager) Run(ctx context.Context, inputs []string) (*Summary, error) {
	summary := &Summary{}

	var items []string
	for _, input := range inputs {
		expanded, err := m.expand(ctx, input)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error getting items from %s: %v", input, err), Level: LevelError})
			summary.Items = append(summary.Items, ItemResult{URL: input, Outcome: OutcomeFailed, Err: err})
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			if m.settings.FailFast {
				return summary, err
			}
			continue
		}
		items = append(items, expanded...)
	}
	items = lo.Uniq(items)

	m.totalItems.Store(int32(len(items)))
	m.doneItems.Store(0)

	for _, item := range items {
		res := m.ProcessItem(ctx, item)
		summary.Items = append(summary.Items, res)
		m.doneItems.Add(1)

		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if res.Outcome == OutcomeFailed && m.settings.FailFast {
			return summary, res.Err
		}
	}

	return summary, nil
}

// expand returns the item URLs an input stands for.
func (m *Manager) expand(ctx context.Context, input string) ([]string, error) {
	u, err := url.Parse(input)
	if err != nil {
		return nil, err
	}

	kind, err := ClassifyURL(u)
	if err != nil {
		return nil, err
	}
	if kind == PageItem {
		return []string{u.String()}, nil
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Checking for items from %s", input), Level: LevelInfo})

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	html, err := m.httpClient.GetString(ctx, u.String())
	if err != nil {
		return nil, err
	}

	hrefs, err := m.discography.GetItemURLs(html)
	if err != nil {
		return nil, err
	}

	items := lo.Map(m.discography.Resolve(u, hrefs), func(item *url.URL, _ int) string {
		return item.String()
	})
	for _, item := range items {
		m.progress(ProgressEvent{Message: fmt.Sprintf("  found %s", item), Level: LevelVerbose})
	}

	return items, nil
}

// release returns the parsed release page, fetching it at most once per
// cache period.
func (m *Manager) release(ctx context.Context, itemURL string) (*model.ReleaseInfo, error) {
	return m.cache.Releases.Fetch(itemURL, cache.DefaultReleaseTTL, func() (*model.ReleaseInfo, error) {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		html, err := m.httpClient.GetString(ctx, itemURL)
		if err != nil {
			return nil, err
		}

		return m.extractor.ParseRelease(html)
	})
}

// ProcessItem downloads one album or track page. Failures are reported in
// the result, never returned.
func (m *Manager) ProcessItem(ctx context.Context, itemURL string) ItemResult {
	start := time.Now()
	res := ItemResult{URL: itemURL, RunID: uuid.NewString()}
	logger := m.logger.With().Str("run_id", res.RunID).Str("item_url", itemURL).Logger()

	m.receivedBytes.Store(0)
	m.totalBytes.Store(0)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Checking %s", itemURL), Level: LevelInfo})

	outcome, err := m.processItem(ctx, logger, &res)
	res.Outcome = outcome
	res.Err = err
	res.Elapsed = time.Since(start)

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error processing %s: %v", itemURL, err), Level: LevelError})
	}
	event.Stringer("outcome", outcome).Dur("elapsed", res.Elapsed).Msg("Item processed")

	return res
}

func (m *Manager) processItem(ctx context.Context, logger zerolog.Logger, res *ItemResult) (Outcome, error) {
	info, err := m.release(ctx, res.URL)
	if err != nil {
		return OutcomeFailed, err
	}
	res.Release = info
	m.progress(ProgressEvent{Message: fmt.Sprintf("Found %s: %s", info.Kind, info.DatedName()), Level: LevelVerbose})

	folder := model.PublisherFolder(info, m.settings.MusicFolder, m.settings.NoArtistSubfolder)
	if err := ioutils.EnsureDir(folder); err != nil {
		return OutcomeFailed, fmt.Errorf("create publisher folder: %w", err)
	}

	dest := model.DownloadPath(info, folder)
	res.Path = dest
	logger.Debug().Str("path", dest).Stringer("free_download", info.FreeDownload.Status).Msg("Release parsed")

	if model.PathTaken(dest) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("  %s already exists!", dest), Level: LevelInfo})
		return OutcomeExists, nil
	}

	resolved, err := m.resolver.Resolve(ctx, info, res.URL)
	if err != nil {
		return OutcomeFailed, err
	}
	if resolved.State == resolve.StateNotAvailable {
		m.progress(ProgressEvent{Message: "  NO FREE DOWNLOAD", Level: LevelWarning})
		return OutcomeNoFreeDownload, nil
	}

	m.progress(ProgressEvent{Message: "  waiting for download to be ready...", Level: LevelInfo})
	assetURL, err := m.poller.Resolve(ctx, resolved.DownloadPageURL)
	if err != nil {
		return OutcomeFailed, err
	}
	logger.Debug().Str("asset_url", assetURL).Msg("Asset ready")

	if err := m.stream(ctx, assetURL, dest); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			m.progress(ProgressEvent{Message: fmt.Sprintf("  %s already exists!", dest), Level: LevelInfo})
			return OutcomeExists, nil
		}
		return OutcomeFailed, err
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(dest)), Level: LevelSuccess})

	if m.settings.SaveCoverArt && info.HasArtwork() {
		if err := m.saveCoverArt(ctx, info, dest); err != nil {
			logger.Warn().Err(err).Msg("Cover art not saved")
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving artwork for %s: %v", info.Name, err), Level: LevelWarning})
		}
	}

	return OutcomeDownloaded, nil
}

func (m *Manager) stream(ctx context.Context, assetURL, dest string) error {
	name := filepath.Base(dest)

	err := m.streamer.Stream(ctx, assetURL, dest, func(received, total int64) {
		m.receivedBytes.Store(received)
		m.totalBytes.Store(total)
		m.transfer(TransferEvent{Name: name, Received: received, Total: total})
	})

	received, total := m.receivedBytes.Load(), m.totalBytes.Load()
	if !errors.Is(err, ErrAlreadyExists) {
		m.transfer(TransferEvent{Name: name, Received: received, Total: total, Done: true, Err: err})
	}
	return err
}

// saveCoverArt writes the release artwork next to the artifact as
// {basename}.jpg. An existing file is kept.
func (m *Manager) saveCoverArt(ctx context.Context, info *model.ReleaseInfo, artifact string) error {
	data, err := m.httpClient.Get(ctx, info.ArtworkURL)
	if err != nil {
		return err
	}

	cover, err := m.imageService.PrepareCover(ctx, data, m.settings.CoverArtMaxSize)
	if err != nil {
		return err
	}

	path := strings.TrimSuffix(artifact, filepath.Ext(artifact)) + ".jpg"
	if err := ioutils.WriteNew(path, cover); err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Saved artwork: %s", filepath.Base(path)), Level: LevelVerbose})
	return nil
}

// FixFolders renames the undated "{artist} - {name}" folders of an artist's
// releases under folder to "{YYYY-MM-DD} - {artist} - {name}". Folders whose
// dated name is already taken are left alone.
//
// artistURL may also be a single release page. It returns the number of
// folders renamed.
func (m *Manager) FixFolders(ctx context.Context, folder, artistURL string) (int, error) {
	items, err := m.expand(ctx, artistURL)
	if err != nil {
		return 0, err
	}

	renamed := 0
	for _, item := range lo.Uniq(items) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Checking %s", item), Level: LevelInfo})

		info, err := m.release(ctx, item)
		if err != nil {
			if ctx.Err() != nil || m.settings.FailFast {
				return renamed, err
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error processing %s: %v", item, err), Level: LevelError})
			continue
		}

		from := filepath.Join(folder, model.SanitizeBaseName(info.UndatedName()))
		to := filepath.Join(folder, model.SanitizeBaseName(info.DatedName()))

		if _, err := os.Lstat(from); err != nil {
			continue
		}

		ok, err := ioutils.RenameNoReplace(from, to)
		switch {
		case err != nil:
			return renamed, fmt.Errorf("rename %s: %w", from, err)
		case ok:
			renamed++
			m.progress(ProgressEvent{Message: fmt.Sprintf("  moving\n  %s\n  to\n  %s", from, to), Level: LevelSuccess})
		default:
			m.progress(ProgressEvent{Message: fmt.Sprintf("  %s already exists, leaving %s", to, from), Level: LevelWarning})
		}
	}

	return renamed, nil
}

func (m *Manager) onResolveTransition(t resolve.Transition) {
	switch t.State {
	case resolve.StateRequestingMailbox:
		m.progress(ProgressEvent{Message: "  requesting download by email", Level: LevelVerbose})
	case resolve.StateAwaitingDelivery:
		if t.Attempt == 1 {
			m.progress(ProgressEvent{Message: fmt.Sprintf("  using email %s", t.Mailbox), Level: LevelInfo})
		} else if t.Attempt%10 == 0 {
			m.progress(ProgressEvent{Message: fmt.Sprintf("  still waiting for email (check %d)", t.Attempt), Level: LevelVerbose})
		}
	case resolve.StateDelivered:
		m.progress(ProgressEvent{Message: "  download link received", Level: LevelVerbose})
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

func (m *Manager) transfer(event TransferEvent) {
	if m.onTransfer != nil {
		m.onTransfer(event)
	}
}
