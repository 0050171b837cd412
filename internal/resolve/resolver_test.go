package resolve_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/bandcamp-free-downloader/internal/mailbox"
	"github.com/handiism/bandcamp-free-downloader/internal/model"
	"github.com/handiism/bandcamp-free-downloader/internal/poll"
	"github.com/handiism/bandcamp-free-downloader/internal/resolve"
)

type fakeClock struct {
	mu     sync.Mutex
	sleeps int
}

func (c *fakeClock) Sleep(ctx context.Context, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps++
	return ctx.Err()
}

type fakePoster struct {
	url   string
	form  url.Values
	reply string
	err   error
	calls int
}

func (p *fakePoster) PostForm(_ context.Context, rawURL string, form url.Values, v any) error {
	p.calls++
	p.url = rawURL
	p.form = form
	if p.err != nil {
		return p.err
	}
	return json.Unmarshal([]byte(p.reply), v)
}

type fakeMailbox struct {
	address string
	// inbox returns the listing for the given 1-based check.
	inbox  func(check int) []mailbox.Message
	bodies map[int64]string
	checks int
	reads  int
}

func (m *fakeMailbox) Create(context.Context) (mailbox.Mailbox, error) {
	return mailbox.Parse(m.address)
}

func (m *fakeMailbox) Messages(context.Context, mailbox.Mailbox) ([]mailbox.Message, error) {
	m.checks++
	return m.inbox(m.checks), nil
}

func (m *fakeMailbox) Read(_ context.Context, _ mailbox.Mailbox, id int64) (mailbox.Content, error) {
	m.reads++
	return mailbox.Content{Message: mailbox.Message{ID: id}, HTMLBody: m.bodies[id]}, nil
}

func gatedAlbum() *model.ReleaseInfo {
	return &model.ReleaseInfo{
		Kind:         model.KindAlbum,
		ItemID:       1234567,
		FreeDownload: model.EmailGated(),
		Name:         "Name",
		Publisher:    "Label",
		Artist:       "Artist",
		Published:    time.Date(2022, 1, 30, 0, 0, 0, 0, time.UTC),
	}
}

func newResolver(poster resolve.FormPoster, mb mailbox.Provider, clock poll.Clock, observed *[]resolve.State) *resolve.Resolver {
	policy := resolve.DefaultDeliveryPolicy
	policy.Clock = clock
	return resolve.NewResolver(poster, mb,
		resolve.WithDeliveryPolicy(policy),
		resolve.WithObserver(func(t resolve.Transition) { *observed = append(*observed, t.State) }),
	)
}

func TestResolve_NotAvailable(t *testing.T) {
	t.Parallel()

	info := gatedAlbum()
	info.FreeDownload = model.Unavailable()
	poster := &fakePoster{}

	var states []resolve.State
	res, err := newResolver(poster, &fakeMailbox{}, &fakeClock{}, &states).Resolve(context.Background(), info, "https://a.bandcamp.com/album/x")
	require.NoError(t, err)

	assert.Equal(t, resolve.StateNotAvailable, res.State)
	assert.Empty(t, res.DownloadPageURL)
	assert.Zero(t, poster.calls)
	assert.Equal(t, []resolve.State{resolve.StateNotAvailable}, states)
}

func TestResolve_DirectLink(t *testing.T) {
	t.Parallel()

	info := gatedAlbum()
	info.FreeDownload = model.DirectLink("https://bandcamp.com/download?id=1")

	var states []resolve.State
	res, err := newResolver(&fakePoster{}, &fakeMailbox{}, &fakeClock{}, &states).Resolve(context.Background(), info, "https://a.bandcamp.com/album/x")
	require.NoError(t, err)

	assert.Equal(t, resolve.Result{State: resolve.StateDirectReady, DownloadPageURL: "https://bandcamp.com/download?id=1"}, res)
	assert.Equal(t, []resolve.State{resolve.StateDirectReady}, states)
}

func TestResolve_Delivered(t *testing.T) {
	t.Parallel()

	poster := &fakePoster{reply: `{"ok":true}`}
	mb := &fakeMailbox{
		address: "x7k2p@1secmail.org",
		inbox: func(check int) []mailbox.Message {
			if check < 3 {
				return []mailbox.Message{{ID: 1, From: "news@example.com"}}
			}
			return []mailbox.Message{
				{ID: 1, From: "news@example.com"},
				{ID: 2, From: "noreply@bandcamp.com"},
			}
		},
		bodies: map[int64]string{
			2: `<p>Hi</p><a href="https://bandcamp.com/download?id=42&sig=abc">Download</a><a href="https://other">x</a>`,
		},
	}
	clock := &fakeClock{}

	var states []resolve.State
	res, err := newResolver(poster, mb, clock, &states).Resolve(context.Background(), gatedAlbum(), "https://artist.bandcamp.com/album/name?from=x#top")
	require.NoError(t, err)

	assert.Equal(t, resolve.StateDelivered, res.State)
	assert.Equal(t, "https://bandcamp.com/download?id=42&sig=abc", res.DownloadPageURL)

	assert.Equal(t, "https://artist.bandcamp.com/email_download", poster.url)
	assert.Equal(t, url.Values{
		"encoding_name": {"none"},
		"item_id":       {"1234567"},
		"item_type":     {"album"},
		"address":       {"x7k2p@1secmail.org"},
		"country":       {"US"},
		"postcode":      {"0"},
	}, poster.form)

	assert.Equal(t, 3, mb.checks)
	assert.Equal(t, 1, mb.reads)
	assert.Equal(t, 3, clock.sleeps)
	assert.Equal(t, []resolve.State{
		resolve.StateRequestingMailbox,
		resolve.StateAwaitingDelivery,
		resolve.StateAwaitingDelivery,
		resolve.StateAwaitingDelivery,
		resolve.StateDelivered,
	}, states)
}

func TestResolve_TrackItemType(t *testing.T) {
	t.Parallel()

	info := gatedAlbum()
	info.Kind = model.KindTrack
	poster := &fakePoster{reply: `{"ok":true}`}
	mb := &fakeMailbox{
		address: "a@b.c",
		inbox: func(int) []mailbox.Message {
			return []mailbox.Message{{ID: 7, From: "Bandcamp <noreply@bandcamp.com>"}}
		},
		bodies: map[int64]string{7: `<a href="https://bandcamp.com/download?id=7">x</a>`},
	}

	var states []resolve.State
	_, err := newResolver(poster, mb, &fakeClock{}, &states).Resolve(context.Background(), info, "https://a.bandcamp.com/track/t")
	require.NoError(t, err)
	assert.Equal(t, "track", poster.form.Get("item_type"))
}

func TestResolve_EmailTimeout(t *testing.T) {
	t.Parallel()

	mb := &fakeMailbox{
		address: "a@b.c",
		inbox:   func(int) []mailbox.Message { return []mailbox.Message{{ID: 1, From: "spam@example.com"}} },
	}
	clock := &fakeClock{}

	var states []resolve.State
	res, err := newResolver(&fakePoster{reply: `{"ok":true}`}, mb, clock, &states).Resolve(context.Background(), gatedAlbum(), "https://a.bandcamp.com/album/x")

	assert.ErrorIs(t, err, resolve.ErrEmailTimeout)
	assert.ErrorIs(t, err, resolve.ErrResolve)
	assert.Empty(t, res.DownloadPageURL)
	assert.Equal(t, 120, mb.checks)
	assert.Equal(t, 120, clock.sleeps)
	assert.Zero(t, mb.reads)
	assert.Equal(t, resolve.StateFailed, states[len(states)-1])
}

func TestResolve_EmailRequestRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		poster *fakePoster
	}{
		{"not ok", &fakePoster{reply: `{"ok":false}`}},
		{"transport error", &fakePoster{err: errors.New("connection reset")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mb := &fakeMailbox{address: "a@b.c"}

			var states []resolve.State
			_, err := newResolver(tt.poster, mb, &fakeClock{}, &states).Resolve(context.Background(), gatedAlbum(), "https://a.bandcamp.com/album/x")

			assert.ErrorIs(t, err, resolve.ErrEmailRequestRejected)
			assert.ErrorIs(t, err, resolve.ErrResolve)
			assert.Zero(t, mb.checks)
		})
	}
}

func TestResolve_MissingDeliveryLink(t *testing.T) {
	t.Parallel()

	mb := &fakeMailbox{
		address: "a@b.c",
		inbox:   func(int) []mailbox.Message { return []mailbox.Message{{ID: 5, From: "noreply@bandcamp.com"}} },
		bodies:  map[int64]string{5: `<p>No link here</p>`},
	}

	var states []resolve.State
	_, err := newResolver(&fakePoster{reply: `{"ok":true}`}, mb, &fakeClock{}, &states).Resolve(context.Background(), gatedAlbum(), "https://a.bandcamp.com/album/x")

	assert.ErrorIs(t, err, resolve.ErrMissingDeliveryLink)
	assert.Equal(t, 1, mb.checks)
}

func TestResolve_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mb := &fakeMailbox{address: "a@b.c", inbox: func(int) []mailbox.Message { return nil }}

	var states []resolve.State
	_, err := newResolver(&fakePoster{reply: `{"ok":true}`}, mb, &fakeClock{}, &states).Resolve(ctx, gatedAlbum(), "https://a.bandcamp.com/album/x")

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, resolve.ErrResolve)
	assert.NotErrorIs(t, err, resolve.ErrEmailTimeout)
}

func TestEmailFormURL(t *testing.T) {
	t.Parallel()

	got, err := resolve.EmailFormURL("https://artist.bandcamp.com/track/name?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://artist.bandcamp.com/email_download", got)

	_, err = resolve.EmailFormURL("/track/name")
	assert.Error(t, err)
}

func TestState_Terminal(t *testing.T) {
	t.Parallel()

	assert.True(t, resolve.StateDelivered.Terminal())
	assert.True(t, resolve.StateFailed.Terminal())
	assert.False(t, resolve.StateAwaitingDelivery.Terminal())
	assert.Equal(t, "awaiting_delivery", resolve.StateAwaitingDelivery.String())
}
