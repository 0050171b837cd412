package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/handiism/bandcamp-free-downloader/internal/bandcamp"
	"github.com/handiism/bandcamp-free-downloader/internal/mailbox"
	"github.com/handiism/bandcamp-free-downloader/internal/model"
	"github.com/handiism/bandcamp-free-downloader/internal/poll"
)

// DefaultSenderDomain is the domain Bandcamp's delivery emails come from.
const DefaultSenderDomain = "bandcamp.com"

// DefaultDeliveryPolicy checks the mailbox once a second for two minutes,
// waiting before the first check.
var DefaultDeliveryPolicy = poll.Policy{
	Interval:    time.Second,
	MaxAttempts: 120,
	DelayFirst:  true,
}

// FormPoster submits a form and decodes the JSON reply.
type FormPoster interface {
	PostForm(ctx context.Context, rawURL string, form url.Values, v any) error
}

// Resolver turns a release's free-download gating into a download page URL.
//
// Releases with a direct link resolve immediately. Email-gated releases go
// through a disposable mailbox: the resolver provisions an address, submits
// it to the release's email form and polls the inbox until Bandcamp's
// message arrives.
//
// Example:
//
//	resolver := resolve.NewResolver(httpClient, mailboxClient,
//	    resolve.WithLogger(logger),
//	    resolve.WithObserver(func(t resolve.Transition) { fmt.Println(t.State) }),
//	)
//	res, err := resolver.Resolve(ctx, info, itemURL)
//	if err != nil {
//	    return err
//	}
//	if res.State == resolve.StateNotAvailable {
//	    return nil
//	}
//	fmt.Println(res.DownloadPageURL)
type Resolver struct {
	http         FormPoster
	mailbox      mailbox.Provider
	policy       poll.Policy
	senderDomain string
	logger       zerolog.Logger
	observer     Observer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDeliveryPolicy sets how the inbox is polled.
func WithDeliveryPolicy(p poll.Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithSenderDomain sets the domain a delivery message must come from.
func WithSenderDomain(domain string) Option {
	return func(r *Resolver) {
		if domain != "" {
			r.senderDomain = domain
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithObserver sets a callback receiving every state transition.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.observer = o }
}

// NewResolver creates a resolver submitting forms through http and
// provisioning addresses from provider.
func NewResolver(http FormPoster, provider mailbox.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		http:         http,
		mailbox:      provider,
		policy:       DefaultDeliveryPolicy,
		senderDomain: DefaultSenderDomain,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) emit(t Transition) {
	r.logger.Debug().
		Stringer("state", t.State).
		Str("mailbox", t.Mailbox).
		Uint64("attempt", t.Attempt).
		Str("download_page_url", t.DownloadPageURL).
		Err(t.Err).
		Msg("Free download state changed")

	if r.observer != nil {
		r.observer(t)
	}
}

func (r *Resolver) fail(mb string, err error) (Result, error) {
	r.emit(Transition{State: StateFailed, Mailbox: mb, Err: err})
	return Result{State: StateFailed}, err
}

// Resolve returns the download page of info, or StateNotAvailable when the
// release cannot be downloaded for free. itemPageURL is the release page
// info was parsed from; its host receives the email form.
//
// Every returned error wraps ErrResolve.
func (r *Resolver) Resolve(ctx context.Context, info *model.ReleaseInfo, itemPageURL string) (Result, error) {
	switch info.FreeDownload.Status {
	case model.FreeDownloadUnavailable:
		r.emit(Transition{State: StateNotAvailable})
		return Result{State: StateNotAvailable}, nil

	case model.FreeDownloadDirect:
		r.emit(Transition{State: StateDirectReady, DownloadPageURL: info.FreeDownload.URL})
		return Result{State: StateDirectReady, DownloadPageURL: info.FreeDownload.URL}, nil

	case model.FreeDownloadEmailGated:
		return r.resolveByEmail(ctx, info, itemPageURL)
	}

	return r.fail("", fmt.Errorf("%w: unknown free download status %d", ErrResolve, info.FreeDownload.Status))
}

func (r *Resolver) resolveByEmail(ctx context.Context, info *model.ReleaseInfo, itemPageURL string) (Result, error) {
	r.emit(Transition{State: StateRequestingMailbox})

	formURL, err := EmailFormURL(itemPageURL)
	if err != nil {
		return r.fail("", fmt.Errorf("%w: %w", ErrResolve, err))
	}

	mb, err := r.mailbox.Create(ctx)
	if err != nil {
		return r.fail("", fmt.Errorf("%w: %w", ErrResolve, err))
	}
	r.logger.Info().Str("mailbox", mb.Address).Msg("Using disposable mailbox")

	if err := r.requestEmail(ctx, formURL, info, mb); err != nil {
		return r.fail(mb.Address, err)
	}

	policy := r.policy
	link, err := poll.Until(ctx, policy, func(ctx context.Context, attempt uint64) (string, bool, error) {
		r.emit(Transition{State: StateAwaitingDelivery, Mailbox: mb.Address, Attempt: attempt})
		return r.checkDelivery(ctx, mb)
	})
	switch {
	case errors.Is(err, poll.ErrExhausted):
		return r.fail(mb.Address, fmt.Errorf("%w: %s after %d checks", ErrEmailTimeout, mb.Address, max(policy.MaxAttempts, 1)))
	case errors.Is(err, ErrResolve):
		return r.fail(mb.Address, err)
	case err != nil:
		return r.fail(mb.Address, fmt.Errorf("%w: %w", ErrResolve, err))
	}

	r.emit(Transition{State: StateDelivered, Mailbox: mb.Address, DownloadPageURL: link})
	return Result{State: StateDelivered, DownloadPageURL: link}, nil
}

type emailDownloadReply struct {
	OK bool `json:"ok"`
}

func (r *Resolver) requestEmail(ctx context.Context, formURL string, info *model.ReleaseInfo, mb mailbox.Mailbox) error {
	form := url.Values{
		"encoding_name": {"none"},
		"item_id":       {strconv.FormatInt(info.ItemID, 10)},
		"item_type":     {info.Kind.String()},
		"address":       {mb.Address},
		"country":       {"US"},
		"postcode":      {"0"},
	}

	var reply emailDownloadReply
	if err := r.http.PostForm(ctx, formURL, form, &reply); err != nil {
		return fmt.Errorf("%w: %w", ErrEmailRequestRejected, err)
	}
	if !reply.OK {
		return ErrEmailRequestRejected
	}
	return nil
}

// checkDelivery is one delivery poll: it reports done with the link when a
// message from the sender domain is in the inbox.
func (r *Resolver) checkDelivery(ctx context.Context, mb mailbox.Mailbox) (string, bool, error) {
	msgs, err := r.mailbox.Messages(ctx, mb)
	if err != nil {
		return "", false, err
	}

	msg, ok := lo.Find(msgs, func(m mailbox.Message) bool {
		return fromDomain(m.From, r.senderDomain)
	})
	if !ok {
		return "", false, nil
	}

	content, err := r.mailbox.Read(ctx, mb, msg.ID)
	if err != nil {
		return "", false, err
	}

	link, ok := bandcamp.FirstLink(content.HTMLBody)
	if !ok {
		return "", false, fmt.Errorf("%w: message %d from %s", ErrMissingDeliveryLink, msg.ID, msg.From)
	}
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() {
		return "", false, fmt.Errorf("%w: %q is not an absolute URL", ErrMissingDeliveryLink, link)
	}

	return u.String(), true, nil
}

// fromDomain reports whether the sender address ends with domain. A display
// name form such as "Bandcamp <noreply@bandcamp.com>" is accepted.
func fromDomain(from, domain string) bool {
	from = strings.TrimSuffix(strings.TrimSpace(from), ">")
	return strings.HasSuffix(strings.ToLower(from), strings.ToLower(domain))
}

// EmailFormURL returns the email download endpoint on the host of
// itemPageURL.
func EmailFormURL(itemPageURL string) (string, error) {
	u, err := url.Parse(itemPageURL)
	if err != nil {
		return "", fmt.Errorf("parse item URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("item URL %q must be absolute", itemPageURL)
	}
	u.Path = "/email_download"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
