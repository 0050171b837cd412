package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned when the service hands out an address that
// is not of the form login@domain.
var ErrInvalidAddress = errors.New("invalid mailbox address")

// ErrNoAddress is returned when the service answers a provisioning request
// without any address.
var ErrNoAddress = errors.New("mailbox service returned no address")

// Mailbox is a provisioned disposable address.
type Mailbox struct {
	Address string
}

// Parse validates address and returns it as a Mailbox.
func Parse(address string) (Mailbox, error) {
	login, domain, ok := strings.Cut(address, "@")
	if !ok || login == "" || domain == "" || strings.Contains(domain, "@") {
		return Mailbox{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return Mailbox{Address: address}, nil
}

// Login returns the local part of the address.
func (m Mailbox) Login() string {
	login, _, _ := strings.Cut(m.Address, "@")
	return login
}

// Domain returns the domain part of the address.
func (m Mailbox) Domain() string {
	_, domain, _ := strings.Cut(m.Address, "@")
	return domain
}

// Message is an inbox listing entry.
type Message struct {
	ID      int64  `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
}

// Content is a fully read message.
type Content struct {
	Message
	TextBody string `json:"textBody"`
	HTMLBody string `json:"htmlBody"`
}

// Provider provisions disposable mailboxes and reads their inbox.
type Provider interface {
	// Create provisions a fresh address.
	Create(ctx context.Context) (Mailbox, error)

	// Messages lists the messages received so far.
	Messages(ctx context.Context, mb Mailbox) ([]Message, error)

	// Read fetches one message with its body.
	Read(ctx context.Context, mb Mailbox, id int64) (Content, error)
}

// JSONGetter is the part of the HTTP client the mailbox client needs.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, v any) error
}

// Client is a Provider backed by a 1secmail-compatible HTTP API.
type Client struct {
	http JSONGetter
	base *url.URL
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(http JSONGetter, baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse mailbox API URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("mailbox API URL %q must be absolute", baseURL)
	}
	return &Client{http: http, base: base}, nil
}

func (c *Client) endpoint(action string, params url.Values) string {
	u := *c.base
	q := u.Query()
	q.Set("action", action)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func inbox(mb Mailbox) url.Values {
	return url.Values{
		"login":  {mb.Login()},
		"domain": {mb.Domain()},
	}
}

// Create implements Provider.
func (c *Client) Create(ctx context.Context) (Mailbox, error) {
	var addresses []string
	if err := c.http.GetJSON(ctx, c.endpoint("genRandomMailbox", url.Values{"count": {"1"}}), &addresses); err != nil {
		return Mailbox{}, fmt.Errorf("create mailbox: %w", err)
	}
	if len(addresses) == 0 {
		return Mailbox{}, ErrNoAddress
	}
	return Parse(addresses[0])
}

// Messages implements Provider.
func (c *Client) Messages(ctx context.Context, mb Mailbox) ([]Message, error) {
	var msgs []Message
	if err := c.http.GetJSON(ctx, c.endpoint("getMessages", inbox(mb)), &msgs); err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", mb.Address, err)
	}
	return msgs, nil
}

// Read implements Provider.
func (c *Client) Read(ctx context.Context, mb Mailbox, id int64) (Content, error) {
	params := inbox(mb)
	params.Set("id", strconv.FormatInt(id, 10))

	var msg Content
	if err := c.http.GetJSON(ctx, c.endpoint("readMessage", params), &msg); err != nil {
		return Content{}, fmt.Errorf("read message %d of %s: %w", id, mb.Address, err)
	}
	return msg, nil
}
