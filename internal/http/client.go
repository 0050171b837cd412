package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultUserAgent is sent when no other User-Agent is configured.
const DefaultUserAgent = "BandcampDownloader"

// DefaultTimeout bounds every non-streaming request.
const DefaultTimeout = 60 * time.Second

// acceptJSON is the Accept header Bandcamp's status-check endpoint expects.
const acceptJSON = "application/json, text/javascript"

// ErrUnexpectedStatus is returned when a buffered request gets a non-2xx
// response.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// Client wraps HTTP operations with Bandcamp-specific configuration.
//
// Client provides:
//   - Configured User-Agent header for Bandcamp compatibility
//   - A timeout for page, JSON and form requests
//   - Untimed streaming responses for large downloads
//
// Example usage:
//
//	client := NewClient(WithUserAgent("Mozilla/5.0"), WithTimeout(30*time.Second))
//
//	// Fetch HTML content
//	html, err := client.GetString(ctx, "https://artist.bandcamp.com/album/name")
//
//	// Query a JSON endpoint
//	var status struct{ Result string `json:"result"` }
//	err = client.GetJSON(ctx, statURL, &status)
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	userAgent    string
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent with every request. An empty
// value keeps the default.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the timeout of non-streaming requests. Streaming responses
// returned by Open are only bound by their context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTransport replaces the round tripper used by both buffered and
// streaming requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
		c.streamClient.Transport = rt
	}
}

// NewClient creates a new HTTP client configured for Bandcamp.
//
// Without options the client is configured with:
//   - 60 second timeout
//   - "BandcampDownloader" User-Agent header
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		streamClient: &http.Client{},
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, req.Method, req.URL.Redacted(), resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// Get performs a GET request and returns the response body as bytes.
//
// The request includes the configured User-Agent header.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 2xx (wraps ErrUnexpectedStatus)
//   - Reading the body fails
//
// Example:
//
//	data, err := client.Get(ctx, "https://f4.bcbits.com/img/a0123456789_0.jpg")
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// GetString performs a GET request and returns the response body as a string.
//
// This is a convenience wrapper around Get for fetching text content like HTML.
//
// Example:
//
//	html, err := client.GetString(ctx, "https://artist.bandcamp.com/album/name")
func (c *Client) GetString(ctx context.Context, rawURL string) (string, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetJSON performs a GET request asking for JSON and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", acceptJSON)

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Redacted(), err)
	}
	return nil
}

// PostForm submits form as application/x-www-form-urlencoded and decodes the
// JSON response into v.
//
// Example:
//
//	var reply struct{ OK bool `json:"ok"` }
//	err := client.PostForm(ctx, "https://artist.bandcamp.com/email_download", url.Values{
//	    "item_id": {"123"},
//	}, &reply)
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, v any) error {
	req, err := c.newRequest(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", acceptJSON)

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Redacted(), err)
	}
	return nil
}

// Open performs a GET request and returns the response without reading it.
//
// The response is returned whatever its status; the caller checks
// StatusCode and ContentLength and must close the body. No client timeout
// applies, so large files are limited only by ctx.
//
// Example:
//
//	resp, err := client.Open(ctx, assetURL)
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()
func (c *Client) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.streamClient.Do(req)
}
