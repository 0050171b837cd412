// Package http provides an HTTP client configured for Bandcamp requests.
//
// The Client in this package handles:
//   - User-Agent headers for Bandcamp compatibility
//   - HTML, JSON and form requests under a timeout
//   - Streaming responses for artifact downloads
//
// # Basic Usage
//
//	client := http.NewClient(http.WithUserAgent(settings.UserAgent))
//
//	// Fetch HTML page
//	html, err := client.GetString(ctx, "https://artist.bandcamp.com/album/name")
//
//	// Submit a form and decode the JSON reply
//	var reply struct{ OK bool `json:"ok"` }
//	err = client.PostForm(ctx, emailURL, form, &reply)
//
//	// Stream a large response
//	resp, err := client.Open(ctx, assetURL)
//
// Buffered requests fail with an error wrapping ErrUnexpectedStatus when the
// server answers outside the 2xx range. Open leaves that check to the caller.
package http
