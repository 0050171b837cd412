package bandcamp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/net/html"
)

// Discography extracts album and track URLs from Bandcamp artist pages.
//
// When given an artist's music page HTML (e.g., from https://artist.bandcamp.com/music),
// Discography finds all album and track URLs listed in the page's music grid.
//
// Discography handles two cases:
//  1. Normal music pages with a #music-grid listing
//  2. Single-album artists where the music page redirects to the album page
//
// Example usage:
//
//	disco := NewDiscography()
//
//	html, _ := client.GetString(ctx, "https://artist.bandcamp.com/music")
//	urls, err := disco.GetItemURLs(html)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, u := range disco.Resolve(artistURL, urls) {
//	    fmt.Println(u)
//	}
type Discography struct {
	gridLink    matcher
	albumLink   matcher
	discography matcher
}

// NewDiscography creates a new Discography service.
func NewDiscography() *Discography {
	return &Discography{
		gridLink: childOf(
			childOf(elementWithAttrValue("", "id", "music-grid"), isElement("li")),
			elementWithAttr("a", "href"),
		),
		albumLink:   elementWithAttr("a", "href"),
		discography: elementWithAttrValue("div", "id", "discography"),
	}
}

// GetItemURLs extracts all album and track URLs from a Bandcamp music page.
//
// The returned URLs are relative paths like:
//   - /album/my-album
//   - /track/my-track
//
// Use Resolve to turn them into absolute URLs. Duplicates are filtered out
// while keeping page order.
//
// Returns ErrNoAlbumFound if no album or track URLs can be found.
func (d *Discography) GetItemURLs(musicPageHTML string) ([]string, error) {
	doc, err := parseDocument(musicPageHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse music page: %w", err)
	}

	if find(doc, d.discography) != nil {
		albumURL, err := d.getSingleAlbumURL(doc)
		if err != nil {
			return nil, err
		}
		return []string{albumURL}, nil
	}

	hrefs := lo.FilterMap(findAll(doc, d.gridLink), func(n *html.Node, _ int) (string, bool) {
		href, _ := attr(n, "href")
		return href, href != ""
	})
	if len(hrefs) == 0 {
		return nil, ErrNoAlbumFound
	}

	return lo.Uniq(hrefs), nil
}

// Resolve turns relative item paths into absolute URLs on the artist's host.
func (d *Discography) Resolve(artist *url.URL, hrefs []string) []*url.URL {
	out := make([]*url.URL, 0, len(hrefs))
	for _, href := range hrefs {
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		out = append(out, artist.ResolveReference(ref))
	}
	return out
}

// getSingleAlbumURL extracts the album URL from a single-album artist's page.
//
// When an artist has only one album, Bandcamp often redirects their /music
// page to their album page, which is recognizable by its "discography" div.
//
// Returns ErrNoAlbumFound if no album URL is found.
func (d *Discography) getSingleAlbumURL(doc *html.Node) (string, error) {
	albums := lo.Uniq(lo.FilterMap(findAll(doc, d.albumLink), func(n *html.Node, _ int) (string, bool) {
		href, _ := attr(n, "href")
		return href, strings.HasPrefix(href, "/album/")
	}))

	switch len(albums) {
	case 0:
		return "", ErrNoAlbumFound
	case 1:
		return albums[0], nil
	}

	return "", errors.New("found multiple album URLs, expected exactly one")
}

func isElement(tag string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}
