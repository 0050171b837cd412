package download

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// ErrUnsupportedURL is returned for URLs that are neither a release page nor
// an artist page.
var ErrUnsupportedURL = errors.New("not a Bandcamp album, track or artist page")

// PageKind classifies an input URL.
type PageKind int

const (
	// PageItem is an album or track page.
	PageItem PageKind = iota

	// PageArtist is an artist or label front page, or its /music page.
	PageArtist
)

// ClassifyURL tells item pages from artist pages by path.
//
// Example:
//
//	ClassifyURL(mustParse("https://artist.bandcamp.com/album/name")) // PageItem
//	ClassifyURL(mustParse("https://artist.bandcamp.com/music"))      // PageArtist
//	ClassifyURL(mustParse("https://artist.bandcamp.com/merch"))      // ErrUnsupportedURL
func ClassifyURL(u *url.URL) (PageKind, error) {
	switch p := u.Path; {
	case strings.HasPrefix(p, "/album/"), strings.HasPrefix(p, "/track/"):
		return PageItem, nil
	case p == "", p == "/", strings.HasPrefix(p, "/music"):
		return PageArtist, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedURL, u.Redacted())
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// parseLines reads one URL per line from r. Blank lines and comments
// starting with '#' are skipped; any other line must be an http(s) URL.
// name labels errors with the offending line.
func parseLines(r io.Reader, name string) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !isURL(line) {
			return nil, fmt.Errorf("%s:%d: %w: %q", name, n, ErrUnsupportedURL, line)
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return urls, nil
}

// ParseInputURLs extracts the URLs of a multi-line input, one per line, with
// the same rules as a batch file.
//
// Example:
//
//	urls, err := ParseInputURLs("https://a.bandcamp.com/album/x\n\n# later\nhttps://b.bandcamp.com/")
//	// ["https://a.bandcamp.com/album/x", "https://b.bandcamp.com/"], nil
func ParseInputURLs(input string) ([]string, error) {
	return parseLines(strings.NewReader(input), "input")
}

// ReadInputs expands command line arguments into URLs. An argument starting
// with http:// or https:// is a URL; anything else is a batch file with one
// URL per line.
//
// Returns an error if a batch file cannot be read or holds a line that is
// neither blank, a '#' comment, nor a URL.
func ReadInputs(args []string) ([]string, error) {
	var urls []string
	for _, arg := range args {
		if isURL(arg) {
			urls = append(urls, arg)
			continue
		}

		batch, err := readBatchFile(arg)
		if err != nil {
			return nil, err
		}
		urls = append(urls, batch...)
	}
	return urls, nil
}

func readBatchFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	defer f.Close()

	return parseLines(f, path)
}
