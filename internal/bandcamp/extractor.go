package bandcamp

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/handiism/bandcamp-free-downloader/internal/model"
)

const (
	artworkURLFormat = "https://f4.bcbits.com/img/a%010d_0.jpg"

	// publishedLayout matches "30 Jan 2022 00:00:00" once the zone is stripped.
	publishedLayout = "02 Jan 2006 15:04:05"
	publishedZone   = " GMT"
)

// releasePaths are the gjson paths read from the linked-data block.
type releasePaths struct {
	albumRelease   string
	trackRelease   string
	itemID         string
	albumNumTracks string
	trackNumTracks string
	name           string
	publisher      string
	artist         string
	published      string
}

// Extractor parses Bandcamp album and track pages into model.ReleaseInfo.
//
// Bandcamp embeds two JSON payloads in each release page:
//   - a <script type="application/ld+json"> block with schema.org metadata
//   - a data-tralbum attribute with commerce and availability data
//
// The element matchers and JSON paths are built once by NewExtractor and
// reused for every page; an Extractor is safe for concurrent use.
//
// Example usage:
//
//	extractor := NewExtractor()
//
//	html, _ := client.GetString(ctx, "https://artist.bandcamp.com/album/name")
//	info, err := extractor.ParseRelease(html)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("%s by %s (%s)\n", info.Name, info.Artist, info.FreeDownload.Status)
type Extractor struct {
	linkedData matcher
	commerce   matcher
	pageData   matcher
	paths      releasePaths
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		linkedData: elementWithAttrValue("script", "type", "application/ld+json"),
		commerce:   elementWithAttr("", "data-tralbum"),
		pageData:   elementWithAttrValue("", "id", "pagedata"),
		paths: releasePaths{
			albumRelease:   "albumRelease.0",
			trackRelease:   "inAlbum.albumRelease.0",
			itemID:         `additionalProperty.#(name=="item_id").value`,
			albumNumTracks: "numTracks",
			trackNumTracks: "inAlbum.numTracks",
			name:           "name",
			publisher:      "publisher.name",
			artist:         "byArtist.name",
			published:      "datePublished",
		},
	}
}

// ParseRelease extracts release info from a Bandcamp album or track page.
//
// This method performs the following steps:
//  1. Locates the linked-data and data-tralbum payloads
//  2. Determines the item kind from the linked-data @type
//  3. Selects the release the free download belongs to (the containing
//     album for a track)
//  4. Derives the free-download gating, forced to unavailable for releases
//     without tracks
//  5. Reads the names and the publish date
//
// Every returned error wraps ErrParse.
func (e *Extractor) ParseRelease(markup string) (*model.ReleaseInfo, error) {
	doc, err := parseDocument(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	ldNode := find(doc, e.linkedData)
	if ldNode == nil {
		return nil, missing("ld+json block")
	}
	rawLD := text(ldNode)
	if !gjson.Valid(rawLD) {
		return nil, missing("ld+json object")
	}
	ld := gjson.Parse(rawLD)
	if !ld.IsObject() {
		return nil, missing("ld+json object")
	}

	commerceNode := find(doc, e.commerce)
	if commerceNode == nil {
		return nil, missing("data-tralbum")
	}
	rawCommerce, _ := attr(commerceNode, "data-tralbum")
	if !gjson.Valid(rawCommerce) {
		return nil, missing("data-tralbum object")
	}
	commerce := gjson.Parse(rawCommerce)
	if !commerce.IsObject() {
		return nil, missing("data-tralbum object")
	}

	kind, err := itemKind(ld)
	if err != nil {
		return nil, err
	}

	releasePath, numTracksPath := e.paths.albumRelease, e.paths.albumNumTracks
	if kind == model.KindTrack {
		releasePath, numTracksPath = e.paths.trackRelease, e.paths.trackNumTracks
	}

	release := ld.Get(releasePath)
	if !release.IsObject() {
		return nil, missing(releasePath)
	}

	itemID := release.Get(e.paths.itemID)
	if itemID.Type != gjson.Number {
		return nil, missing("item_id")
	}

	free, err := freeDownload(commerce)
	if err != nil {
		return nil, err
	}
	numTracks := ld.Get(numTracksPath)
	if numTracks.Type != gjson.Number {
		return nil, missing(numTracksPath)
	}
	if numTracks.Int() == 0 {
		free = model.Unavailable()
	}

	name, err := requiredString(release, e.paths.name)
	if err != nil {
		return nil, err
	}
	publisher, err := requiredString(ld, e.paths.publisher)
	if err != nil {
		return nil, err
	}
	artist, err := requiredString(ld, e.paths.artist)
	if err != nil {
		return nil, err
	}
	rawPublished, err := requiredString(ld, e.paths.published)
	if err != nil {
		return nil, err
	}
	published, err := ParsePublished(rawPublished)
	if err != nil {
		return nil, err
	}

	info := &model.ReleaseInfo{
		Kind:         kind,
		ItemID:       itemID.Int(),
		FreeDownload: free,
		Name:         name,
		Publisher:    publisher,
		Artist:       artist,
		Published:    published,
	}
	if artID := commerce.Get("art_id"); artID.Type == gjson.Number {
		info.ArtworkURL = fmt.Sprintf(artworkURLFormat, artID.Int())
	}

	return info, nil
}

// PageData returns the JSON held in the data-blob attribute of the #pagedata
// element, as found on download pages.
func (e *Extractor) PageData(markup string) (gjson.Result, bool) {
	doc, err := parseDocument(markup)
	if err != nil {
		return gjson.Result{}, false
	}
	n := find(doc, e.pageData)
	if n == nil {
		return gjson.Result{}, false
	}
	blob, ok := attr(n, "data-blob")
	if !ok || !gjson.Valid(blob) {
		return gjson.Result{}, false
	}
	return gjson.Parse(blob), true
}

// ParsePublished parses Bandcamp's publish date format: "30 Jan 2022 00:00:00 GMT".
func ParsePublished(s string) (time.Time, error) {
	t, err := time.ParseInLocation(publishedLayout, strings.TrimSuffix(s, publishedZone), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}

func itemKind(ld gjson.Result) (model.ItemKind, error) {
	// "@type" would be read as a gjson modifier, hence the map lookup.
	switch t := ld.Map()["@type"].String(); t {
	case "MusicAlbum":
		return model.KindAlbum, nil
	case "MusicRecording":
		return model.KindTrack, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnrecognizedKind, t)
	}
}

func freeDownload(commerce gjson.Result) (model.FreeDownload, error) {
	if page := commerce.Get("freeDownloadPage"); page.Type == gjson.String {
		u, err := url.Parse(page.Str)
		if err != nil || !u.IsAbs() {
			return model.FreeDownload{}, fmt.Errorf("%w: freeDownloadPage %q", ErrParse, page.Str)
		}
		return model.DirectLink(u.String()), nil
	}

	if commerce.Get("current.require_email").Int() == 1 {
		return model.EmailGated(), nil
	}

	return model.Unavailable(), nil
}

func requiredString(obj gjson.Result, path string) (string, error) {
	v := obj.Get(path)
	if v.Type != gjson.String {
		return "", missing(path)
	}
	return v.Str, nil
}
