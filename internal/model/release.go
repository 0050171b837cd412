package model

import (
	"time"
)

// ItemKind is the kind of a Bandcamp release page.
type ItemKind int

const (
	// KindAlbum is a full release; free downloads arrive as a .zip archive.
	KindAlbum ItemKind = iota

	// KindTrack is a single track; free downloads arrive as a .flac file.
	KindTrack
)

// String returns the name Bandcamp uses for the kind in form parameters.
func (k ItemKind) String() string {
	switch k {
	case KindAlbum:
		return "album"
	case KindTrack:
		return "track"
	}

	return "unknown"
}

// Extension returns the file extension of the artifact, including the dot.
func (k ItemKind) Extension() string {
	if k == KindAlbum {
		return ".zip"
	}
	return ".flac"
}

// FreeDownloadStatus describes how a free copy of a release can be obtained.
type FreeDownloadStatus int

const (
	// FreeDownloadUnavailable means the release has no free download.
	FreeDownloadUnavailable FreeDownloadStatus = iota

	// FreeDownloadDirect means the page links straight to a download page.
	FreeDownloadDirect

	// FreeDownloadEmailGated means the download page link is mailed to an address
	// submitted through the release's email form.
	FreeDownloadEmailGated
)

// String returns a human readable name for the status.
func (s FreeDownloadStatus) String() string {
	switch s {
	case FreeDownloadUnavailable:
		return "unavailable"
	case FreeDownloadDirect:
		return "direct"
	case FreeDownloadEmailGated:
		return "email"
	}

	return "unknown"
}

// FreeDownload is the free-download gating of a release.
//
// URL is only set when Status is FreeDownloadDirect.
type FreeDownload struct {
	Status FreeDownloadStatus
	URL    string
}

// Unavailable returns the gating of a release that cannot be downloaded for free.
func Unavailable() FreeDownload {
	return FreeDownload{Status: FreeDownloadUnavailable}
}

// DirectLink returns the gating of a release with a public download page.
func DirectLink(url string) FreeDownload {
	return FreeDownload{Status: FreeDownloadDirect, URL: url}
}

// EmailGated returns the gating of a release that mails its download page.
func EmailGated() FreeDownload {
	return FreeDownload{Status: FreeDownloadEmailGated}
}

// ReleaseInfo is the metadata of a single album or track page.
//
// A ReleaseInfo is built once per item by the page extractor and is read-only
// afterwards. Every field except ArtworkURL is always populated on a
// successfully parsed instance.
//
// Example:
//
//	info, err := extractor.ParseRelease(html)
//	if err != nil {
//	    return err
//	}
//	if info.FreeDownload.Status == model.FreeDownloadUnavailable {
//	    fmt.Println("no free download")
//	}
type ReleaseInfo struct {
	// Kind is Album or Track.
	Kind ItemKind

	// ItemID is Bandcamp's numeric identifier of the release the free
	// download belongs to (the containing album for a track).
	ItemID int64

	// FreeDownload describes how a free copy can be obtained.
	FreeDownload FreeDownload

	// Name is the release title.
	Name string

	// Publisher is the name of the label or artist account publishing the page.
	Publisher string

	// Artist is the credited artist.
	Artist string

	// Published is the publish instant in UTC.
	Published time.Time

	// ArtworkURL is the cover art URL, empty when the page has none.
	ArtworkURL string
}

// HasArtwork returns true if the release has cover art available for download.
func (r *ReleaseInfo) HasArtwork() bool {
	return r.ArtworkURL != ""
}

// DatedName returns "{YYYY-MM-DD} - {artist} - {name}", the unsanitized basename
// shared by artifacts and dated folders.
func (r *ReleaseInfo) DatedName() string {
	return r.Published.Format("2006-01-02") + " - " + r.UndatedName()
}

// UndatedName returns "{artist} - {name}", the folder name used before
// release dates were part of the naming scheme.
func (r *ReleaseInfo) UndatedName() string {
	return r.Artist + " - " + r.Name
}
