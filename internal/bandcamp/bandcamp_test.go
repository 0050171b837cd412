package bandcamp

import (
	"errors"
	"html"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/bandcamp-free-downloader/internal/model"
)

func albumLD() map[string]any {
	return map[string]any{
		"@type":         "MusicAlbum",
		"name":          "Album Page Name",
		"numTracks":     3,
		"datePublished": "30 Jan 2022 00:00:00 GMT",
		"publisher":     map[string]any{"name": "Some Label"},
		"byArtist":      map[string]any{"name": "Some Artist"},
		"albumRelease": []any{
			map[string]any{
				"name": "Test Album",
				"additionalProperty": []any{
					map[string]any{"name": "art_id", "value": 111},
					map[string]any{"name": "item_id", "value": 1234567},
				},
			},
		},
	}
}

func trackLD() map[string]any {
	return map[string]any{
		"@type":         "MusicRecording",
		"name":          "Test Track",
		"datePublished": "05 Mar 2021 12:30:45 GMT",
		"publisher":     map[string]any{"name": "Some Label"},
		"byArtist":      map[string]any{"name": "Some Artist"},
		"inAlbum": map[string]any{
			"numTracks": 1,
			"albumRelease": []any{
				map[string]any{
					"name": "Test Track",
					"additionalProperty": []any{
						map[string]any{"name": "item_id", "value": 7654321},
					},
				},
			},
		},
	}
}

func page(t *testing.T, ld, tralbum map[string]any) string {
	t.Helper()

	ldBytes, err := json.Marshal(ld)
	require.NoError(t, err)
	tralbumBytes, err := json.Marshal(tralbum)
	require.NoError(t, err)

	return `<html><head>
	<script type="application/ld+json">` + string(ldBytes) + `</script>
	</head><body>
	<script data-tralbum="` + html.EscapeString(string(tralbumBytes)) + `"></script>
	</body></html>`
}

func TestExtractor_ParseRelease_Album(t *testing.T) {
	t.Parallel()

	tralbum := map[string]any{
		"freeDownloadPage": "https://bandcamp.com/download?id=1234567&type=album",
		"art_id":           1234,
		"current":          map[string]any{"require_email": nil},
	}

	info, err := NewExtractor().ParseRelease(page(t, albumLD(), tralbum))
	require.NoError(t, err)

	assert.Equal(t, model.KindAlbum, info.Kind)
	assert.Equal(t, int64(1234567), info.ItemID)
	assert.Equal(t, model.DirectLink("https://bandcamp.com/download?id=1234567&type=album"), info.FreeDownload)
	assert.Equal(t, "Test Album", info.Name)
	assert.Equal(t, "Some Label", info.Publisher)
	assert.Equal(t, "Some Artist", info.Artist)
	assert.Equal(t, time.Date(2022, 1, 30, 0, 0, 0, 0, time.UTC), info.Published)
	assert.Equal(t, "https://f4.bcbits.com/img/a0000001234_0.jpg", info.ArtworkURL)
}

func TestExtractor_ParseRelease_Track(t *testing.T) {
	t.Parallel()

	tralbum := map[string]any{
		"freeDownloadPage": nil,
		"current":          map[string]any{"require_email": 1},
	}

	info, err := NewExtractor().ParseRelease(page(t, trackLD(), tralbum))
	require.NoError(t, err)

	assert.Equal(t, model.KindTrack, info.Kind)
	assert.Equal(t, int64(7654321), info.ItemID)
	assert.Equal(t, model.EmailGated(), info.FreeDownload)
	assert.Equal(t, time.Date(2021, 3, 5, 12, 30, 45, 0, time.UTC), info.Published)
	assert.False(t, info.HasArtwork())
}

func TestExtractor_ParseRelease_FreeDownload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		numTracks int
		tralbum   map[string]any
		want      model.FreeDownloadStatus
	}{
		{
			name:      "direct link wins over email",
			numTracks: 2,
			tralbum: map[string]any{
				"freeDownloadPage": "https://bandcamp.com/download?id=1",
				"current":          map[string]any{"require_email": 1},
			},
			want: model.FreeDownloadDirect,
		},
		{
			name:      "email gated",
			numTracks: 2,
			tralbum:   map[string]any{"current": map[string]any{"require_email": 1}},
			want:      model.FreeDownloadEmailGated,
		},
		{
			name:      "paid release",
			numTracks: 2,
			tralbum:   map[string]any{"current": map[string]any{"require_email": 0}},
			want:      model.FreeDownloadUnavailable,
		},
		{
			name:      "zero tracks overrides direct link",
			numTracks: 0,
			tralbum: map[string]any{
				"freeDownloadPage": "https://bandcamp.com/download?id=1",
				"current":          map[string]any{"require_email": 1},
			},
			want: model.FreeDownloadUnavailable,
		},
		{
			name:      "zero tracks overrides email",
			numTracks: 0,
			tralbum:   map[string]any{"current": map[string]any{"require_email": 1}},
			want:      model.FreeDownloadUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ld := albumLD()
			ld["numTracks"] = tt.numTracks

			info, err := NewExtractor().ParseRelease(page(t, ld, tt.tralbum))
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.FreeDownload.Status)
		})
	}
}

func TestExtractor_ParseRelease_TrackUsesContainingAlbumCount(t *testing.T) {
	t.Parallel()

	ld := trackLD()
	ld["inAlbum"].(map[string]any)["numTracks"] = 0
	tralbum := map[string]any{"freeDownloadPage": "https://bandcamp.com/download?id=2"}

	info, err := NewExtractor().ParseRelease(page(t, ld, tralbum))
	require.NoError(t, err)
	assert.Equal(t, model.FreeDownloadUnavailable, info.FreeDownload.Status)
}

func TestExtractor_ParseRelease_Errors(t *testing.T) {
	t.Parallel()

	tralbum := map[string]any{"current": map[string]any{"require_email": 0}}

	tests := []struct {
		name   string
		mutate func(ld map[string]any)
		want   error
	}{
		{"unknown type", func(ld map[string]any) { ld["@type"] = "MusicPlaylist" }, ErrUnrecognizedKind},
		{"missing type", func(ld map[string]any) { delete(ld, "@type") }, ErrUnrecognizedKind},
		{"missing release", func(ld map[string]any) { delete(ld, "albumRelease") }, ErrMissingField},
		{"missing item id", func(ld map[string]any) {
			ld["albumRelease"].([]any)[0].(map[string]any)["additionalProperty"] = []any{}
		}, ErrMissingField},
		{"null name", func(ld map[string]any) {
			ld["albumRelease"].([]any)[0].(map[string]any)["name"] = nil
		}, ErrMissingField},
		{"missing publisher", func(ld map[string]any) { delete(ld, "publisher") }, ErrMissingField},
		{"missing artist name", func(ld map[string]any) { ld["byArtist"] = map[string]any{} }, ErrMissingField},
		{"missing date", func(ld map[string]any) { delete(ld, "datePublished") }, ErrMissingField},
		{"malformed date", func(ld map[string]any) { ld["datePublished"] = "2022-01-30" }, ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ld := albumLD()
			tt.mutate(ld)

			_, err := NewExtractor().ParseRelease(page(t, ld, tralbum))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestExtractor_ParseRelease_MissingPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
	}{
		{"no ld+json", `<html><script data-tralbum="{}"></script></html>`},
		{"no tralbum", `<html><script type="application/ld+json">{"@type":"MusicAlbum"}</script></html>`},
		{"broken ld+json", `<html><script type="application/ld+json">{nope</script><script data-tralbum="{}"></script></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor().ParseRelease(tt.html)
			assert.True(t, errors.Is(err, ErrMissingField), "got %v", err)
		})
	}
}

func TestParsePublished(t *testing.T) {
	t.Parallel()

	got, err := ParsePublished("09 Dec 2019 23:59:01 GMT")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 12, 9, 23, 59, 1, 0, time.UTC), got)

	for _, bad := range []string{"", "9 Dec 2019 23:59:01 GMT", "09 December 2019 23:59:01", "09 Dec 2019"} {
		_, err := ParsePublished(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestExtractor_PageData(t *testing.T) {
	t.Parallel()

	blob := `{"download_items":[{"downloads":{"flac":{"url":"https://popplers5.bandcamp.com/download/album?enc=flac&id=1"}}}]}`
	markup := `<html><div id="pagedata" data-blob="` + html.EscapeString(blob) + `"></div></html>`

	data, ok := NewExtractor().PageData(markup)
	require.True(t, ok)
	assert.Equal(t, "https://popplers5.bandcamp.com/download/album?enc=flac&id=1",
		data.Get("download_items.0.downloads.flac.url").String())

	_, ok = NewExtractor().PageData(`<html><div id="pagedata"></div></html>`)
	assert.False(t, ok)
}

func TestFirstLink(t *testing.T) {
	t.Parallel()

	href, ok := FirstLink(`<p>Hi</p><a href="https://bandcamp.com/download?id=9&amp;sig=x">Download</a><a href="https://other">x</a>`)
	require.True(t, ok)
	assert.Equal(t, "https://bandcamp.com/download?id=9&sig=x", href)

	_, ok = FirstLink(`<p>no links</p>`)
	assert.False(t, ok)
}

func TestDiscography_GetItemURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		html    string
		want    []string
		wantErr bool
	}{
		{
			name: "music grid",
			html: `<html><body><ol id="music-grid">
				<li><a href="/album/first-album">First</a></li>
				<li><a href="/track/single-track">Single</a></li>
				<li><a href="/album/first-album">Dup</a></li>
			</ol><a href="/album/not-in-grid">x</a></body></html>`,
			want: []string{"/album/first-album", "/track/single-track"},
		},
		{
			name: "single album artist page",
			html: `<html><body>
				<div id="discography"></div>
				<a href="/album/only-album">Only Album</a>
				<a href="/album/only-album">Again</a>
			</body></html>`,
			want: []string{"/album/only-album"},
		},
		{
			name:    "no albums found",
			html:    `<html><body>No music here</body></html>`,
			wantErr: true,
		},
	}

	d := NewDiscography()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls, err := d.GetItemURLs(tt.html)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoAlbumFound)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, urls)
		})
	}
}

func TestDiscography_Resolve(t *testing.T) {
	t.Parallel()

	artist, err := url.Parse("https://artist.bandcamp.com/music")
	require.NoError(t, err)

	got := NewDiscography().Resolve(artist, []string{"/album/a", "/track/b?from=grid"})
	require.Len(t, got, 2)
	assert.Equal(t, "https://artist.bandcamp.com/album/a", got[0].String())
	assert.True(t, strings.HasPrefix(got[1].String(), "https://artist.bandcamp.com/track/b"))
}
