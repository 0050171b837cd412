package cache_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/bandcamp-free-downloader/internal/cache"
	"github.com/handiism/bandcamp-free-downloader/internal/model"
)

func TestReleasesCache_Fetch(t *testing.T) {
	t.Parallel()

	c := cache.New()
	t.Cleanup(c.Stop)

	calls := 0
	fetch := func() (*model.ReleaseInfo, error) {
		calls++
		return &model.ReleaseInfo{Name: "Name"}, nil
	}

	first, err := c.Releases.Fetch("https://a.bandcamp.com/album/x", cache.DefaultReleaseTTL, fetch)
	require.NoError(t, err)
	second, err := c.Releases.Fetch("https://a.bandcamp.com/album/x", cache.DefaultReleaseTTL, fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
}

func TestReleasesCache_FetchErrorNotCached(t *testing.T) {
	t.Parallel()

	c := cache.New()
	t.Cleanup(c.Stop)

	boom := errors.New("boom")
	_, err := c.Releases.Fetch("k", cache.DefaultReleaseTTL, func() (*model.ReleaseInfo, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	got, err := c.Releases.Fetch("k", cache.DefaultReleaseTTL, func() (*model.ReleaseInfo, error) {
		return &model.ReleaseInfo{Name: "ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Name)
}
