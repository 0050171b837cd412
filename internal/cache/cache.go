// Package cache keeps parsed release pages in memory.
//
// A batch may name the same release twice (an album URL plus its artist
// page), and fix-folder needs the metadata of every release of an artist.
// Caching parsed pages saves refetching them within one process.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/handiism/bandcamp-free-downloader/internal/model"
)

var DefaultReleaseTTL = 1 * time.Hour

type Cache struct {
	Releases ReleasesCache
}

func New() *Cache {
	releasesCache := ccache.New(
		ccache.Configure[*model.ReleaseInfo]().
			MaxSize(1000).
			GetsPerPromote(3).
			PercentToPrune(10),
	)

	return &Cache{
		Releases: ReleasesCache{
			c:   releasesCache,
			mux: sync.Mutex{},
		},
	}
}

// Stop releases the cache's background worker.
func (c *Cache) Stop() {
	c.Releases.c.Stop()
}

// ReleasesCache maps release page URLs to their parsed metadata.
type ReleasesCache struct {
	c   *ccache.Cache[*model.ReleaseInfo]
	mux sync.Mutex
}

// Fetch returns the cached release for k, calling fetch on a miss or after
// expiry. Failed fetches are not cached.
func (c *ReleasesCache) Fetch(
	k string,
	ttl time.Duration,
	fetch func() (*model.ReleaseInfo, error),
) (*model.ReleaseInfo, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	v, err := c.c.Fetch(k, ttl, fetch)
	if err != nil {
		return nil, fmt.Errorf("fetch release: %w", err)
	}

	return v.Value(), nil
}
