package statefile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// latestReleaseKey identifies the single cache slot in the cache file.
const latestReleaseKey = "latest_release"

const cacheFileName = "cache.json"

// Compile-time interface satisfaction check.
var _ driven.ReleaseCache = (*CacheStore)(nil)

// CacheStore implements driven.ReleaseCache on a single JSON file.
type CacheStore struct {
	path string
}

// NewCacheStore creates a CacheStore rooted at stateDir.
func NewCacheStore(stateDir string) *CacheStore {
	return &CacheStore{path: filepath.Join(stateDir, cacheFileName)}
}

// cacheDocument is the on-disk shape of the cache file.
type cacheDocument struct {
	CacheKey  string          `json:"cache_key"`
	FetchedAt time.Time       `json:"fetched_at"`
	Release   releaseDocument `json:"release"`
}

type releaseDocument struct {
	Version     model.Version `json:"version"`
	TagName     string        `json:"tag_name"`
	Changelog   string        `json:"changelog"`
	PublishedAt time.Time     `json:"published_at"`
	CommitRef   string        `json:"commit_ref,omitempty"`
	URL         string        `json:"url,omitempty"`
	Prerelease  bool          `json:"prerelease,omitempty"`
}

func (s *CacheStore) Get(_ context.Context) (model.CachedRelease, error) {
	var doc cacheDocument
	missing, err := readJSON(s.path, &doc)
	if err != nil {
		return model.CachedRelease{}, err
	}
	if missing {
		return model.CachedRelease{}, driven.ErrNoCachedRelease
	}
	if doc.CacheKey != latestReleaseKey {
		return model.CachedRelease{}, fmt.Errorf("unexpected cache key %q in %s", doc.CacheKey, s.path)
	}

	return model.CachedRelease{
		Release: model.Release{
			Version:     doc.Release.Version,
			TagName:     doc.Release.TagName,
			Changelog:   doc.Release.Changelog,
			PublishedAt: doc.Release.PublishedAt,
			CommitRef:   doc.Release.CommitRef,
			URL:         doc.Release.URL,
			Prerelease:  doc.Release.Prerelease,
		},
		FetchedAt: doc.FetchedAt,
	}, nil
}

func (s *CacheStore) Put(_ context.Context, entry model.CachedRelease) error {
	doc := cacheDocument{
		CacheKey:  latestReleaseKey,
		FetchedAt: entry.FetchedAt,
		Release: releaseDocument{
			Version:     entry.Release.Version,
			TagName:     entry.Release.TagName,
			Changelog:   entry.Release.Changelog,
			PublishedAt: entry.Release.PublishedAt,
			CommitRef:   entry.Release.CommitRef,
			URL:         entry.Release.URL,
			Prerelease:  entry.Release.Prerelease,
		},
	}
	return writeJSON(s.path, doc)
}

func (s *CacheStore) Clear(_ context.Context) error {
	return removeFile(s.path)
}
