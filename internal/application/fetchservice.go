package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// ErrFetchUnavailable is returned when the release source fails and no
// cached release exists to fall back on.
var ErrFetchUnavailable = errors.New("release source unavailable and no cached release")

// FetchFreshness describes where a release returned by Latest came from.
type FetchFreshness string

const (
	// FetchFresh means the release was fetched from the source just now.
	FetchFresh FetchFreshness = "fresh"
	// FetchCached means a cache entry within its TTL was served.
	FetchCached FetchFreshness = "cached"
	// FetchStale means the source failed and an expired cache entry was
	// served instead.
	FetchStale FetchFreshness = "stale"
)

// FetchService resolves the latest release through a TTL cache, falling back
// to stale cache entries when the source is unreachable. A fetch only fails
// outright when there is no cache at all.
type FetchService struct {
	source driven.ReleaseSource
	cache  driven.ReleaseCache
	ttl    time.Duration
	now    func() time.Time
}

// NewFetchService creates a FetchService. A non-positive ttl falls back to
// one hour.
func NewFetchService(source driven.ReleaseSource, cache driven.ReleaseCache, ttl time.Duration) *FetchService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FetchService{
		source: source,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Latest returns the newest known release. Within the TTL the cached entry is
// returned without contacting the source; forceRefresh bypasses the TTL but
// not the stale fallback.
func (s *FetchService) Latest(ctx context.Context, forceRefresh bool) (model.Release, FetchFreshness, error) {
	cached, cacheErr := s.cache.Get(ctx)
	haveCache := cacheErr == nil
	if cacheErr != nil && !errors.Is(cacheErr, driven.ErrNoCachedRelease) {
		slog.Warn("release cache unreadable, treating as empty", "error", cacheErr)
	}

	if haveCache && !forceRefresh && !cached.Expired(s.now(), s.ttl) {
		slog.Debug("serving cached release",
			"version", cached.Release.Version,
			"age", cached.Age(s.now()).Round(time.Second))
		return cached.Release, FetchCached, nil
	}

	release, err := s.source.LatestRelease(ctx)
	if err != nil {
		if haveCache {
			slog.Warn("release source failed, serving stale cache",
				"version", cached.Release.Version,
				"age", cached.Age(s.now()).Round(time.Second),
				"error", err)
			return cached.Release, FetchStale, nil
		}
		return model.Release{}, "", fmt.Errorf("%w: %w", ErrFetchUnavailable, err)
	}

	entry := model.CachedRelease{Release: release, FetchedAt: s.now()}
	if err := s.cache.Put(ctx, entry); err != nil {
		// The fetch itself succeeded; a cache write failure only costs
		// the next call a remote round trip.
		slog.Warn("failed to cache release", "version", release.Version, "error", err)
	}
	return release, FetchFresh, nil
}

// ClearCache removes any cached release.
func (s *FetchService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
