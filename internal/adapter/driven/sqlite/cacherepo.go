package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReleaseCache = (*CacheRepo)(nil)

// latestReleaseKey is the only row key used; the cache holds one entry.
const latestReleaseKey = "latest_release"

// CacheRepo is the SQLite implementation of the ReleaseCache port interface.
type CacheRepo struct {
	db *DB
}

// NewCacheRepo creates a new CacheRepo backed by the given DB.
func NewCacheRepo(db *DB) *CacheRepo {
	return &CacheRepo{db: db}
}

// Get returns the cached latest release. Returns driven.ErrNoCachedRelease
// when nothing has been cached yet.
func (r *CacheRepo) Get(ctx context.Context) (model.CachedRelease, error) {
	const query = `SELECT version, tag_name, changelog, published_at, commit_ref, url, prerelease, fetched_at
		FROM release_cache WHERE cache_key = ?`

	var (
		entry       model.CachedRelease
		version     string
		publishedAt string
		prerelease  int
		fetchedAt   string
	)

	err := r.db.Reader.QueryRowContext(ctx, query, latestReleaseKey).Scan(
		&version, &entry.Release.TagName, &entry.Release.Changelog,
		&publishedAt, &entry.Release.CommitRef, &entry.Release.URL,
		&prerelease, &fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CachedRelease{}, driven.ErrNoCachedRelease
	}
	if err != nil {
		return model.CachedRelease{}, fmt.Errorf("get cached release: %w", err)
	}

	entry.Release.Version, err = model.ParseVersion(version)
	if err != nil {
		return model.CachedRelease{}, fmt.Errorf("parse cached version: %w", err)
	}
	entry.Release.Prerelease = prerelease != 0

	entry.Release.PublishedAt, err = parseTime(publishedAt)
	if err != nil {
		return model.CachedRelease{}, fmt.Errorf("parse published_at: %w", err)
	}

	entry.FetchedAt, err = parseTime(fetchedAt)
	if err != nil {
		return model.CachedRelease{}, fmt.Errorf("parse fetched_at: %w", err)
	}

	return entry, nil
}

// Put stores the entry, replacing any previous one.
func (r *CacheRepo) Put(ctx context.Context, entry model.CachedRelease) error {
	const query = `INSERT INTO release_cache (cache_key, version, tag_name, changelog, published_at, commit_ref, url, prerelease, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			version = excluded.version,
			tag_name = excluded.tag_name,
			changelog = excluded.changelog,
			published_at = excluded.published_at,
			commit_ref = excluded.commit_ref,
			url = excluded.url,
			prerelease = excluded.prerelease,
			fetched_at = excluded.fetched_at`

	prerelease := 0
	if entry.Release.Prerelease {
		prerelease = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		latestReleaseKey, entry.Release.Version.String(), entry.Release.TagName,
		entry.Release.Changelog, entry.Release.PublishedAt.UTC(),
		entry.Release.CommitRef, entry.Release.URL, prerelease,
		entry.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put cached release: %w", err)
	}

	return nil
}

// Clear removes the cached entry. Clearing an empty cache is a no-op.
func (r *CacheRepo) Clear(ctx context.Context) error {
	const query = `DELETE FROM release_cache WHERE cache_key = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, latestReleaseKey); err != nil {
		return fmt.Errorf("clear cached release: %w", err)
	}

	return nil
}
