package model

import "time"

// Release is a published toolkit release as reported by the release source.
type Release struct {
	Version     Version
	TagName     string // tag as published, e.g. "v1.8.0"
	Changelog   string // release notes in Markdown
	PublishedAt time.Time
	CommitRef   string // target commitish of the tag, may be empty
	URL         string
	Prerelease  bool
}

// CachedRelease pairs a release with the time it was fetched from the source.
type CachedRelease struct {
	Release   Release
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched.
func (c CachedRelease) Age(now time.Time) time.Duration {
	return now.Sub(c.FetchedAt)
}

// Expired reports whether the entry is older than ttl.
func (c CachedRelease) Expired(now time.Time, ttl time.Duration) bool {
	return c.Age(now) >= ttl
}
