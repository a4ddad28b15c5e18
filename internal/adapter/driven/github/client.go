// Package github implements the ReleaseSource port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReleaseSource = (*Client)(nil)

// Client implements the driven.ReleaseSource port against the GitHub
// Releases API.
type Client struct {
	gh              *gh.Client
	owner           string
	repo            string
	allowPrerelease bool
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// token may be empty: release listings on public repositories work
// unauthenticated, only with a lower rate limit.
func NewClient(token, repoFullName string, allowPrerelease bool) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{
		gh:              client,
		owner:           owner,
		repo:            repo,
		allowPrerelease: allowPrerelease,
	}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, repoFullName string, allowPrerelease bool) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:              client,
		owner:           owner,
		repo:            repo,
		allowPrerelease: allowPrerelease,
	}, nil
}

// LatestRelease returns the newest eligible release. Without
// allowPrerelease it uses the "latest" endpoint, which GitHub already
// restricts to non-draft, non-prerelease entries; with it, recent releases
// are listed and the highest version wins.
func (c *Client) LatestRelease(ctx context.Context) (model.Release, error) {
	if c.allowPrerelease {
		return c.latestIncludingPrereleases(ctx)
	}

	rel, resp, err := c.gh.Repositories.GetLatestRelease(ctx, c.owner, c.repo)
	if err != nil {
		return model.Release{}, fmt.Errorf("fetching latest release for %s/%s: %w", c.owner, c.repo, err)
	}
	logRateLimit(resp, "latest-release")

	return mapRelease(rel)
}

// latestIncludingPrereleases lists the most recent releases and picks the
// highest-versioned non-draft among them, using full semver precedence so
// "1.9.0-rc.1" beats "1.8.0" but not "1.9.0". Releases whose tags do not
// parse as versions (e.g. "nightly") are skipped with a warning.
func (c *Client) latestIncludingPrereleases(ctx context.Context) (model.Release, error) {
	opts := &gh.ListOptions{PerPage: 30}

	rels, resp, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo, opts)
	if err != nil {
		return model.Release{}, fmt.Errorf("listing releases for %s/%s: %w", c.owner, c.repo, err)
	}
	logRateLimit(resp, "list-releases")

	var best *model.Release
	for _, rel := range rels {
		if rel.GetDraft() {
			continue
		}
		mapped, err := mapRelease(rel)
		if err != nil {
			slog.Warn("skipping release with unparsable tag",
				"repo", c.owner+"/"+c.repo,
				"tag", rel.GetTagName(),
				"error", err)
			continue
		}
		if best == nil || mapped.Version.ComparePrerelease(best.Version) > 0 {
			cp := mapped
			best = &cp
		}
	}
	if best == nil {
		return model.Release{}, fmt.Errorf("no versioned releases found for %s/%s", c.owner, c.repo)
	}
	return *best, nil
}

// mapRelease converts a go-github RepositoryRelease to a domain model Release.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapRelease(rel *gh.RepositoryRelease) (model.Release, error) {
	version, err := model.ParseVersion(rel.GetTagName())
	if err != nil {
		return model.Release{}, fmt.Errorf("release tag %q: %w", rel.GetTagName(), err)
	}

	return model.Release{
		Version:     version,
		TagName:     rel.GetTagName(),
		Changelog:   rel.GetBody(),
		PublishedAt: rel.GetPublishedAt().Time,
		CommitRef:   rel.GetTargetCommitish(),
		URL:         rel.GetHTMLURL(),
		Prerelease:  rel.GetPrerelease(),
	}, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
