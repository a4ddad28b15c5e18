package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// ErrNoCachedRelease is returned by ReleaseCache.Get when nothing is cached.
var ErrNoCachedRelease = errors.New("no cached release")

// ReleaseCache defines the driven port for the persisted latest-release
// cache. The cache holds at most one entry; Put replaces it atomically.
type ReleaseCache interface {
	Get(ctx context.Context) (model.CachedRelease, error)
	Put(ctx context.Context, entry model.CachedRelease) error
	// Clear removes the entry. Clearing an empty cache is a no-op.
	Clear(ctx context.Context) error
}
