package driven

import (
	"context"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// ReleaseSource defines the driven port for the remote release listing.
// Implementations decide which releases are eligible (e.g. whether
// pre-releases count); drafts are never returned.
type ReleaseSource interface {
	// LatestRelease returns the newest eligible release. Any transport,
	// auth, or parse failure is returned as an error; callers handle
	// degradation.
	LatestRelease(ctx context.Context) (model.Release, error)
}
