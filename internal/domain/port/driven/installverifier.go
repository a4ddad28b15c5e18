package driven

import "context"

// InstallVerifier defines the driven port for post-checkout validation of
// the toolkit installation. A non-nil error marks the checkout as broken
// and triggers rollback.
type InstallVerifier interface {
	Verify(ctx context.Context) error
}
