package driven

import "context"

// WorkingTree defines the driven port for the toolkit's version-control
// checkout. Refs are opaque strings: tags, branch names, or commit hashes.
type WorkingTree interface {
	// CurrentRef returns a ref that Checkout can later restore exactly.
	CurrentRef(ctx context.Context) (string, error)
	// Fetch brings remote tags and branches into the local clone without
	// touching the checked-out files.
	Fetch(ctx context.Context) error
	Checkout(ctx context.Context, ref string) error
}
