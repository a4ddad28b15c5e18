package toolkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.InstallVerifier = (*MarkerVerifier)(nil)

// MarkerVerifier checks that a set of files exists under the toolkit root
// after a checkout. A missing marker means the checkout left the install
// broken and the update must be rolled back.
type MarkerVerifier struct {
	root    string
	markers []string
}

// NewMarkerVerifier creates a MarkerVerifier for the given root and
// root-relative marker paths.
func NewMarkerVerifier(root string, markers []string) *MarkerVerifier {
	return &MarkerVerifier{root: root, markers: markers}
}

// Verify returns an error naming the first missing marker file.
func (v *MarkerVerifier) Verify(_ context.Context) error {
	for _, marker := range v.markers {
		path := filepath.Join(v.root, marker)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("install verification: %s is missing", marker)
			}
			return fmt.Errorf("install verification: stat %s: %w", marker, err)
		}
	}

	return nil
}
