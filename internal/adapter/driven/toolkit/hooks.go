// Package toolkit adapts the toolkit installation directory itself: the
// migration scripts a release ships, the marker files that prove a checkout
// is intact, and the VERSION file naming the installed release.
package toolkit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MigrationRunner = (*HookRunner)(nil)

const hooksDir = "migrations"

// HookRunner executes the per-version migration script a release ships at
// migrations/<version>.sh, relative to the toolkit root. Releases without
// a script are the common case.
type HookRunner struct {
	root string
}

// NewHookRunner creates a HookRunner for the toolkit rooted at root.
func NewHookRunner(root string) *HookRunner {
	return &HookRunner{root: root}
}

// Run executes the migration script for the version through /bin/sh, so the
// script itself needs no execute bit. Returns ran=false when the release
// ships no script.
func (h *HookRunner) Run(ctx context.Context, version model.Version) (bool, error) {
	script := filepath.Join(h.root, hooksDir, version.String()+".sh")

	if _, err := os.Stat(script); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat migration script: %w", err)
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", script)
	cmd.Dir = h.root

	output, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg == "" {
			return true, fmt.Errorf("migration script for %s: %w", version, err)
		}
		return true, fmt.Errorf("migration script for %s: %w: %s", version, err, msg)
	}

	slog.Debug("migration script completed", "version", version.String(), "output", strings.TrimSpace(string(output)))
	return true, nil
}
