// Package git adapts a local clone of the toolkit repository to the
// WorkingTree port using go-git. No git binary is required.
package git

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WorkingTree = (*Worktree)(nil)

const remoteName = "origin"

// Worktree wraps an existing local clone. The clone is never created here;
// pointing at a directory that is not a git repository is an Open error.
type Worktree struct {
	repo *gogit.Repository
	path string
}

// Open opens the git repository rooted at path.
func Open(path string) (*Worktree, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", path, err)
	}

	return &Worktree{repo: repo, path: path}, nil
}

// CurrentRef returns the short branch name when HEAD is attached, otherwise
// the full commit hash. Both forms restore the same state through Checkout.
func (w *Worktree) CurrentRef(_ context.Context) (string, error) {
	head, err := w.repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}

	if name := head.Name(); name.IsBranch() {
		return name.Short(), nil
	}

	return head.Hash().String(), nil
}

// Fetch updates tags and remote-tracking branches from origin. An
// already-up-to-date remote is not an error.
func (w *Worktree) Fetch(ctx context.Context) error {
	err := w.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: remoteName,
		RefSpecs: []config.RefSpec{
			"refs/tags/*:refs/tags/*",
			"+refs/heads/*:refs/remotes/" + remoteName + "/*",
		},
		Force: true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", remoteName, err)
	}

	return nil
}

// Checkout switches the working tree to ref. Local branch names stay
// attached; tags and commit hashes leave HEAD detached. Tracked files are
// forced so a rollback checkout cannot be blocked by a half-applied update.
func (w *Worktree) Checkout(_ context.Context, ref string) error {
	wt, err := w.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	branchName := plumbing.NewBranchReferenceName(ref)
	if _, err := w.repo.Reference(branchName, true); err == nil {
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branchName, Force: true}); err != nil {
			return fmt.Errorf("checkout branch %s: %w", ref, err)
		}
		return nil
	}

	hash, err := w.resolveRef(ref)
	if err != nil {
		return err
	}

	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}

	return nil
}

// resolveRef tries the ref as given, then as a tag, then with a leading v.
func (w *Worktree) resolveRef(ref string) (plumbing.Hash, error) {
	candidates := []string{
		ref,
		"refs/tags/" + ref,
		"v" + ref,
		"refs/tags/v" + ref,
	}

	for _, candidate := range candidates {
		if hash, err := w.repo.ResolveRevision(plumbing.Revision(candidate)); err == nil {
			return *hash, nil
		}
	}

	return plumbing.ZeroHash, fmt.Errorf("resolve ref %q in %s: no matching revision", ref, w.path)
}
