package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// ErrRollbackFailed marks the one unrecoverable executor state: the checkout
// or verification failed AND restoring the snapshot failed too, leaving the
// working tree on a broken ref.
var ErrRollbackFailed = errors.New("rollback failed, working tree left in inconsistent state")

// UpdateService applies a release to the toolkit working tree. Every mutation
// is guarded by a snapshot of the current ref; structural failures roll back
// to it, migration failures are advisory and never change the outcome.
type UpdateService struct {
	tree       driven.WorkingTree
	migrations driven.MigrationRunner
	verifier   driven.InstallVerifier
}

// NewUpdateService creates an UpdateService with the required collaborators.
func NewUpdateService(tree driven.WorkingTree, migrations driven.MigrationRunner, verifier driven.InstallVerifier) *UpdateService {
	return &UpdateService{
		tree:       tree,
		migrations: migrations,
		verifier:   verifier,
	}
}

// Execute moves the working tree to the release and verifies the result.
// The step order is deliberate: snapshot and fetch failures abort with the
// tree untouched; checkout and verification failures roll back to the
// snapshot; a migration failure after a successful checkout is recorded as
// a warning on an otherwise successful result.
//
// The returned error is non-nil only for the unrecoverable double failure
// (rollback itself failed); every other failure is expressed through
// UpdateResult.Outcome and UpdateResult.Error.
func (s *UpdateService) Execute(ctx context.Context, release model.Release) (model.UpdateResult, error) {
	result := model.UpdateResult{Version: release.Version}

	target := release.TagName
	if target == "" {
		target = release.CommitRef
	}
	if target == "" {
		result.Outcome = model.UpdateOutcomeFailed
		result.Error = fmt.Sprintf("release %s has neither tag nor commit ref", release.Version)
		return result, nil
	}

	snapshot, err := s.tree.CurrentRef(ctx)
	if err != nil {
		result.Outcome = model.UpdateOutcomeFailed
		result.Error = fmt.Sprintf("snapshot current ref: %v", err)
		return result, nil
	}
	result.PreviousRef = snapshot

	if err := s.tree.Fetch(ctx); err != nil {
		result.Outcome = model.UpdateOutcomeFailed
		result.Error = fmt.Sprintf("fetch remote refs: %v", err)
		return result, nil
	}

	slog.Info("updating working tree", "target", target, "snapshot", snapshot)
	if err := s.tree.Checkout(ctx, target); err != nil {
		return s.rollback(ctx, result, snapshot, fmt.Errorf("checkout %s: %w", target, err))
	}
	result.NewRef = target

	if ran, err := s.migrations.Run(ctx, release.Version); err != nil {
		warning := fmt.Sprintf("migration for %s failed: %v", release.Version, err)
		slog.Warn("migration failed, update stands", "version", release.Version, "error", err)
		result.MigrationWarnings = append(result.MigrationWarnings, warning)
	} else if ran {
		slog.Info("migration completed", "version", release.Version)
	}

	if err := s.verifier.Verify(ctx); err != nil {
		return s.rollback(ctx, result, snapshot, fmt.Errorf("verify installation: %w", err))
	}

	result.Outcome = model.UpdateOutcomeUpdated
	slog.Info("update applied", "version", release.Version, "ref", target)
	return result, nil
}

// rollback restores the snapshot after a structural failure. When the
// restore itself fails the result is fatal and surfaced as an error.
func (s *UpdateService) rollback(ctx context.Context, result model.UpdateResult, snapshot string, cause error) (model.UpdateResult, error) {
	slog.Warn("update failed, rolling back", "snapshot", snapshot, "error", cause)

	if rbErr := s.tree.Checkout(ctx, snapshot); rbErr != nil {
		result.Outcome = model.UpdateOutcomeFailed
		result.Error = fmt.Sprintf("%v; rollback to %s failed: %v", cause, snapshot, rbErr)
		return result, fmt.Errorf("%w: after %v: %w", ErrRollbackFailed, cause, rbErr)
	}

	result.Outcome = model.UpdateOutcomeRolledBack
	result.NewRef = ""
	result.Error = cause.Error()
	slog.Info("rollback complete", "ref", snapshot)
	return result, nil
}
