package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// --- Test doubles for the executor ---

type fakeWorkingTree struct {
	current      string
	currentErr   error
	fetchErr     error
	checkoutErrs map[string]error
	checkouts    []string
	fetches      int
}

func (f *fakeWorkingTree) CurrentRef(_ context.Context) (string, error) {
	if f.currentErr != nil {
		return "", f.currentErr
	}
	return f.current, nil
}

func (f *fakeWorkingTree) Fetch(_ context.Context) error {
	f.fetches++
	return f.fetchErr
}

func (f *fakeWorkingTree) Checkout(_ context.Context, ref string) error {
	if err := f.checkoutErrs[ref]; err != nil {
		return err
	}
	f.checkouts = append(f.checkouts, ref)
	f.current = ref
	return nil
}

type fakeMigrationRunner struct {
	ran   bool
	err   error
	calls []model.Version
}

func (f *fakeMigrationRunner) Run(_ context.Context, version model.Version) (bool, error) {
	f.calls = append(f.calls, version)
	return f.ran, f.err
}

type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) Verify(_ context.Context) error {
	f.calls++
	return f.err
}

func executorFixture() (*fakeWorkingTree, *fakeMigrationRunner, *fakeVerifier, *UpdateService) {
	tree := &fakeWorkingTree{current: "abc123", checkoutErrs: map[string]error{}}
	migrations := &fakeMigrationRunner{}
	verifier := &fakeVerifier{}
	return tree, migrations, verifier, NewUpdateService(tree, migrations, verifier)
}

func TestExecuteSuccess(t *testing.T) {
	tree, migrations, verifier, svc := executorFixture()

	result, err := svc.Execute(context.Background(), testRelease("1.8.0"))

	require.NoError(t, err)
	assert.Equal(t, model.UpdateOutcomeUpdated, result.Outcome)
	assert.Equal(t, "abc123", result.PreviousRef)
	assert.Equal(t, "v1.8.0", result.NewRef)
	assert.Empty(t, result.Error)
	assert.Empty(t, result.MigrationWarnings)
	assert.Equal(t, []string{"v1.8.0"}, tree.checkouts)
	assert.Equal(t, 1, tree.fetches)
	assert.Equal(t, []model.Version{model.MustParseVersion("1.8.0")}, migrations.calls)
	assert.Equal(t, 1, verifier.calls)
}

func TestExecuteSnapshotFailureAbortsBeforeMutation(t *testing.T) {
	tree, _, _, svc := executorFixture()
	tree.currentErr = errors.New("not a git repository")

	result, err := svc.Execute(context.Background(), testRelease("1.8.0"))

	require.NoError(t, err)
	assert.Equal(t, model.UpdateOutcomeFailed, result.Outcome)
	assert.Contains(t, result.Error, "snapshot current ref")
	assert.Empty(t, tree.checkouts, "nothing may be mutated without a snapshot")
	assert.Zero(t, tree.fetches)
}

func TestExecuteFetchFailureLeavesTreeUntouched(t *testing.T) {
	tree, _, verifier, svc := executorFixture()
	tree.fetchErr = errors.New("remote unreachable")

	result, err := svc.Execute(context.Background(), testRelease("1.8.0"))

	require.NoError(t, err)
	assert.Equal(t, model.UpdateOutcomeFailed, result.Outcome)
	assert.Equal(t, "abc123", result.PreviousRef)
	assert.Contains(t, result.Error, "fetch remote refs")
	assert.Equal(t, "abc123", tree.current)
	assert.Empty(t, tree.checkouts)
	assert.Zero(t, verifier.calls)
}

func TestExecuteCheckoutFailureRollsBack(t *testing.T) {
	tree, migrations, _, svc := executorFixture()
	tree.checkoutErrs["v1.8.0"] = errors.New("pathspec not found")

	result, err := svc.Execute(context.Background(), testRelease("1.8.0"))

	require.NoError(t, err)
	assert.Equal(t, model.UpdateOutcomeRolledBack, result.Outcome)
	assert.Equal(t, "abc123", result.PreviousRef)
	assert.Empty(t, result.NewRef)
	assert.Contains(t, result.Error, "checkout v1.8.0")
	assert.Equal(t, "abc123", tree.current, "tree restored to snapshot")
	assert.Empty(t, migrations.calls, "migration must not run after a failed checkout")
}

func TestExecuteVerifyFailureRollsBack(t *testing.T) {
	tree, _, verifier, svc := executorFixture()
	verifier.err = errors.New("marker file missing")

	result, err := svc.Execute(context.Background(), testRelease("1.8.0"))

	require.NoError(t, err)
	assert.Equal(t, model.UpdateOutcomeRolledBack, result.Outcome)
	assert.Contains(t, result.Error, "verify installation")
	assert.Equal(t, []string{"v1.8.0", "abc123"}, tree.checkouts)
	assert.Equal(t, "abc123", tree.current)
}

func TestExecuteMigrationFailureIsAdvisory(t *testing.T) {
	tree, migrations, _, svc := executorFixture()
	migrations.ran = true
	migrations.err = errors.New("script exited 1")

	result, err := svc.Execute(context.Background(), testRelease("1.8.0"))

	require.NoError(t, err)
	assert.Equal(t, model.UpdateOutcomeUpdated, result.Outcome, "migration failures never fail the update")
	assert.Equal(t, "v1.8.0", tree.current)
	require.Len(t, result.MigrationWarnings, 1)
	assert.Contains(t, result.MigrationWarnings[0], "script exited 1")
}

func TestExecuteRollbackFailureIsFatal(t *testing.T) {
	tree, _, _, svc := executorFixture()
	tree.checkoutErrs["v1.8.0"] = errors.New("checkout broke")
	tree.checkoutErrs["abc123"] = errors.New("rollback broke")

	result, err := svc.Execute(context.Background(), testRelease("1.8.0"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRollbackFailed)
	assert.Equal(t, model.UpdateOutcomeFailed, result.Outcome)
	assert.Equal(t, "abc123", result.PreviousRef)
	assert.Contains(t, result.Error, "checkout broke")
	assert.Contains(t, result.Error, "rollback broke")
}

func TestExecuteWithoutAnyTargetRef(t *testing.T) {
	tree, _, _, svc := executorFixture()
	release := model.Release{Version: model.MustParseVersion("1.8.0")}

	result, err := svc.Execute(context.Background(), release)

	require.NoError(t, err)
	assert.Equal(t, model.UpdateOutcomeFailed, result.Outcome)
	assert.Contains(t, result.Error, "neither tag nor commit ref")
	assert.Empty(t, tree.checkouts)
}

func TestExecuteFallsBackToCommitRef(t *testing.T) {
	tree, _, _, svc := executorFixture()
	release := model.Release{Version: model.MustParseVersion("1.8.0"), CommitRef: "deadbeef"}

	result, err := svc.Execute(context.Background(), release)

	require.NoError(t, err)
	assert.Equal(t, model.UpdateOutcomeUpdated, result.Outcome)
	assert.Equal(t, "deadbeef", result.NewRef)
	assert.Equal(t, []string{"deadbeef"}, tree.checkouts)
}
