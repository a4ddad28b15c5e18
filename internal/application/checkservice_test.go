package application

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// --- Test doubles for the orchestrator ---

type fakeDismissalStore struct {
	records   map[string]model.Dismissal
	getErr    error
	upsertErr error
}

func newFakeDismissalStore() *fakeDismissalStore {
	return &fakeDismissalStore{records: map[string]model.Dismissal{}}
}

func (f *fakeDismissalStore) Get(_ context.Context, version model.Version) (*model.Dismissal, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if d, ok := f.records[version.String()]; ok {
		cp := d
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDismissalStore) Upsert(_ context.Context, dismissal model.Dismissal) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records[dismissal.Version.String()] = dismissal
	return nil
}

func (f *fakeDismissalStore) Delete(_ context.Context, version model.Version) error {
	delete(f.records, version.String())
	return nil
}

func (f *fakeDismissalStore) DeleteAll(_ context.Context) error {
	f.records = map[string]model.Dismissal{}
	return nil
}

func (f *fakeDismissalStore) DeleteOlderThan(_ context.Context, version model.Version) error {
	for key, d := range f.records {
		if d.Version.Compare(version) < 0 {
			delete(f.records, key)
		}
	}
	return nil
}

func (f *fakeDismissalStore) List(_ context.Context) ([]model.Dismissal, error) {
	out := make([]model.Dismissal, 0, len(f.records))
	for _, d := range f.records {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version.Compare(out[j].Version) < 0 })
	return out, nil
}

type checkFixture struct {
	source     *stubReleaseSource
	cache      *stubReleaseCache
	dismissals *fakeDismissalStore
	tree       *fakeWorkingTree
	svc        *CheckService
}

func newCheckFixture(current string, latest model.Release, ordering VersionOrdering) *checkFixture {
	source := &stubReleaseSource{release: latest}
	cache := &stubReleaseCache{}
	dismissals := newFakeDismissalStore()
	tree := &fakeWorkingTree{current: "abc123", checkoutErrs: map[string]error{}}
	executor := NewUpdateService(tree, &fakeMigrationRunner{}, &fakeVerifier{})

	fetch := NewFetchService(source, cache, time.Hour)
	fetch.now = fixedNow
	svc := NewCheckService(fetch, dismissals, executor, model.MustParseVersion(current), ordering)
	svc.now = fixedNow
	return &checkFixture{source: source, cache: cache, dismissals: dismissals, tree: tree, svc: svc}
}

func breakingRelease(version string) model.Release {
	r := testRelease(version)
	r.Changelog = "BREAKING: config format changed\nlodash: 4.17.20 -> 4.17.21"
	return r
}

func TestCheckReportsAvailableUpdate(t *testing.T) {
	fx := newCheckFixture("1.7.16", breakingRelease("1.8.0"), OrderingNumeric)

	report := fx.svc.Check(context.Background(), false)

	assert.True(t, report.UpdateAvailable)
	assert.Equal(t, "1.7.16", report.Current.String())
	require.NotNil(t, report.Latest)
	assert.Equal(t, "1.8.0", report.Latest.Version.String())
	assert.False(t, report.Dismissed)
	assert.False(t, report.Stale)
	assert.Empty(t, report.Warning)

	require.NotNil(t, report.Impact)
	assert.Equal(t, model.SeverityBreaking, report.Impact.Severity)
	assert.Equal(t, []string{"config format changed"}, report.Impact.BreakingChanges)

	assert.Contains(t, report.Notification, "1.7.16 -> 1.8.0")
	assert.Contains(t, report.Notification, "breaking")
}

func TestCheckUpToDate(t *testing.T) {
	fx := newCheckFixture("1.8.0", testRelease("1.8.0"), OrderingNumeric)

	report := fx.svc.Check(context.Background(), false)

	assert.False(t, report.UpdateAvailable)
	assert.Nil(t, report.Impact)
	assert.Empty(t, report.Notification)
	require.NotNil(t, report.Latest)
}

func TestCheckCurrentNewerThanLatest(t *testing.T) {
	fx := newCheckFixture("2.0.0", testRelease("1.8.0"), OrderingNumeric)

	report := fx.svc.Check(context.Background(), false)

	assert.False(t, report.UpdateAvailable)
}

func TestCheckDismissedVersionStaysQuiet(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)

	_, err := fx.svc.Dismiss(context.Background(), model.MustParseVersion("1.8.0"))
	require.NoError(t, err)

	report := fx.svc.Check(context.Background(), false)

	assert.True(t, report.UpdateAvailable, "availability is still reported")
	assert.True(t, report.Dismissed)
	assert.Empty(t, report.Notification, "dismissed versions do not notify")
}

func TestCheckNewerVersionNotifiesDespiteOlderDismissal(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	_, err := fx.svc.Dismiss(context.Background(), model.MustParseVersion("1.8.0"))
	require.NoError(t, err)

	// A newer release appears; the 1.8.0 dismissal must not apply to it.
	fx.source.release = testRelease("1.9.0")
	report := fx.svc.Check(context.Background(), true)

	assert.True(t, report.UpdateAvailable)
	assert.False(t, report.Dismissed)
	assert.NotEmpty(t, report.Notification)
}

func TestCheckPrunesSupersededDismissals(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	now := fixedNow()
	fx.dismissals.records["1.5.0"] = model.Dismissal{Version: model.MustParseVersion("1.5.0"), DismissedAt: now, CheckCount: 2}
	fx.dismissals.records["1.8.0"] = model.Dismissal{Version: model.MustParseVersion("1.8.0"), DismissedAt: now, CheckCount: 1}

	fx.svc.Check(context.Background(), false)

	_, oldKept := fx.dismissals.records["1.5.0"]
	assert.False(t, oldKept, "dismissals below the latest release are pruned")
	_, latestKept := fx.dismissals.records["1.8.0"]
	assert.True(t, latestKept, "the latest version's dismissal is still active")
}

func TestCheckDegradesWhenSourceAndCacheUnavailable(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	fx.source.err = errors.New("dial tcp: timeout")

	report := fx.svc.Check(context.Background(), false)

	assert.False(t, report.UpdateAvailable)
	assert.Nil(t, report.Latest)
	assert.NotEmpty(t, report.Warning)
	assert.Contains(t, report.Warning, "update check unavailable")
}

func TestCheckMarksStaleCache(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	fx.cache.entry = &model.CachedRelease{
		Release:   testRelease("1.8.0"),
		FetchedAt: fixedNow().Add(-3 * time.Hour),
	}
	fx.source.err = errors.New("503 service unavailable")

	report := fx.svc.Check(context.Background(), false)

	assert.True(t, report.UpdateAvailable)
	assert.True(t, report.Stale)
	assert.Contains(t, report.Notification, "expired cache")
}

func TestCheckDismissalStoreFailureDegrades(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	fx.dismissals.getErr = errors.New("state file corrupt")

	report := fx.svc.Check(context.Background(), false)

	assert.True(t, report.UpdateAvailable)
	assert.False(t, report.Dismissed, "unreadable state counts as not dismissed")
	assert.Contains(t, report.Warning, "dismissal state unreadable")
}

func TestCheckOrderingModes(t *testing.T) {
	// current 1.8.0-rc.1, latest release 1.8.0: the numeric ordering treats
	// them as equal, semver ordering sees the release as newer.
	release := testRelease("1.8.0")

	numeric := newCheckFixture("1.8.0-rc.1", release, OrderingNumeric)
	report := numeric.svc.Check(context.Background(), false)
	assert.False(t, report.UpdateAvailable)

	prerelease := newCheckFixture("1.8.0-rc.1", release, OrderingSemver)
	report = prerelease.svc.Check(context.Background(), false)
	assert.True(t, report.UpdateAvailable)
}

func TestDismissIncrementsCheckCount(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	version := model.MustParseVersion("1.8.0")

	dismissed, err := fx.svc.IsDismissed(context.Background(), version)
	require.NoError(t, err)
	assert.False(t, dismissed)

	first, err := fx.svc.Dismiss(context.Background(), version)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CheckCount)
	assert.Equal(t, fixedNow(), first.DismissedAt)

	second, err := fx.svc.Dismiss(context.Background(), version)
	require.NoError(t, err)
	assert.Equal(t, 2, second.CheckCount)

	dismissed, err = fx.svc.IsDismissed(context.Background(), version)
	require.NoError(t, err)
	assert.True(t, dismissed)
}

func TestClearDismissals(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	ctx := context.Background()

	_, err := fx.svc.Dismiss(ctx, model.MustParseVersion("1.8.0"))
	require.NoError(t, err)
	_, err = fx.svc.Dismiss(ctx, model.MustParseVersion("1.9.0"))
	require.NoError(t, err)

	require.NoError(t, fx.svc.ClearDismissal(ctx, model.MustParseVersion("1.8.0")))
	list, err := fx.svc.ListDismissals(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1.9.0", list[0].Version.String())

	require.NoError(t, fx.svc.ClearAllDismissals(ctx))
	list, err = fx.svc.ListDismissals(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCheckAndExecuteAppliesUpdate(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)

	report, result, err := fx.svc.CheckAndExecute(context.Background(), false)

	require.NoError(t, err)
	assert.True(t, report.UpdateAvailable)
	require.NotNil(t, result)
	assert.Equal(t, model.UpdateOutcomeUpdated, result.Outcome)
	assert.Equal(t, "v1.8.0", fx.tree.current)
}

func TestCheckAndExecuteSkipsDismissed(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	_, err := fx.svc.Dismiss(context.Background(), model.MustParseVersion("1.8.0"))
	require.NoError(t, err)

	report, result, err := fx.svc.CheckAndExecute(context.Background(), false)

	require.NoError(t, err)
	assert.True(t, report.Dismissed)
	assert.Nil(t, result, "dismissed updates are never executed")
	assert.Equal(t, "abc123", fx.tree.current)
}

func TestCheckAndExecuteUpToDate(t *testing.T) {
	fx := newCheckFixture("1.8.0", testRelease("1.8.0"), OrderingNumeric)

	_, result, err := fx.svc.CheckAndExecute(context.Background(), false)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.UpdateOutcomeNoUpdate, result.Outcome)
	assert.Empty(t, fx.tree.checkouts)
}

func TestCheckAndExecuteDegradedCheck(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	fx.source.err = errors.New("network down")

	report, result, err := fx.svc.CheckAndExecute(context.Background(), false)

	require.NoError(t, err)
	assert.NotEmpty(t, report.Warning)
	assert.Nil(t, result)
}

func TestCheckAndExecutePropagatesFatalRollback(t *testing.T) {
	fx := newCheckFixture("1.7.16", testRelease("1.8.0"), OrderingNumeric)
	fx.tree.checkoutErrs["v1.8.0"] = errors.New("checkout broke")
	fx.tree.checkoutErrs["abc123"] = errors.New("rollback broke")

	_, result, err := fx.svc.CheckAndExecute(context.Background(), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRollbackFailed)
	require.NotNil(t, result)
	assert.Equal(t, model.UpdateOutcomeFailed, result.Outcome)
}
