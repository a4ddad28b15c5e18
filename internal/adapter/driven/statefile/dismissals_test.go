package statefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

func dismissalAt(version string, count int) model.Dismissal {
	return model.Dismissal{
		Version:     model.MustParseVersion(version),
		DismissedAt: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		CheckCount:  count,
	}
}

func TestDismissalStoreRoundTrip(t *testing.T) {
	store := NewDismissalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, dismissalAt("1.8.0", 1)))

	got, err := store.Get(ctx, model.MustParseVersion("1.8.0"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, dismissalAt("1.8.0", 1), *got)
}

func TestDismissalStoreGetMissing(t *testing.T) {
	store := NewDismissalStore(t.TempDir())

	got, err := store.Get(context.Background(), model.MustParseVersion("1.8.0"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDismissalStoreUpsertOverwrites(t *testing.T) {
	store := NewDismissalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, dismissalAt("1.8.0", 1)))
	require.NoError(t, store.Upsert(ctx, dismissalAt("1.8.0", 2)))

	got, err := store.Get(ctx, model.MustParseVersion("1.8.0"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.CheckCount)
}

func TestDismissalStoreDelete(t *testing.T) {
	store := NewDismissalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, dismissalAt("1.8.0", 1)))
	require.NoError(t, store.Delete(ctx, model.MustParseVersion("1.8.0")))

	got, err := store.Get(ctx, model.MustParseVersion("1.8.0"))
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Delete(ctx, model.MustParseVersion("9.9.9")), "deleting a missing record is a no-op")
}

func TestDismissalStoreDeleteAll(t *testing.T) {
	store := NewDismissalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, dismissalAt("1.8.0", 1)))
	require.NoError(t, store.Upsert(ctx, dismissalAt("1.9.0", 1)))
	require.NoError(t, store.DeleteAll(ctx))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDismissalStoreDeleteOlderThan(t *testing.T) {
	store := NewDismissalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, dismissalAt("1.5.0", 1)))
	require.NoError(t, store.Upsert(ctx, dismissalAt("1.8.0", 2)))
	require.NoError(t, store.Upsert(ctx, dismissalAt("2.0.0", 1)))

	require.NoError(t, store.DeleteOlderThan(ctx, model.MustParseVersion("1.8.0")))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1.8.0", list[0].Version.String(), "the boundary version survives")
	assert.Equal(t, "2.0.0", list[1].Version.String())
}

func TestDismissalStoreListSortsNumerically(t *testing.T) {
	store := NewDismissalStore(t.TempDir())
	ctx := context.Background()

	// 1.10.0 sorts after 1.9.0 numerically even though it is smaller as a
	// string.
	require.NoError(t, store.Upsert(ctx, dismissalAt("1.10.0", 1)))
	require.NoError(t, store.Upsert(ctx, dismissalAt("2.0.0", 1)))
	require.NoError(t, store.Upsert(ctx, dismissalAt("1.9.0", 1)))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "1.9.0", list[0].Version.String())
	assert.Equal(t, "1.10.0", list[1].Version.String())
	assert.Equal(t, "2.0.0", list[2].Version.String())
}

func TestDismissalStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewDismissalStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dismissals.json"), []byte("oops"), 0o644))

	_, err := store.Get(context.Background(), model.MustParseVersion("1.8.0"))
	assert.Error(t, err)
}
