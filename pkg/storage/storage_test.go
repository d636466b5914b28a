package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-listview/components/listview"
)

func openTestSQL(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQL(DriverSQLite, filepath.Join(t.TempDir(), "listview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	version, err := store.Migrate()
	require.NoError(t, err)
	require.Equal(t, uint(2), version)
	return store
}

func openTestPudge(t *testing.T) *PudgeStore {
	t.Helper()
	store, err := OpenPudge(filepath.Join(t.TempDir(), "settings.cache"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQL("oracle", "whatever")
	require.Error(t, err)
}

func TestSQLStoreUpsert(t *testing.T) {
	store := openTestSQL(t)
	ctx := context.Background()

	_, ok, err := store.LoadSetting(ctx, "user:u1", "bets")
	require.NoError(t, err)
	assert.False(t, ok)

	first := listview.TableSetting{
		Table:   "bets",
		Columns: []listview.ColumnRule{{ID: "id", Enabled: true, Order: 0}},
		Sorting: listview.Sort{Field: "stake", Direction: listview.SortDesc},
		Version: 1,
	}
	require.NoError(t, store.SaveSetting(ctx, "user:u1", first))

	second := first
	second.PinnedFields = []string{"status"}
	second.Version = 2
	second.UpdatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSetting(ctx, "user:u1", second))
	require.NoError(t, store.SaveSetting(ctx, "user:u1", second))

	got, ok, err := store.LoadSetting(ctx, "user:u1", "bets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, []string{"status"}, got.PinnedFields)
	assert.Equal(t, "stake", got.Sorting.Field)

	owners, err := store.Owners(ctx, "bets")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:u1"}, owners)
}

func TestSQLStoreRequiresTable(t *testing.T) {
	store := openTestSQL(t)
	err := store.SaveSetting(context.Background(), "user:u1", listview.TableSetting{})
	require.Error(t, err)
}

func TestSQLStoreMigrateIsIdempotent(t *testing.T) {
	store := openTestSQL(t)
	version, err := store.Migrate()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestSQLStoreRecordExport(t *testing.T) {
	store := openTestSQL(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordExport(ctx, listview.ExportEvent{ExportID: "e1", Table: "bets", FileName: "bets_2026-05-04.xlsx", Rows: 11, At: at}))
	require.NoError(t, store.RecordExport(ctx, listview.ExportEvent{ExportID: "e2", Table: "bets", FileName: "bets_2026-05-05.xlsx", Rows: 3, At: at.Add(24 * time.Hour)}))

	events, err := store.ExportEvents(ctx, "bets")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e2", events[0].ExportID)
	assert.Equal(t, 11, events[1].Rows)

	err = store.RecordExport(ctx, listview.ExportEvent{ExportID: "e1", Table: "bets", FileName: "dup.xlsx"})
	assert.Error(t, err)
}

func TestPudgeStoreRoundTrip(t *testing.T) {
	store := openTestPudge(t)
	ctx := context.Background()

	_, ok, err := store.LoadSetting(ctx, "user:u1", "members")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveSetting(ctx, "user:u1", listview.TableSetting{Table: "members", PerPage: 50, Version: 4}))
	got, ok, err := store.LoadSetting(ctx, "user:u1", "members")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50, got.PerPage)
	assert.Equal(t, int64(4), got.Version)
}

func TestPudgeStoreCorruptEntry(t *testing.T) {
	store := openTestPudge(t)
	require.NoError(t, store.db.Set(pudgeKey("user:u1", "bets"), []byte("{not json")))

	_, ok, err := store.LoadSetting(context.Background(), "user:u1", "bets")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestPudgeStorePurge(t *testing.T) {
	store := openTestPudge(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSetting(ctx, "user:u1", listview.TableSetting{Table: "bets"}))
	require.NoError(t, store.SaveSetting(ctx, "user:u1", listview.TableSetting{Table: "roles"}))
	require.NoError(t, store.SaveSetting(ctx, "user:u2", listview.TableSetting{Table: "bets"}))

	removed, err := store.Purge("user:u1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok, err := store.LoadSetting(ctx, "user:u2", "bets")
	require.NoError(t, err)
	assert.True(t, ok)
}

// The repository treats a corrupt cache entry as absent and recovers the
// remote copy.
func TestRepositoryOverPudgeAndSQL(t *testing.T) {
	local := openTestPudge(t)
	remote := openTestSQL(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	repo := listview.NewSettingsRepository(listview.SettingsRepositoryOptions{
		Local:  local,
		Remote: remote,
		Logger: &logger,
		Now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})

	perPage := 25
	saved, err := repo.Save(ctx, "user:u1", "bets", listview.SettingPatch{PerPage: &perPage})
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	require.NoError(t, local.db.Set(pudgeKey("user:u1", "bets"), []byte("garbage")))

	loaded, err := repo.Load(ctx, "user:u1", "bets")
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.PerPage)

	cached, ok, err := local.LoadSetting(ctx, "user:u1", "bets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), cached.Version)
}
