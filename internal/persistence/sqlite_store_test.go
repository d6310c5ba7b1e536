package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cometa-app/tscatalog/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tscatalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_CatalogRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	input, err := catalog.ReadFile(filepath.Join("..", "catalog", "testdata", "Cometa_en_EN.ts"))
	require.NoError(t, err)

	require.NoError(t, store.SaveCatalog(ctx, "Cometa_en_EN", input))

	got, ok, err := store.LoadCatalog(ctx, "Cometa_en_EN")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, got)

	summaries, err := store.ListCatalogs(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Cometa_en_EN", summaries[0].Name)
	assert.Equal(t, "en_US", summaries[0].Language)
	assert.Equal(t, input.MessageCount(), summaries[0].MessageCount)
	assert.False(t, summaries[0].ImportedAt.IsZero())
}

func TestSQLiteStore_SaveCatalogReplaces(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first := &catalog.Catalog{
		Version:  "2.1",
		Language: "en_US",
		Contexts: []catalog.Context{
			{Name: "MainWindow", Messages: []catalog.Message{{Source: "Файл", Translation: "File"}}},
			{Name: "Settings", Messages: []catalog.Message{{Source: "Тема:", Translation: "Theme:"}}},
		},
	}
	second := &catalog.Catalog{
		Version:  "2.1",
		Language: "en_US",
		Contexts: []catalog.Context{
			{Name: "MapWidget", Messages: []catalog.Message{
				{
					Locations:   []catalog.Location{{Filename: "../src/map_widget.py", Line: 42}},
					Source:      "Карта",
					Translation: "",
					Type:        catalog.TypeUnfinished,
				},
			}},
		},
	}

	require.NoError(t, store.SaveCatalog(ctx, "main", first))
	require.NoError(t, store.SaveCatalog(ctx, "main", second))

	got, ok, err := store.LoadCatalog(ctx, "main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestSQLiteStore_SaveCatalogValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.SaveCatalog(ctx, " ", &catalog.Catalog{}))
	assert.Error(t, store.SaveCatalog(ctx, "x", nil))
}

func TestSQLiteStore_DeleteCatalog(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	c := &catalog.Catalog{
		Version: "2.1",
		Contexts: []catalog.Context{
			{Name: "ReportTab", Messages: []catalog.Message{{Source: "Отчет", Translation: "Report"}}},
		},
	}
	require.NoError(t, store.SaveCatalog(ctx, "a", c))
	require.NoError(t, store.SaveCatalog(ctx, "b", c))
	require.NoError(t, store.DeleteCatalog(ctx, "a"))

	_, ok, err := store.LoadCatalog(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	summaries, err := store.ListCatalogs(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "b", summaries[0].Name)

	// deleting a missing catalog is a no-op
	require.NoError(t, store.DeleteCatalog(ctx, "a"))
}

func TestSQLiteStore_Misses(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	connect := catalog.Key{Context: "MainWindow", Source: "Подключиться"}
	theme := catalog.Key{Context: "Settings", Source: "Радужная тема"}

	require.NoError(t, store.RecordMisses(ctx, "en_EN", map[catalog.Key]int{connect: 2, theme: 1}))
	require.NoError(t, store.RecordMisses(ctx, "en_EN", map[catalog.Key]int{theme: 5}))
	require.NoError(t, store.RecordMisses(ctx, "ru_RU", map[catalog.Key]int{connect: 1}))
	require.NoError(t, store.RecordMisses(ctx, "en_EN", nil))

	misses, err := store.ListMisses(ctx, "en_EN")
	require.NoError(t, err)
	require.Len(t, misses, 2)
	assert.Equal(t, theme.Source, misses[0].Source)
	assert.Equal(t, 6, misses[0].Hits)
	assert.Equal(t, connect.Source, misses[1].Source)
	assert.Equal(t, 2, misses[1].Hits)
	assert.False(t, misses[0].LastSeen.Before(misses[0].FirstSeen))

	all, err := store.ListMisses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", "tscatalog.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.RecordMisses(ctx, "en_EN", map[catalog.Key]int{{Context: "Settings", Source: "Язык:"}: 1}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	misses, err := store.ListMisses(ctx, "en_EN")
	require.NoError(t, err)
	assert.Len(t, misses, 1)

	_, err = NewSQLiteStore("")
	assert.Error(t, err)
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("012_more.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
