package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aihub/internal/storage"
)

func newSQLiteStore(t *testing.T, path string) (*SQLiteStore, storage.Storage) {
	t.Helper()
	st, err := storage.NewSQLite(storage.SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	store, err := NewSQLiteStore(context.Background(), st.SQLiteDB())
	require.NoError(t, err)
	return store, st
}

func TestSQLiteStore(t *testing.T) {
	store, _ := newSQLiteStore(t, filepath.Join(t.TempDir(), "settings.db"))
	runStoreContract(t, store)
}

func TestSQLiteStore_MigrationsAppliedOnce(t *testing.T) {
	ctx := context.Background()
	_, st := newSQLiteStore(t, filepath.Join(t.TempDir(), "settings.db"))
	db := st.SQLiteDB()

	// A second open against the same database must not re-apply anything.
	_, err := NewSQLiteStore(ctx, db)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&count))
	assert.Equal(t, len(sqliteMigrations), count)

	var name string
	require.NoError(t, db.QueryRow(`SELECT name FROM _migrations ORDER BY id LIMIT 1`).Scan(&name))
	assert.Equal(t, "001_initial_schema", name)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	st, err := storage.NewSQLite(storage.SQLiteConfig{Path: path})
	require.NoError(t, err)
	store, err := NewSQLiteStore(ctx, st.SQLiteDB())
	require.NoError(t, err)
	require.NoError(t, store.SetValue(ctx, "theme", "dark"))
	require.NoError(t, st.Close())

	reopened, _ := newSQLiteStore(t, path)
	value, ok, err := reopened.GetValue(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", value)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, nil)
	assert.Error(t, err)

	st, err := storage.NewSQLite(storage.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer st.Close()

	store, err := New(ctx, st)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
}

func TestNewStores_RequireConnection(t *testing.T) {
	ctx := context.Background()

	_, err := NewSQLiteStore(ctx, nil)
	assert.Error(t, err)
	_, err = NewPostgreSQLStore(ctx, nil)
	assert.Error(t, err)
	_, err = NewMongoDBStore(ctx, nil)
	assert.Error(t, err)
}
