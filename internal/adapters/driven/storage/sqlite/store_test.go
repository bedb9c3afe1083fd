package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/attest/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "attest.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.KeyValueStore().Set(ctx, "citations/eng-1", []byte(`[{"documentId":"a"}]`)))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	val, err := reopened.KeyValueStore().Get(ctx, "citations/eng-1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"documentId":"a"}]`, string(val))
}

func TestMigrate_RecordsVersions(t *testing.T) {
	store := setupTestStore(t)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	extra := fstest.MapFS{
		"001_initial.up.sql": {Data: []byte("CREATE TABLE should_not_run (id INTEGER);")},
		"002_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
		"002_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
		"README.md":          {Data: []byte("ignored")},
	}
	require.NoError(t, store.migrate(extra))

	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)

	var name string
	err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='should_not_run'").Scan(&name)
	assert.Error(t, err)
}

func TestKeyValueStore_CRUD(t *testing.T) {
	ctx := context.Background()
	kv := setupTestStore(t).KeyValueStore()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte("v1")))
	require.NoError(t, kv.Set(ctx, "k", []byte("v2")))
	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), val)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, kv.Delete(ctx, "k"))
}

func TestKeyValueStore_EmptyValue(t *testing.T) {
	ctx := context.Background()
	kv := setupTestStore(t).KeyValueStore()

	require.NoError(t, kv.Set(ctx, "empty", nil))
	val, err := kv.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestKeyValueStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	kv := setupTestStore(t).KeyValueStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, kv.Set(ctx, "shared", []byte{byte('a' + n)}))
		}(i)
	}
	wg.Wait()

	val, err := kv.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, val, 1)
}
