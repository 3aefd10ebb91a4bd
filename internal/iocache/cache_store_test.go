package iocache

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pulsegrid/pulsegrid/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteCacheStore(t *testing.T) *CacheStoreImpl {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	store, err := NewCacheStore("test_table", schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*CacheStoreImpl)
}

func TestCacheStoreSetAndGet(t *testing.T) {
	store := newSQLiteCacheStore(t)

	err := store.Set("test_key", []byte("test_value_data"), 1, 1234567890)
	require.NoError(t, err)

	value, version, timestamp, err := store.Get("test_key")
	require.NoError(t, err)
	assert.Equal(t, "test_value_data", string(value))
	assert.Equal(t, 1, version)
	assert.Equal(t, int64(1234567890), timestamp)
}

func TestCacheStoreUpsert(t *testing.T) {
	store := newSQLiteCacheStore(t)

	require.NoError(t, store.Set("upsert_key", []byte("initial_value"), 1, 1000))
	require.NoError(t, store.Set("upsert_key", []byte("updated_value"), 2, 2000))

	value, version, timestamp, err := store.Get("upsert_key")
	require.NoError(t, err)
	assert.Equal(t, "updated_value", string(value))
	assert.Equal(t, 2, version)
	assert.Equal(t, int64(2000), timestamp)
}

func TestCacheStoreGetMissingKey(t *testing.T) {
	store := newSQLiteCacheStore(t)

	_, _, _, err := store.Get("non_existent_key")
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestCacheStoreStatus(t *testing.T) {
	store := newSQLiteCacheStore(t)

	// Empty store reports zero entries
	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, int64(0), status.TotalEntries)

	require.NoError(t, store.Set("a", []byte("1"), 1, 1000))
	require.NoError(t, store.Set("b", []byte("2"), 1, 2000))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.TotalEntries)
	assert.Equal(t, int64(2000), status.LastEntryTime.Unix())
	assert.Equal(t, int64(1000), status.OldestEntryTime.Unix())
	assert.Greater(t, status.TableSizeBytes, int64(0))
}

func TestCacheStoreNoneBackend(t *testing.T) {
	store, err := NewCacheStore("test_table", schema.NoneBackend, "")
	require.NoError(t, err)

	// Set is a no-op, Get always misses
	assert.NoError(t, store.Set("key", []byte("value"), 1, 1000))
	_, _, _, err = store.Get("key")
	assert.Equal(t, sql.ErrNoRows, err)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)

	assert.NoError(t, store.Close())
}

func TestCacheStoreRejectsBadTableName(t *testing.T) {
	_, err := NewCacheStore("bad; DROP TABLE users", schema.SQLiteBackend, ":memory:")
	assert.Error(t, err)

	_, err = NewCacheStore("", schema.SQLiteBackend, ":memory:")
	assert.Error(t, err)
}

func TestCacheStoreUnsupportedBackend(t *testing.T) {
	_, err := NewCacheStore("test_table", schema.DatabaseBackend("oracle"), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cache backend")
}

func TestGetPlaceholder(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
	}{
		{schema.SQLiteBackend, "?"},
		{schema.MySQLBackend, "?"},
		{schema.PostgreSQLBackend, "$1"},
	}

	for _, tt := range tests {
		store := &CacheStoreImpl{backend: tt.backend}
		assert.Equal(t, tt.want, store.getPlaceholder(), "backend %s", tt.backend)
	}
}

func TestGetUpsertQuery(t *testing.T) {
	mysqlStore := &CacheStoreImpl{tableName: "t", backend: schema.MySQLBackend}
	assert.Contains(t, mysqlStore.getUpsertQuery(), "ON DUPLICATE KEY UPDATE")

	pgStore := &CacheStoreImpl{tableName: "t", backend: schema.PostgreSQLBackend}
	assert.Contains(t, pgStore.getUpsertQuery(), "ON CONFLICT (cache_key) DO UPDATE")

	sqliteStore := &CacheStoreImpl{tableName: "t", backend: schema.SQLiteBackend}
	assert.Contains(t, sqliteStore.getUpsertQuery(), "INSERT OR REPLACE")
}

func TestGetCreateTableQuery(t *testing.T) {
	assert.Contains(t, getCreateTableQuery("t", schema.MySQLBackend), "VARCHAR(255)")
	assert.Contains(t, getCreateTableQuery("t", schema.PostgreSQLBackend), "BYTEA")
	assert.Contains(t, getCreateTableQuery("t", schema.SQLiteBackend), "BLOB")
}
