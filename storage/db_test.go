package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testBackends(t *testing.T) map[string]Database {
	t.Helper()
	level, err := NewLevelDB(filepath.Join(t.TempDir(), "level"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = level.Close() })

	bolt, err := NewBoltDB(filepath.Join(t.TempDir(), "bolt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })

	return map[string]Database{
		"memdb":   NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
}

func TestDatabaseRoundTrip(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			key := []byte("dex/token/ff")
			value := []byte("payload")

			_, err := db.Get(key)
			require.True(t, errors.Is(err, ErrKeyNotFound))

			require.NoError(t, db.Put(key, value))
			got, err := db.Get(key)
			require.NoError(t, err)
			require.Equal(t, value, got)

			require.NoError(t, db.Put(key, []byte("updated")))
			got, err = db.Get(key)
			require.NoError(t, err)
			require.Equal(t, []byte("updated"), got)
		})
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("original")
	require.NoError(t, db.Put([]byte("k"), value))

	value[0] = 'X'
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)

	// Mutating the returned slice must not leak back into the store.
	got[0] = 'Y'
	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), again)
}
