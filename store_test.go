package portal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestBunStore(t *testing.T, opts ...BunStoreOption) (*BunStore, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	store := NewBunStore(db, opts...)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store, db
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, ""), mr
}

func TestStoreContract(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "state", "session.json"))
		},
		"bun": func(t *testing.T) Store {
			store, _ := newTestBunStore(t)
			return store
		},
		"redis": func(t *testing.T) Store {
			store, _ := newTestRedisStore(t)
			return store
		},
	}

	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			v, ok, err := store.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, v)

			require.NoError(t, store.Set(ctx, KeyToken, "tok-1"))
			require.NoError(t, store.Set(ctx, KeyUser, testUserJSON))

			v, ok, err = store.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "tok-1", v)

			require.NoError(t, store.Set(ctx, KeyToken, "tok-2"))
			v, _, err = store.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.Equal(t, "tok-2", v)

			v, _, err = store.Get(ctx, KeyUser)
			require.NoError(t, err)
			assert.Equal(t, testUserJSON, v, "values must round trip byte for byte")

			require.NoError(t, store.Remove(ctx, KeyToken, KeyUser, "missing"))

			_, ok, err = store.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.False(t, ok)

			_, ok, err = store.Get(ctx, KeyUser)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Remove(ctx))
			require.NoError(t, store.Remove(ctx, KeyToken))
		})
	}
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	require.NoError(t, store.Set(context.Background(), KeyToken, "tok"))
	assert.Equal(t, path, store.Path())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, NewFileStore(path).Set(ctx, KeyToken, "tok"))

	v, ok, err := NewFileStore(path).Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewFileStore(path)

	_, _, err := store.Get(ctx, KeyToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	require.NoError(t, store.Remove(ctx, KeyToken, KeyUser))

	_, ok, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBunStore_UpdatedAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, db := newTestBunStore(t, WithBunStoreClock(func() time.Time { return now }))

	require.NoError(t, store.Set(ctx, KeyToken, "tok"))

	entry := new(SessionEntry)
	require.NoError(t, db.NewSelect().Model(entry).Where("entry_key = ?", KeyToken).Scan(ctx))
	assert.Equal(t, "tok", entry.Value)
	assert.True(t, now.Equal(entry.UpdatedAt))

	now = now.Add(time.Hour)
	require.NoError(t, store.Set(ctx, KeyToken, "tok-2"))

	count, err := db.NewSelect().Model((*SessionEntry)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedisStore_Prefix(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Set(ctx, KeyToken, "tok"))
	assert.True(t, mr.Exists("portal:session:token"))

	v, err := mr.Get("portal:session:token")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), KeyToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
