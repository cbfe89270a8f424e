package redisstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/game"
	"lila-rooms/internal/repository"
)

func setupCache(t *testing.T) (*RedisRoomCache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRoomCache(client, "test:", time.Minute), mr, client
}

func cacheRoom(id, code string) *domain.GameRoom {
	room := game.NewRoom(game.NewRoomParams{
		ID: id, Code: code, HostPlayerID: "hp", HostUserID: "1",
		HostDisplayName: "Host", BoardType: domain.BoardFull,
		Now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	_ = game.Join(room, "p2", "2", "Guest", room.CreatedAt)
	return room
}

func TestRedisRoomCache_PutAndGet(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := setupCache(t)

	_, err := cache.GetByID(ctx, "r1")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	room := cacheRoom("r1", "QWERTY")
	require.NoError(t, cache.Put(ctx, room))
	assert.True(t, mr.Exists("test:room:r1"))
	assert.Equal(t, time.Minute, mr.TTL("test:code:QWERTY"))

	got, err := cache.GetByCode(ctx, "QWERTY")
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
	require.Len(t, got.Players, 2)
	assert.Equal(t, 1, got.GameState.PerPlayerState["2"].CurrentCell)
	assert.True(t, got.CreatedAt.Equal(room.CreatedAt))

	mr.FastForward(2 * time.Minute)
	_, err = cache.GetByID(ctx, "r1")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestRedisRoomCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := setupCache(t)
	require.NoError(t, mr.Set("test:room:bad", "{not json"))

	_, err := cache.GetByID(ctx, "bad")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
	assert.False(t, mr.Exists("test:room:bad"))
}

func TestRedisRoomCache_ClearOnlyOwnPrefix(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := setupCache(t)
	require.NoError(t, cache.Put(ctx, cacheRoom("r1", "AAAAAA")))
	require.NoError(t, cache.Put(ctx, cacheRoom("r2", "BBBBBB")))
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, cache.Clear(ctx))
	assert.False(t, mr.Exists("test:room:r1"))
	assert.False(t, mr.Exists("test:code:BBBBBB"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisRoomCache_PutIgnoresOlderVersion(t *testing.T) {
	ctx := context.Background()
	cache, mr, _ := setupCache(t)

	newer := cacheRoom("r1", "ZXCVBN")
	newer.Version = 5
	newer.GameState.CurrentTurnPlayerID = "second"
	require.NoError(t, cache.Put(ctx, newer))

	older := newer.Clone()
	older.Version = 4
	older.GameState.CurrentTurnPlayerID = "first"
	require.NoError(t, cache.Put(ctx, older))

	got, err := cache.GetByCode(ctx, "ZXCVBN")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Version)
	assert.Equal(t, "second", got.GameState.CurrentTurnPlayerID)

	// 版本号随快照一起被清理，之后任何版本都能写入
	require.NoError(t, cache.Clear(ctx))
	assert.False(t, mr.Exists("test:ver:r1"))
	require.NoError(t, cache.Put(ctx, older))
	got, err = cache.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Version)
}
