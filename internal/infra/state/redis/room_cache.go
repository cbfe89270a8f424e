// Package redisstate 用 Redis 保存房间快照，作为多实例部署时共享的读穿缓存。
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
)

const defaultTTL = 30 * time.Minute

// putScript 只有新快照的版本不低于已缓存版本时才写入。
// KEYS: room, code, version; ARGV: json, version, id, ttl(ms)
var putScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[3])
if cur and tonumber(cur) > tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[4])
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[4])
redis.call('SET', KEYS[3], ARGV[2], 'PX', ARGV[4])
return 1
`)

// RedisRoomCache 是 RoomCache 接口的 Redis 实现。
// 快照以 JSON 存在 room:{id}，邀请码索引存在 code:{code} -> id，
// 已缓存的版本号存在 ver:{id}。
type RedisRoomCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisRoomCache 创建缓存实例，ttl <= 0 时使用默认值。
func NewRedisRoomCache(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisRoomCache {
	if client == nil {
		panic("redis client cannot be nil for RedisRoomCache")
	}
	if keyPrefix == "" {
		keyPrefix = "lila:"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisRoomCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

var _ repository.RoomCache = (*RedisRoomCache)(nil)

func (c *RedisRoomCache) roomKey(id string) string {
	return fmt.Sprintf("%sroom:%s", c.keyPrefix, id)
}

func (c *RedisRoomCache) codeKey(code string) string {
	return fmt.Sprintf("%scode:%s", c.keyPrefix, code)
}

func (c *RedisRoomCache) versionKey(id string) string {
	return fmt.Sprintf("%sver:%s", c.keyPrefix, id)
}

// Put 用脚本原子地比较版本并写入快照、邀请码索引和版本号，旧版本直接忽略
func (c *RedisRoomCache) Put(ctx context.Context, room *domain.GameRoom) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("redis: marshal room %s: %w", room.ID, err)
	}
	keys := []string{c.roomKey(room.ID), c.codeKey(room.Code), c.versionKey(room.ID)}
	err = putScript.Run(ctx, c.client, keys, data, room.Version, room.ID, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis: put room %s: %w", room.ID, err)
	}
	return nil
}

func (c *RedisRoomCache) GetByID(ctx context.Context, id string) (*domain.GameRoom, error) {
	data, err := c.client.Get(ctx, c.roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis: get room %s: %w", id, err)
	}
	var room domain.GameRoom
	if err := json.Unmarshal(data, &room); err != nil {
		// 损坏的缓存按未命中处理，并删掉它
		c.client.Del(ctx, c.roomKey(id))
		return nil, repository.ErrCacheMiss
	}
	room.Normalize()
	return &room, nil
}

func (c *RedisRoomCache) GetByCode(ctx context.Context, code string) (*domain.GameRoom, error) {
	id, err := c.client.Get(ctx, c.codeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis: get room id by code %s: %w", code, err)
	}
	return c.GetByID(ctx, id)
}

// Clear 用 SCAN 找出前缀下的 key 分批删除，不使用 FLUSHDB 以免影响共用同一实例的其他数据。
func (c *RedisRoomCache) Clear(ctx context.Context) error {
	for _, pattern := range []string{c.roomKey("*"), c.codeKey("*"), c.versionKey("*")} {
		iter := c.client.Scan(ctx, 0, pattern, 200).Iterator()
		batch := make([]string, 0, 200)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == cap(batch) {
				if err := c.client.Del(ctx, batch...).Err(); err != nil {
					return fmt.Errorf("redis: clear rooms: %w", err)
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("redis: scan %s: %w", pattern, err)
		}
		if len(batch) > 0 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis: clear rooms: %w", err)
			}
		}
	}
	return nil
}
