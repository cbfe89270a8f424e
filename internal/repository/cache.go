package repository

import (
	"context"

	"lila-rooms/internal/domain"
)

// RoomCache 房间快照的读穿缓存。存在数据库时它从来不是权威数据源。
type RoomCache interface {
	// Put 写入快照，同时更新 ID 和邀请码两个索引。
	Put(ctx context.Context, room *domain.GameRoom) error

	// GetByID 未命中时返回 ErrCacheMiss。
	GetByID(ctx context.Context, id string) (*domain.GameRoom, error)

	// GetByCode 未命中时返回 ErrCacheMiss。
	GetByCode(ctx context.Context, code string) (*domain.GameRoom, error)

	// Clear 清空缓存
	Clear(ctx context.Context) error
}
