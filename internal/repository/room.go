package repository

import (
	"context"

	"lila-rooms/internal/domain"
)

// MutateFunc 在加载后的聚合上执行一次纯内存修改。返回错误时本次修改整体放弃。
type MutateFunc func(room *domain.GameRoom) error

// RoomRepository 定义了房间聚合的存储和检索操作。
// 内存实现和数据库实现都必须保证: 同一房间的 Update 严格串行，不同房间可以并行。
type RoomRepository interface {
	// FindByID 根据房间 ID 查找房间，不存在时返回 ErrRoomNotFound。
	FindByID(ctx context.Context, id string) (*domain.GameRoom, error)

	// FindByCode 根据邀请码查找房间，不存在时返回 ErrRoomNotFound。
	FindByCode(ctx context.Context, code string) (*domain.GameRoom, error)

	// Create 保存一个新房间。邀请码冲突时返回 ErrDuplicateEntry。
	Create(ctx context.Context, room *domain.GameRoom) error

	// Update 加锁加载房间 -> 执行 fn -> 持久化 -> 重新读取，返回最新快照。
	// fn 返回错误时不会写入任何数据，错误原样返回。
	Update(ctx context.Context, id string, fn MutateFunc) (*domain.GameRoom, error)

	// IsCodeExists 检查邀请码是否已被占用。
	IsCodeExists(ctx context.Context, code string) (bool, error)

	// ClearAll 清空全部房间，仅供测试和运维工具使用。
	ClearAll(ctx context.Context) error
}
