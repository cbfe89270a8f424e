package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示写入违反了唯一约束 (例如邀请码冲突)
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// 特定资源的错误 (基于通用错误创建，便于 errors.Is 统一判断)
var (
	ErrUserNotFound = ErrNotFound
	ErrRoomNotFound = ErrNotFound
	// ErrCacheMiss 缓存未命中，调用方应回源到权威存储
	ErrCacheMiss = ErrNotFound
)
