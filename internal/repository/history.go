package repository

import (
	"context"

	"lila-rooms/internal/domain"
)

// HistoryRepository 保存房间结束时每位成员的进度快照。
type HistoryRepository interface {
	// Upsert 按 ID 写入，重复写入同一 ID 只会覆盖，不会产生新记录。
	Upsert(ctx context.Context, entries []domain.HistoryEntry) error

	// ListByUser 按结束时间倒序返回某个用户的记录。
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)
}
