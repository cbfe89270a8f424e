package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
)

// GormHistoryRepository 是 HistoryRepository 接口的 GORM 实现
type GormHistoryRepository struct {
	db *gorm.DB
}

func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	if db == nil {
		panic("database connection cannot be nil for GormHistoryRepository")
	}
	return &GormHistoryRepository{db: db}
}

var _ repository.HistoryRepository = (*GormHistoryRepository)(nil)

// Upsert 主键冲突时覆盖进度字段，finished_at 保留第一次结束的时间，任务重试不会写出重复行。
func (r *GormHistoryRepository) Upsert(ctx context.Context, entries []domain.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"final_cell", "status", "moves_count", "updated_at"}),
	}).Create(&entries).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert %d history entries: %w", len(entries), err)
	}
	return nil
}

func (r *GormHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("finished_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("gorm: list history of user %s: %w", userID, err)
	}
	return entries, nil
}
