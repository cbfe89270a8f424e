package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
)

// HistoryNotifier 接收房间结束时每位成员的进度快照。
// 实现必须按 entry.ID 幂等，同一房间重复结束不能产生重复记录。
type HistoryNotifier interface {
	NotifyFinished(ctx context.Context, entries []domain.HistoryEntry) error
}

// DirectHistoryNotifier 同步写入历史仓库，未启用异步队列时使用。
type DirectHistoryNotifier struct {
	repo repository.HistoryRepository
}

func NewDirectHistoryNotifier(repo repository.HistoryRepository) *DirectHistoryNotifier {
	if repo == nil {
		panic("HistoryRepository cannot be nil for DirectHistoryNotifier")
	}
	return &DirectHistoryNotifier{repo: repo}
}

func (n *DirectHistoryNotifier) NotifyFinished(ctx context.Context, entries []domain.HistoryEntry) error {
	return n.repo.Upsert(ctx, entries)
}

// HistoryService 查询用户的历史进度
type HistoryService struct {
	repo repository.HistoryRepository
}

func NewHistoryService(repo repository.HistoryRepository) *HistoryService {
	if repo == nil {
		panic("HistoryRepository cannot be nil for HistoryService")
	}
	return &HistoryService{repo: repo}
}

const maxHistoryLimit = 100

// ListForUser limit 超出范围时按 maxHistoryLimit 处理
func (s *HistoryService) ListForUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []domain.HistoryEntry{}, nil
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list history")
		return nil, ErrInternalServer
	}
	return entries, nil
}
