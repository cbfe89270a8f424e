// Package mocks 提供基于 testify/mock 的仓库和通知器替身，供服务层测试使用。
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lila-rooms/internal/domain"
)

// UserRepository 是 repository.UserRepository 的 Mock 实现
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *UserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// HistoryRepository 是 repository.HistoryRepository 的 Mock 实现
type HistoryRepository struct {
	mock.Mock
}

func (m *HistoryRepository) Upsert(ctx context.Context, entries []domain.HistoryEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *HistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	args := m.Called(ctx, userID, limit)
	entries, _ := args.Get(0).([]domain.HistoryEntry)
	return entries, args.Error(1)
}

// HistoryNotifier 是 service.HistoryNotifier 的 Mock 实现
type HistoryNotifier struct {
	mock.Mock
}

func (m *HistoryNotifier) NotifyFinished(ctx context.Context, entries []domain.HistoryEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}
