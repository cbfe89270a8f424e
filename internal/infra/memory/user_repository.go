package memory

import (
	"context"
	"sync"
	"time"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
)

// UserRepository 内存版账号存储，只在没有配置数据库时使用。
type UserRepository struct {
	mu     sync.RWMutex
	nextID uint
	byID   map[uint]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{nextID: 1, byID: make(map[uint]domain.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id uint) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.byID {
		if u.Username == user.Username && id != user.ID {
			return repository.ErrDuplicateEntry
		}
	}
	now := time.Now()
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.byID[user.ID] = *user
	return nil
}
