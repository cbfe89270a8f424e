// Package memory 提供不依赖外部存储的仓库实现：房间注册表、房间仓库、历史和用户仓库。
package memory

import (
	"context"
	"sync"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
)

// Registry 按房间 ID 保存聚合，并维护邀请码 -> ID 的二级索引。
// 既是内存模式下的存储，也是数据库模式下默认的读穿缓存。
// 存入和取出都做深拷贝，调用方拿到的快照与注册表互不影响。
// Put 不接受比已有快照 Version 更旧的房间。
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*domain.GameRoom
	codeID map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*domain.GameRoom),
		codeID: make(map[string]string),
	}
}

var _ repository.RoomCache = (*Registry)(nil)

func (r *Registry) Put(_ context.Context, room *domain.GameRoom) error {
	r.put(room)
	return nil
}

func (r *Registry) put(room *domain.GameRoom) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byID[room.ID]; ok {
		if old.Version > room.Version {
			return false
		}
		if old.Code != room.Code {
			delete(r.codeID, old.Code)
		}
	}
	r.byID[room.ID] = room.Clone()
	r.codeID[room.Code] = room.ID
	return true
}

// insert 只有邀请码未被其他房间占用时才写入
func (r *Registry) insert(room *domain.GameRoom) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.codeID[room.Code]; taken {
		return false
	}
	if _, exists := r.byID[room.ID]; exists {
		return false
	}
	r.byID[room.ID] = room.Clone()
	r.codeID[room.Code] = room.ID
	return true
}

func (r *Registry) GetByID(_ context.Context, id string) (*domain.GameRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return room.Clone(), nil
}

func (r *Registry) GetByCode(ctx context.Context, code string) (*domain.GameRoom, error) {
	r.mu.RLock()
	id, ok := r.codeID[code]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return r.GetByID(ctx, id)
}

func (r *Registry) hasID(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) hasCode(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.codeID[code]
	return ok
}

func (r *Registry) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*domain.GameRoom)
	r.codeID = make(map[string]string)
	return nil
}

// Len 当前保存的房间数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
