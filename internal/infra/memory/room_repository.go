package memory

import (
	"context"
	"errors"
	"sync"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
)

// RoomRepository 是 RoomRepository 接口的内存实现。
//
// 每个房间有一把独立的互斥锁，Update 在整个 加载-修改-写回 过程中持有它，
// 因此同一房间的修改严格串行，不同房间互不阻塞，效果与数据库行锁一致。
type RoomRepository struct {
	registry *Registry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewRoomRepository 创建内存仓库，registry 由调用方注入，便于测试中隔离多个实例。
func NewRoomRepository(registry *Registry) *RoomRepository {
	if registry == nil {
		panic("registry cannot be nil for memory RoomRepository")
	}
	return &RoomRepository{
		registry: registry,
		locks:    make(map[string]*sync.Mutex),
	}
}

var _ repository.RoomRepository = (*RoomRepository)(nil)

// roomLock 只为注册表里存在的房间建锁，不存在的 id 返回 false
func (r *RoomRepository) roomLock(id string) (*sync.Mutex, bool) {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	if l, ok := r.locks[id]; ok {
		return l, true
	}
	if !r.registry.hasID(id) {
		return nil, false
	}
	l := &sync.Mutex{}
	r.locks[id] = l
	return l, true
}

func (r *RoomRepository) FindByID(ctx context.Context, id string) (*domain.GameRoom, error) {
	room, err := r.registry.GetByID(ctx, id)
	if errors.Is(err, repository.ErrCacheMiss) {
		return nil, repository.ErrRoomNotFound
	}
	return room, err
}

func (r *RoomRepository) FindByCode(ctx context.Context, code string) (*domain.GameRoom, error) {
	room, err := r.registry.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrCacheMiss) {
		return nil, repository.ErrRoomNotFound
	}
	return room, err
}

func (r *RoomRepository) Create(_ context.Context, room *domain.GameRoom) error {
	if !r.registry.insert(room) {
		return repository.ErrDuplicateEntry
	}
	return nil
}

func (r *RoomRepository) Update(ctx context.Context, id string, fn repository.MutateFunc) (*domain.GameRoom, error) {
	l, ok := r.roomLock(id)
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// GetByID 返回的已经是拷贝，fn 失败时直接丢弃即可
	working, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(working); err != nil {
		return nil, err
	}
	working.Version++
	r.registry.put(working)
	return working.Clone(), nil
}

func (r *RoomRepository) IsCodeExists(_ context.Context, code string) (bool, error) {
	return r.registry.hasCode(code), nil
}

func (r *RoomRepository) ClearAll(ctx context.Context) error {
	r.locksMu.Lock()
	r.locks = make(map[string]*sync.Mutex)
	r.locksMu.Unlock()
	return r.registry.Clear(ctx)
}
