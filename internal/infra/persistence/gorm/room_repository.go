package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
)

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现。
// 数据库是权威数据源，cache 只做读穿缓存，可以为 nil。
type GormRoomRepository struct {
	db    *gorm.DB
	cache repository.RoomCache
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB, cache repository.RoomCache) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db, cache: cache}
}

var _ repository.RoomRepository = (*GormRoomRepository)(nil)

// FindByID 先查缓存，未命中再查库并回填
func (r *GormRoomRepository) FindByID(ctx context.Context, id string) (*domain.GameRoom, error) {
	if r.cache != nil {
		room, err := r.cache.GetByID(ctx, id)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			logrus.WithError(err).WithField("room_id", id).Warn("Room cache read failed, falling back to database")
		}
	}
	room, err := loadRoom(r.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	r.refreshCache(ctx, room)
	return room, nil
}

// FindByCode 实现根据邀请码查找房间
func (r *GormRoomRepository) FindByCode(ctx context.Context, code string) (*domain.GameRoom, error) {
	if r.cache != nil {
		room, err := r.cache.GetByCode(ctx, code)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			logrus.WithError(err).WithField("code", code).Warn("Room cache read failed, falling back to database")
		}
	}
	var rr roomRecord
	err := r.db.WithContext(ctx).Select("id").Where("code = ?", code).First(&rr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by code '%s': %w", code, err)
	}
	room, err := loadRoom(r.db.WithContext(ctx), rr.ID, false)
	if err != nil {
		return nil, err
	}
	r.refreshCache(ctx, room)
	return room, nil
}

// Create 在一个事务里写入房间头、成员和游戏状态三张表
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.GameRoom) error {
	rr, players, st := toRecords(room)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rr).Error; err != nil {
			return err
		}
		if len(players) > 0 {
			if err := tx.Create(&players).Error; err != nil {
				return err
			}
		}
		return tx.Create(&st).Error
	})
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room (id: %s, code: %s): %w", room.ID, room.Code, err)
	}
	r.refreshCache(ctx, room)
	return nil
}

// Update 在事务中用 SELECT ... FOR UPDATE 锁住房间的全部行，
// 修改后写回，提交后重新读取最新快照并刷新缓存。
func (r *GormRoomRepository) Update(ctx context.Context, id string, fn repository.MutateFunc) (*domain.GameRoom, error) {
	var mutateErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := loadRoom(tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			mutateErr = err
			return err
		}
		return saveRoom(tx, room)
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("gorm: update room %s: %w", id, err)
	}

	// 并发提交的重读和 Put 没有先后保证，由缓存按 Version 丢弃旧快照
	fresh, err := loadRoom(r.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	r.refreshCache(ctx, fresh)
	return fresh, nil
}

// IsCodeExists 实现检查邀请码是否存在
func (r *GormRoomRepository) IsCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&roomRecord{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by code '%s': %w", code, err)
	}
	return count > 0, nil
}

// ClearAll 删除全部房间数据并清空缓存，历史记录和用户保留。
func (r *GormRoomRepository) ClearAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&gameStateRecord{}, &playerRecord{}, &roomRecord{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gorm: clear rooms: %w", err)
	}
	if r.cache != nil {
		if err := r.cache.Clear(ctx); err != nil {
			logrus.WithError(err).Warn("Failed to clear room cache")
		}
	}
	return nil
}

func (r *GormRoomRepository) refreshCache(ctx context.Context, room *domain.GameRoom) {
	if r.cache == nil || room == nil {
		return
	}
	if err := r.cache.Put(ctx, room); err != nil {
		logrus.WithError(err).WithField("room_id", room.ID).Warn("Failed to refresh room cache")
	}
}

// loadRoom 读取三张表并组装聚合。lock 为 true 时每条查询都带 FOR UPDATE。
func loadRoom(db *gorm.DB, id string, lock bool) (*domain.GameRoom, error) {
	query := func() *gorm.DB {
		if lock {
			return db.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return db
	}

	var rr roomRecord
	if err := query().Where("id = ?", id).First(&rr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: load room %s: %w", id, err)
	}
	var players []playerRecord
	if err := query().Where("room_id = ?", id).Order("seq ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("gorm: load players of room %s: %w", id, err)
	}
	var st gameStateRecord
	if err := query().Where("room_id = ?", id).First(&st).Error; err != nil {
		// 状态行缺失时按空状态处理，Normalize 会补齐
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("gorm: load state of room %s: %w", id, err)
		}
		st = gameStateRecord{RoomID: id}
	}
	return fromRecords(rr, players, st), nil
}

// saveRoom 写回房间头，按主键 upsert 成员，再保存游戏状态。成员只增不减。
// 行锁保证同一房间的版本号严格递增。
func saveRoom(tx *gorm.DB, room *domain.GameRoom) error {
	room.Version++
	rr, players, st := toRecords(room)
	if err := tx.Save(&rr).Error; err != nil {
		return fmt.Errorf("save room header: %w", err)
	}
	if len(players) > 0 {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&players).Error
		if err != nil {
			return fmt.Errorf("upsert players: %w", err)
		}
	}
	if err := tx.Save(&st).Error; err != nil {
		return fmt.Errorf("save game state: %w", err)
	}
	return nil
}

// isDuplicateEntryError 优先识别 MySQL 1062，其他驱动退回到错误字符串匹配。
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "Duplicate entry") // MySQL
}
