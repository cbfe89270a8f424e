package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/game"
	"lila-rooms/internal/repository"
)

const (
	codeAlphabet       = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength         = 6
	maxCodeAllocations = 20
)

// RoomService 房间的全部业务操作。每个修改操作都是
// repository.Update(加锁加载 -> game 包中的纯函数修改 -> 持久化 -> 重新读取)。
type RoomService struct {
	roomRepo repository.RoomRepository
	roller   game.DiceRoller
	notifier HistoryNotifier
	now      func() time.Time
	newCode  func() (string, error)
	newID    func() string
	rollOpts game.RollOptions
}

// RoomOption 配置 RoomService 的可选依赖
type RoomOption func(*RoomService)

func WithRoller(roller game.DiceRoller) RoomOption {
	return func(s *RoomService) { s.roller = roller }
}

func WithClock(now func() time.Time) RoomOption {
	return func(s *RoomService) { s.now = now }
}

func WithCodeGenerator(gen func() (string, error)) RoomOption {
	return func(s *RoomService) { s.newCode = gen }
}

func WithIDGenerator(gen func() string) RoomOption {
	return func(s *RoomService) { s.newID = gen }
}

// WithStrictCardGate 开启后，存在未关闭的卡片时拒绝掷骰
func WithStrictCardGate(enabled bool) RoomOption {
	return func(s *RoomService) { s.rollOpts.StrictCardGate = enabled }
}

func WithHistoryNotifier(n HistoryNotifier) RoomOption {
	return func(s *RoomService) { s.notifier = n }
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository, opts ...RoomOption) (*RoomService, error) {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	s := &RoomService{
		roomRepo: roomRepo,
		now:      func() time.Time { return time.Now().UTC() },
		newCode:  generateRoomCode,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.roller == nil {
		roller, err := game.NewSeededRoller()
		if err != nil {
			return nil, fmt.Errorf("seed dice roller: %w", err)
		}
		s.roller = roller
	}
	return s, nil
}

// CreateRoom 创建房间，创建者成为主持人。
func (s *RoomService) CreateRoom(ctx context.Context, hostUserID, hostDisplayName string, boardType domain.BoardType) (*domain.GameRoom, error) {
	logCtx := logrus.WithFields(logrus.Fields{"host_user_id": hostUserID, "board_type": boardType})
	if hostUserID == "" {
		return nil, fmt.Errorf("%w: host user id is required", ErrInvalidInput)
	}

	for attempt := 1; attempt <= maxCodeAllocations; attempt++ {
		code, err := s.newCode()
		if err != nil {
			logCtx.WithError(err).Error("Failed to generate room code")
			return nil, ErrInternalServer
		}
		exists, err := s.roomRepo.IsCodeExists(ctx, code)
		if err != nil {
			logCtx.WithError(err).Error("Failed to check room code")
			return nil, ErrInternalServer
		}
		if exists {
			continue
		}

		room := game.NewRoom(game.NewRoomParams{
			ID:              s.newID(),
			Code:            code,
			HostPlayerID:    s.newID(),
			HostUserID:      hostUserID,
			HostDisplayName: hostDisplayName,
			BoardType:       boardType,
			Now:             s.now(),
		})
		err = s.roomRepo.Create(ctx, room)
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// 检查和插入之间被别的请求抢先
			logCtx.WithField("code", code).Warn("Room code taken concurrently, retrying")
			continue
		}
		if err != nil {
			logCtx.WithError(err).Error("Failed to save new room")
			return nil, ErrInternalServer
		}
		logCtx.WithFields(logrus.Fields{"room_id": room.ID, "code": code}).Info("Room created")
		return s.roomRepo.FindByID(ctx, room.ID)
	}

	logCtx.Errorf("Failed to allocate a unique room code after %d attempts", maxCodeAllocations)
	return nil, ErrInternalServer
}

func (s *RoomService) GetRoomByID(ctx context.Context, id string) (*domain.GameRoom, error) {
	room, err := s.roomRepo.FindByID(ctx, id)
	return room, s.translate(logrus.WithField("room_id", id), "get room", err)
}

func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (*domain.GameRoom, error) {
	room, err := s.roomRepo.FindByCode(ctx, code)
	return room, s.translate(logrus.WithField("code", code), "get room by code", err)
}

// JoinRoom 加入房间，已经在房间里的用户重复加入只刷新在线状态。
func (s *RoomService) JoinRoom(ctx context.Context, roomID, userID, displayName string) (*domain.GameRoom, error) {
	playerID := s.newID()
	return s.mutate(ctx, roomID, userID, "join room", func(room *domain.GameRoom) error {
		return game.Join(room, playerID, userID, displayName, s.now())
	})
}

func (s *RoomService) StartRoom(ctx context.Context, roomID, actorUserID string) (*domain.GameRoom, error) {
	return s.mutate(ctx, roomID, actorUserID, "start room", func(room *domain.GameRoom) error {
		return game.Start(room, actorUserID, s.now())
	})
}

func (s *RoomService) PauseRoom(ctx context.Context, roomID, actorUserID string) (*domain.GameRoom, error) {
	return s.mutate(ctx, roomID, actorUserID, "pause room", func(room *domain.GameRoom) error {
		return game.Pause(room, actorUserID, s.now())
	})
}

func (s *RoomService) ResumeRoom(ctx context.Context, roomID, actorUserID string) (*domain.GameRoom, error) {
	return s.mutate(ctx, roomID, actorUserID, "resume room", func(room *domain.GameRoom) error {
		return game.Resume(room, actorUserID, s.now())
	})
}

// FinishRoom 结束房间。状态写入提交之后再通知历史存储，通知失败只记录日志。
func (s *RoomService) FinishRoom(ctx context.Context, roomID, actorUserID string) (*domain.GameRoom, error) {
	room, err := s.mutate(ctx, roomID, actorUserID, "finish room", func(room *domain.GameRoom) error {
		return game.Finish(room, actorUserID, s.now())
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		entries := domain.BuildHistoryEntries(room, room.UpdatedAt)
		if err := s.notifier.NotifyFinished(ctx, entries); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"room_id": roomID,
				"entries": len(entries),
			}).Error("Failed to record finish history")
		}
	}
	return room, nil
}

// RollDice 掷骰并移动，返回最新快照和本次的移动记录。
func (s *RoomService) RollDice(ctx context.Context, roomID, userID string) (*domain.GameRoom, domain.MoveRecord, error) {
	var move domain.MoveRecord
	room, err := s.mutate(ctx, roomID, userID, "roll dice", func(room *domain.GameRoom) error {
		m, err := game.Roll(room, userID, s.roller, s.rollOpts, s.now())
		if err != nil {
			return err
		}
		move = m
		return nil
	})
	if err != nil {
		return nil, domain.MoveRecord{}, err
	}
	return room, move, nil
}

// CloseActiveCard 没有打开的卡片时直接返回当前快照。
func (s *RoomService) CloseActiveCard(ctx context.Context, roomID, userID string) (*domain.GameRoom, error) {
	return s.mutate(ctx, roomID, userID, "close active card", func(room *domain.GameRoom) error {
		_, err := game.CloseActiveCard(room, userID, s.now())
		return err
	})
}

func (s *RoomService) RecordNote(ctx context.Context, roomID, userID string, in game.NoteInput) (*domain.GameRoom, error) {
	return s.mutate(ctx, roomID, userID, "record note", func(room *domain.GameRoom) error {
		return game.RecordNote(room, userID, in, s.now())
	})
}

func (s *RoomService) UpdateSettings(ctx context.Context, roomID, hostUserID string, patch domain.SettingsPatch) (*domain.GameRoom, error) {
	if patch.DiceMode != nil && !patch.DiceMode.Valid() {
		return nil, fmt.Errorf("%w: unknown dice mode %q", ErrInvalidInput, *patch.DiceMode)
	}
	return s.mutate(ctx, roomID, hostUserID, "update settings", func(room *domain.GameRoom) error {
		return game.ApplySettings(room, hostUserID, patch, s.now())
	})
}

func (s *RoomService) UpdateTokenColor(ctx context.Context, roomID, userID, color string) (*domain.GameRoom, error) {
	return s.mutate(ctx, roomID, userID, "update token color", func(room *domain.GameRoom) error {
		return game.SetTokenColor(room, userID, color, s.now())
	})
}

// ClearAll 清空全部房间，只给测试和运维工具使用。
func (s *RoomService) ClearAll(ctx context.Context) error {
	if err := s.roomRepo.ClearAll(ctx); err != nil {
		logrus.WithError(err).Error("Failed to clear rooms")
		return ErrInternalServer
	}
	logrus.Warn("All rooms cleared")
	return nil
}

func (s *RoomService) mutate(ctx context.Context, roomID, userID, op string, fn repository.MutateFunc) (*domain.GameRoom, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})
	room, err := s.roomRepo.Update(ctx, roomID, fn)
	if err != nil {
		return nil, s.translate(logCtx, op, err)
	}
	logCtx.WithField("status", room.Status).Debugf("%s ok", op)
	return room, nil
}

// translate 分类错误原样返回，仓库的未找到映射为 ROOM_NOT_FOUND，其余记录日志后作为内部错误。
func (s *RoomService) translate(logCtx *logrus.Entry, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrRoomNotFound) {
		return domain.ErrRoomNotFound
	}
	if kind, ok := domain.KindOf(err); ok {
		logCtx.WithField("kind", kind).Infof("%s rejected", op)
		return err
	}
	logCtx.WithError(err).Errorf("%s failed", op)
	return ErrInternalServer
}

// generateRoomCode 从 32 个易辨认字符中随机取 6 位
func generateRoomCode() (string, error) {
	size := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
