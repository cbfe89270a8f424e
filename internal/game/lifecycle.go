package game

import (
	"time"

	"lila-rooms/internal/domain"
)

// Start 主持人开始游戏。至少需要一个非主持人成员。
func Start(room *domain.GameRoom, actorUserID string, now time.Time) error {
	if !room.IsHost(actorUserID) {
		return domain.ErrForbidden
	}
	if room.Status == domain.RoomStatusFinished {
		return domain.ErrRoomFinished
	}
	if room.GuestCount() == 0 {
		return domain.ErrNoPlayers
	}
	room.Status = domain.RoomStatusInProgress
	current := room.GameState.CurrentTurnPlayerID
	if current == "" || room.IsHost(current) || !room.IsMember(current) {
		room.GameState.CurrentTurnPlayerID = firstGuest(room)
	}
	room.UpdatedAt = now
	return nil
}

// Pause 主持人暂停。pause/resume 不校验当前状态，只有 finished 是终态。
func Pause(room *domain.GameRoom, actorUserID string, now time.Time) error {
	return setHostStatus(room, actorUserID, domain.RoomStatusPaused, now)
}

// Resume 主持人恢复
func Resume(room *domain.GameRoom, actorUserID string, now time.Time) error {
	return setHostStatus(room, actorUserID, domain.RoomStatusInProgress, now)
}

// Finish 主持人结束房间。对已结束的房间重复调用是允许的。
func Finish(room *domain.GameRoom, actorUserID string, now time.Time) error {
	if !room.IsHost(actorUserID) {
		return domain.ErrForbidden
	}
	if room.Status == domain.RoomStatusFinished {
		return nil
	}
	room.Status = domain.RoomStatusFinished
	room.UpdatedAt = now
	return nil
}

func setHostStatus(room *domain.GameRoom, actorUserID string, status domain.RoomStatus, now time.Time) error {
	if !room.IsHost(actorUserID) {
		return domain.ErrForbidden
	}
	if room.Status == domain.RoomStatusFinished {
		return domain.ErrRoomFinished
	}
	room.Status = status
	room.UpdatedAt = now
	return nil
}
