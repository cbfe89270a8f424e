package game

import "lila-rooms/internal/domain"

// NextTurn 按 players 下标轮转；当前玩家不在列表里时回到第一个玩家。
func NextTurn(players []domain.RoomPlayer, currentUserID string) string {
	if len(players) == 0 {
		return ""
	}
	for i, p := range players {
		if p.UserID == currentUserID {
			return players[(i+1)%len(players)].UserID
		}
	}
	return players[0].UserID
}

// nextRoller 在 NextTurn 的顺序上跳过主持人和已经到达终点的玩家。
// 找不到可掷骰的人时退回 NextTurn 的结果。
func nextRoller(room *domain.GameRoom, currentUserID string) string {
	fallback := NextTurn(room.Players, currentUserID)
	candidate := currentUserID
	for range room.Players {
		candidate = NextTurn(room.Players, candidate)
		if canRoll(room, candidate) {
			return candidate
		}
	}
	return fallback
}

func canRoll(room *domain.GameRoom, userID string) bool {
	if room.IsHost(userID) {
		return false
	}
	st, ok := room.GameState.PerPlayerState[userID]
	return ok && st.Status != domain.ProgressFinished
}

// firstGuest 返回第一个非主持人成员
func firstGuest(room *domain.GameRoom) string {
	for _, p := range room.Players {
		if p.Role != domain.RoleHost {
			return p.UserID
		}
	}
	return ""
}
