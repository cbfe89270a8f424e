package game

import (
	"time"

	"lila-rooms/internal/domain"
)

// RollOptions 掷骰时的可选规则
type RollOptions struct {
	// StrictCardGate 为 true 时，存在未关闭的卡片就拒绝掷骰 (ACTIVE_CARD_PENDING)
	StrictCardGate bool
}

// Roll 执行一次掷骰。前置条件按固定顺序检查，任何一个失败都不会修改 room。
func Roll(room *domain.GameRoom, actorUserID string, roller DiceRoller, opts RollOptions, now time.Time) (domain.MoveRecord, error) {
	if room.IsHost(actorUserID) {
		return domain.MoveRecord{}, domain.ErrHostCannotRoll
	}
	if room.Status != domain.RoomStatusInProgress {
		return domain.MoveRecord{}, domain.ErrRoomNotInProgress
	}
	if room.GameState.CurrentTurnPlayerID != actorUserID {
		return domain.MoveRecord{}, domain.ErrNotYourTurn
	}
	if !room.IsMember(actorUserID) {
		return domain.MoveRecord{}, domain.ErrPlayerNotInRoom
	}
	st, ok := room.GameState.PerPlayerState[actorUserID]
	if !ok {
		st = domain.RoomPlayerState{UserID: actorUserID, CurrentCell: 1, Status: domain.ProgressInProgress}
	}
	if st.Status == domain.ProgressFinished {
		return domain.MoveRecord{}, domain.ErrPlayerAlreadyFinished
	}
	if opts.StrictCardGate && room.GameState.ActiveCard != nil {
		return domain.MoveRecord{}, domain.ErrActiveCardPending
	}

	values, total := RollDice(roller, room.GameState.Settings.DiceMode)
	outcome := Move(BoardFor(room.BoardType), st.CurrentCell, total)

	st.CurrentCell = outcome.To
	if outcome.Finished {
		st.Status = domain.ProgressFinished
	}
	room.GameState.PerPlayerState[actorUserID] = st

	record := domain.MoveRecord{
		UserID:       actorUserID,
		FromCell:     outcome.From,
		ToCell:       outcome.To,
		Dice:         total,
		DiceValues:   values,
		SnakeOrArrow: outcome.Transition,
		Timestamp:    now,
	}
	room.GameState.MoveHistory = append(room.GameState.MoveHistory, record)
	room.GameState.CurrentTurnPlayerID = nextRoller(room, actorUserID)
	room.GameState.ActiveCard = &domain.ActiveCard{
		CellNumber:   outcome.To,
		PlayerUserID: actorUserID,
		OpenedAt:     now,
	}
	room.UpdatedAt = now
	return record, nil
}

// CloseActiveCard 关闭当前卡片。主持人或卡片所属玩家可以关闭，其他人 FORBIDDEN。
// 没有打开的卡片时什么也不做，返回 changed=false。
func CloseActiveCard(room *domain.GameRoom, actorUserID string, now time.Time) (bool, error) {
	card := room.GameState.ActiveCard
	if card == nil {
		return false, nil
	}
	if !room.IsHost(actorUserID) && card.PlayerUserID != actorUserID {
		return false, domain.ErrForbidden
	}
	if room.Status == domain.RoomStatusFinished {
		return false, domain.ErrRoomFinished
	}
	room.GameState.ActiveCard = nil
	room.UpdatedAt = now
	return true, nil
}
