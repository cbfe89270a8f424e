package game

import "lila-rooms/internal/domain"

// MoveOutcome 一次移动的结算结果
type MoveOutcome struct {
	From       int
	Capped     int
	To         int
	Transition domain.Transition
	Finished   bool
}

// Move 结算一次移动：先封顶到 MaxCell (不反弹)，再处理蛇或箭头。
// 只有最终落点恰好等于 MaxCell 时才算到达终点。
func Move(board Board, currentCell, diceTotal int) MoveOutcome {
	capped := currentCell + diceTotal
	if capped > board.MaxCell {
		capped = board.MaxCell
	}
	to, kind := board.Transition(capped)
	return MoveOutcome{
		From:       currentCell,
		Capped:     capped,
		To:         to,
		Transition: kind,
		Finished:   to == board.MaxCell,
	}
}
