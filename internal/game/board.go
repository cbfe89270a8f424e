// Package game 实现棋盘规则、掷骰、移动结算、回合轮转和房间生命周期。
// 这里的函数只修改传入的聚合，不做任何 IO，由 service 层负责加载和持久化。
package game

import "lila-rooms/internal/domain"

// Board 一种棋盘的静态规则：最大格子数以及蛇(后退)/箭头(前进)跳转表，键为落点格子。
type Board struct {
	Type    domain.BoardType
	MaxCell int
	Snakes  map[int]int
	Arrows  map[int]int
}

var shortBoard = Board{
	Type:    domain.BoardShort,
	MaxCell: 34,
	Snakes:  map[int]int{14: 4, 22: 11, 27: 9, 33: 17},
	Arrows:  map[int]int{3: 12, 8: 19, 16: 25, 20: 30},
}

var fullBoard = Board{
	Type:    domain.BoardFull,
	MaxCell: 100,
	Snakes: map[int]int{
		16: 6, 47: 26, 49: 11, 56: 53, 62: 19,
		64: 60, 87: 24, 93: 73, 95: 75, 98: 78,
	},
	Arrows: map[int]int{
		4: 14, 9: 31, 21: 42, 28: 84, 36: 44,
		51: 67, 71: 91, 80: 100,
	},
}

// BoardFor 返回棋盘规则，未知类型回退到 full。
func BoardFor(t domain.BoardType) Board {
	if t == domain.BoardShort {
		return shortBoard
	}
	return fullBoard
}

// Transition 查询落点上的跳转，没有配置时返回 (cell, TransitionNone)
func (b Board) Transition(cell int) (int, domain.Transition) {
	if to, ok := b.Snakes[cell]; ok {
		return to, domain.TransitionSnake
	}
	if to, ok := b.Arrows[cell]; ok {
		return to, domain.TransitionArrow
	}
	return cell, domain.TransitionNone
}
