// Package dto HTTP 请求和响应的数据结构
package dto

import "lila-rooms/internal/domain"

// CreateRoomRequest 创建房间。displayName 为空时使用 token 中的名字。
type CreateRoomRequest struct {
	BoardType   domain.BoardType `json:"boardType" binding:"omitempty,oneof=short full"`
	DisplayName string           `json:"displayName" binding:"max=64"`
}

type JoinRoomRequest struct {
	DisplayName string `json:"displayName" binding:"max=64"`
}

type RecordNoteRequest struct {
	CellNumber     int              `json:"cellNumber" binding:"min=0,max=100"`
	Note           string           `json:"note" binding:"required,max=2000"`
	Scope          domain.NoteScope `json:"scope" binding:"omitempty,oneof=host_cell host_player player"`
	TargetPlayerID string           `json:"targetPlayerId"`
}

type TokenColorRequest struct {
	Color string `json:"color" binding:"max=32"`
}

// RoomResponse 所有房间操作成功时的响应
type RoomResponse struct {
	Room *domain.GameRoom `json:"room"`
}

// RollResponse 掷骰成功时额外带上本次移动记录
type RollResponse struct {
	Room *domain.GameRoom  `json:"room"`
	Move domain.MoveRecord `json:"move"`
}

// ErrorResponse code 是 ROOM_FULL 这类信号名，通用错误时为空
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HistoryResponse struct {
	Entries []domain.HistoryEntry `json:"entries"`
}
