package domain

import (
	"time"

	"github.com/google/uuid"
)

// historyNamespace 用于从 (roomID, userID) 派生稳定的历史记录 ID
var historyNamespace = uuid.MustParse("6f1f4b3e-2a7c-4d8e-9b1a-3c5d7e9f0a21")

// HistoryEntry 房间结束时为每位成员保存的进度快照。
type HistoryEntry struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	RoomID     string         `gorm:"size:36;not null;index" json:"roomId"`
	UserID     string         `gorm:"size:64;not null;index" json:"userId"`
	BoardType  BoardType      `gorm:"size:16;not null" json:"boardType"`
	FinalCell  int            `gorm:"not null" json:"finalCell"`
	Status     PlayerProgress `gorm:"size:16;not null" json:"status"`
	MovesCount int            `gorm:"not null;default:0" json:"movesCount"`
	FinishedAt time.Time      `gorm:"index" json:"finishedAt"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (HistoryEntry) TableName() string {
	return "player_history"
}

// HistoryEntryID 对同一 (roomID, userID) 总是返回同一个 ID，重复结束房间不会产生重复记录。
func HistoryEntryID(roomID, userID string) string {
	return uuid.NewSHA1(historyNamespace, []byte(roomID+":"+userID)).String()
}

// BuildHistoryEntries 按成员顺序生成结束快照
func BuildHistoryEntries(room *GameRoom, finishedAt time.Time) []HistoryEntry {
	moves := make(map[string]int)
	for _, m := range room.GameState.MoveHistory {
		moves[m.UserID]++
	}
	entries := make([]HistoryEntry, 0, len(room.Players))
	for _, p := range room.Players {
		st, ok := room.GameState.PerPlayerState[p.UserID]
		if !ok {
			st = RoomPlayerState{UserID: p.UserID, CurrentCell: 1, Status: ProgressInProgress}
		}
		entries = append(entries, HistoryEntry{
			ID:         HistoryEntryID(room.ID, p.UserID),
			RoomID:     room.ID,
			UserID:     p.UserID,
			BoardType:  room.BoardType,
			FinalCell:  st.CurrentCell,
			Status:     st.Status,
			MovesCount: moves[p.UserID],
			FinishedAt: finishedAt,
		})
	}
	return entries
}
