package game

import (
	"strings"
	"time"

	"lila-rooms/internal/domain"
)

// TokenColors 新成员按加入顺序分配的棋子颜色
var TokenColors = []string{"#E4572E", "#29335C", "#F3A712", "#669BBC", "#A8C686", "#8E7DBE"}

// NewRoomParams 创建房间所需的全部输入，ID 和邀请码由调用方生成。
type NewRoomParams struct {
	ID              string
	Code            string
	HostPlayerID    string
	HostUserID      string
	HostDisplayName string
	BoardType       domain.BoardType
	Now             time.Time
}

// NewRoom 构造一个 open 状态的房间，主持人是第一个成员，回合指针先指向主持人。
func NewRoom(p NewRoomParams) *domain.GameRoom {
	boardType := p.BoardType
	if !boardType.Valid() {
		boardType = domain.BoardFull
	}
	room := &domain.GameRoom{
		ID:         p.ID,
		Code:       p.Code,
		HostUserID: p.HostUserID,
		BoardType:  boardType,
		Status:     domain.RoomStatusOpen,
		CreatedAt:  p.Now,
		UpdatedAt:  p.Now,
		Version:    1,
		Players:    []domain.RoomPlayer{},
		GameState: domain.RoomGameState{
			CurrentTurnPlayerID: p.HostUserID,
			PerPlayerState:      make(map[string]domain.RoomPlayerState),
			MoveHistory:         []domain.MoveRecord{},
			Notes:               domain.NewRoomNotes(),
			Settings:            domain.DefaultSettings(),
		},
	}
	addPlayer(room, p.HostPlayerID, p.HostUserID, p.HostDisplayName, domain.RoleHost, p.Now)
	return room
}

// Join 加入房间。已经在房间里的 userId 只刷新在线状态，不做人数和状态检查。
func Join(room *domain.GameRoom, playerID, userID, displayName string, now time.Time) error {
	if existing, ok := room.FindPlayer(userID); ok {
		existing.ConnectionStatus = domain.ConnectionOnline
		room.UpdatedAt = now
		return nil
	}
	if room.Status == domain.RoomStatusFinished {
		return domain.ErrRoomFinished
	}
	if len(room.Players) >= domain.MaxPlayers {
		return domain.ErrRoomFull
	}
	addPlayer(room, playerID, userID, displayName, domain.RolePlayer, now)
	room.UpdatedAt = now
	return nil
}

func addPlayer(room *domain.GameRoom, playerID, userID, displayName string, role domain.PlayerRole, now time.Time) {
	color := TokenColors[len(room.Players)%len(TokenColors)]
	room.Players = append(room.Players, domain.RoomPlayer{
		ID:               playerID,
		UserID:           userID,
		DisplayName:      displayName,
		Role:             role,
		TokenColor:       color,
		JoinedAt:         now,
		ConnectionStatus: domain.ConnectionOnline,
	})
	room.GameState.PerPlayerState[userID] = domain.RoomPlayerState{
		UserID:      userID,
		CurrentCell: 1,
		Status:      domain.ProgressInProgress,
	}
}

// NoteInput 记录一条笔记的参数
type NoteInput struct {
	CellNumber     int
	Text           string
	Scope          domain.NoteScope
	TargetPlayerID string
}

// RecordNote 按 scope 把笔记写到对应的位置。
func RecordNote(room *domain.GameRoom, actorUserID string, in NoteInput, now time.Time) error {
	if !room.IsMember(actorUserID) {
		return domain.ErrForbidden
	}
	if room.Status == domain.RoomStatusFinished {
		return domain.ErrRoomFinished
	}
	entry := domain.NoteEntry{
		CellNumber:   in.CellNumber,
		Text:         in.Text,
		AuthorUserID: actorUserID,
		CreatedAt:    now,
	}
	notes := &room.GameState.Notes
	switch in.Scope {
	case domain.NoteScopeHostCell:
		if !room.IsHost(actorUserID) {
			return domain.ErrForbidden
		}
		notes.HostByCell[in.CellNumber] = append(notes.HostByCell[in.CellNumber], entry)
	case domain.NoteScopeHostPlayer:
		if !room.IsHost(actorUserID) {
			return domain.ErrForbidden
		}
		if in.TargetPlayerID == "" {
			return domain.ErrTargetPlayerRequired
		}
		if !room.IsMember(in.TargetPlayerID) {
			return domain.ErrPlayerNotInRoom
		}
		notes.HostByPlayerID[in.TargetPlayerID] = append(notes.HostByPlayerID[in.TargetPlayerID], entry)
	default:
		notes.PlayerByUserID[actorUserID] = append(notes.PlayerByUserID[actorUserID], entry)
		st := room.GameState.PerPlayerState[actorUserID]
		st.UserID = actorUserID
		st.NotesCount++
		room.GameState.PerPlayerState[actorUserID] = st
	}
	room.UpdatedAt = now
	return nil
}

// ApplySettings 主持人修改设置，patch 中为 nil 的字段保持不变。
func ApplySettings(room *domain.GameRoom, actorUserID string, patch domain.SettingsPatch, now time.Time) error {
	if !room.IsHost(actorUserID) {
		return domain.ErrForbidden
	}
	if room.Status == domain.RoomStatusFinished {
		return domain.ErrRoomFinished
	}
	s := &room.GameState.Settings
	if patch.DiceMode != nil {
		s.DiceMode = *patch.DiceMode
	}
	if patch.AllowHostCloseAnyCard != nil {
		s.AllowHostCloseAnyCard = *patch.AllowHostCloseAnyCard
	}
	if patch.HostCanPause != nil {
		s.HostCanPause = *patch.HostCanPause
	}
	room.UpdatedAt = now
	return nil
}

// SetTokenColor 修改自己的棋子颜色，去掉首尾空白后不能为空。
func SetTokenColor(room *domain.GameRoom, actorUserID, color string, now time.Time) error {
	color = strings.TrimSpace(color)
	if color == "" {
		return domain.ErrInvalidTokenColor
	}
	player, ok := room.FindPlayer(actorUserID)
	if !ok {
		return domain.ErrPlayerNotInRoom
	}
	if room.Status == domain.RoomStatusFinished {
		return domain.ErrRoomFinished
	}
	player.TokenColor = color
	room.UpdatedAt = now
	return nil
}
