package gormpersistence

import (
	"time"

	"lila-rooms/internal/domain"
)

// roomRecord game_rooms 表：房间头信息
type roomRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Code       string    `gorm:"uniqueIndex:idx_game_rooms_code;size:6;not null"`
	HostUserID string    `gorm:"size:64;not null;index"`
	BoardType  string    `gorm:"size:16;not null"`
	Status     string    `gorm:"size:16;not null;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
	Version    int64     `gorm:"not null;default:1"`
}

func (roomRecord) TableName() string { return "game_rooms" }

// playerRecord room_players 表：每个成员一行，Seq 记录加入顺序
type playerRecord struct {
	ID               string    `gorm:"primaryKey;size:36"`
	RoomID           string    `gorm:"size:36;not null;uniqueIndex:idx_room_players_room_user"`
	UserID           string    `gorm:"size:64;not null;uniqueIndex:idx_room_players_room_user"`
	Seq              int       `gorm:"not null"`
	DisplayName      string    `gorm:"size:191"`
	Role             string    `gorm:"size:16;not null"`
	TokenColor       string    `gorm:"size:32"`
	JoinedAt         time.Time `gorm:"index"`
	ConnectionStatus string    `gorm:"size:16"`
}

func (playerRecord) TableName() string { return "room_players" }

// gameStateRecord room_game_states 表：每个房间一行，嵌套结构以 JSON 保存
type gameStateRecord struct {
	RoomID              string                            `gorm:"primaryKey;size:36"`
	CurrentTurnPlayerID string                            `gorm:"size:64"`
	PerPlayerState      map[string]domain.RoomPlayerState `gorm:"serializer:json;type:longtext"`
	MoveHistory         []domain.MoveRecord               `gorm:"serializer:json;type:longtext"`
	ActiveCard          *domain.ActiveCard                `gorm:"serializer:json;type:text"`
	Notes               domain.RoomNotes                  `gorm:"serializer:json;type:longtext"`
	Settings            domain.RoomSettings               `gorm:"serializer:json;type:text"`
	UpdatedAt           time.Time                         `gorm:"autoUpdateTime:false"`
}

func (gameStateRecord) TableName() string { return "room_game_states" }

// Models 返回需要迁移的表模型
func Models() []interface{} {
	return []interface{}{
		&roomRecord{},
		&playerRecord{},
		&gameStateRecord{},
		&domain.HistoryEntry{},
		&domain.User{},
	}
}

func toRecords(room *domain.GameRoom) (roomRecord, []playerRecord, gameStateRecord) {
	rr := roomRecord{
		ID:         room.ID,
		Code:       room.Code,
		HostUserID: room.HostUserID,
		BoardType:  string(room.BoardType),
		Status:     string(room.Status),
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
		Version:    room.Version,
	}
	players := make([]playerRecord, 0, len(room.Players))
	for i, p := range room.Players {
		players = append(players, playerRecord{
			ID:               p.ID,
			RoomID:           room.ID,
			UserID:           p.UserID,
			Seq:              i,
			DisplayName:      p.DisplayName,
			Role:             string(p.Role),
			TokenColor:       p.TokenColor,
			JoinedAt:         p.JoinedAt,
			ConnectionStatus: string(p.ConnectionStatus),
		})
	}
	gs := room.GameState
	st := gameStateRecord{
		RoomID:              room.ID,
		CurrentTurnPlayerID: gs.CurrentTurnPlayerID,
		PerPlayerState:      gs.PerPlayerState,
		MoveHistory:         gs.MoveHistory,
		ActiveCard:          gs.ActiveCard,
		Notes:               gs.Notes,
		Settings:            gs.Settings,
		UpdatedAt:           room.UpdatedAt,
	}
	return rr, players, st
}

// fromRecords 把三张表的数据重新组装成聚合
func fromRecords(rr roomRecord, players []playerRecord, st gameStateRecord) *domain.GameRoom {
	room := &domain.GameRoom{
		ID:         rr.ID,
		Code:       rr.Code,
		HostUserID: rr.HostUserID,
		BoardType:  domain.BoardType(rr.BoardType),
		Status:     domain.RoomStatus(rr.Status),
		CreatedAt:  rr.CreatedAt,
		UpdatedAt:  rr.UpdatedAt,
		Version:    rr.Version,
		Players:    make([]domain.RoomPlayer, 0, len(players)),
		GameState: domain.RoomGameState{
			CurrentTurnPlayerID: st.CurrentTurnPlayerID,
			PerPlayerState:      st.PerPlayerState,
			MoveHistory:         st.MoveHistory,
			ActiveCard:          st.ActiveCard,
			Notes:               st.Notes,
			Settings:            st.Settings,
		},
	}
	for _, p := range players {
		room.Players = append(room.Players, domain.RoomPlayer{
			ID:               p.ID,
			UserID:           p.UserID,
			DisplayName:      p.DisplayName,
			Role:             domain.PlayerRole(p.Role),
			TokenColor:       p.TokenColor,
			JoinedAt:         p.JoinedAt,
			ConnectionStatus: domain.ConnectionStatus(p.ConnectionStatus),
		})
	}
	room.Normalize()
	return room
}
