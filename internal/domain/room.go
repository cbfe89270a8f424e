package domain

import "time"

// BoardType 决定棋盘的格子数和蛇/箭头表。
type BoardType string

const (
	BoardShort BoardType = "short"
	BoardFull  BoardType = "full"
)

// Valid 判断棋盘类型是否受支持
func (b BoardType) Valid() bool {
	return b == BoardShort || b == BoardFull
}

// RoomStatus 房间生命周期状态
type RoomStatus string

const (
	RoomStatusOpen       RoomStatus = "open"
	RoomStatusInProgress RoomStatus = "in_progress"
	RoomStatusPaused     RoomStatus = "paused"
	RoomStatusFinished   RoomStatus = "finished"
)

type PlayerRole string

const (
	RoleHost   PlayerRole = "host"
	RolePlayer PlayerRole = "player"
)

type ConnectionStatus string

const (
	ConnectionOnline  ConnectionStatus = "online"
	ConnectionOffline ConnectionStatus = "offline"
)

type PlayerProgress string

const (
	ProgressInProgress PlayerProgress = "in_progress"
	ProgressFinished   PlayerProgress = "finished"
)

// DiceMode 掷骰模式: classic=1 颗, fast=2 颗, triple=3 颗
type DiceMode string

const (
	DiceClassic DiceMode = "classic"
	DiceFast    DiceMode = "fast"
	DiceTriple  DiceMode = "triple"
)

// DiceCount 返回该模式下掷出的骰子数量，未知模式按 classic 处理。
func (m DiceMode) DiceCount() int {
	switch m {
	case DiceFast:
		return 2
	case DiceTriple:
		return 3
	default:
		return 1
	}
}

func (m DiceMode) Valid() bool {
	return m == DiceClassic || m == DiceFast || m == DiceTriple
}

// Transition 落点触发的格子跳转类型，空字符串表示没有跳转
type Transition string

const (
	TransitionNone  Transition = ""
	TransitionSnake Transition = "snake"
	TransitionArrow Transition = "arrow"
)

// MaxPlayers 房间人数上限 (含主持人)
const MaxPlayers = 6

// GameRoom 是房间聚合根，仓库每次读写都以整个聚合为单位。
type GameRoom struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	HostUserID string     `json:"hostUserId"`
	BoardType  BoardType  `json:"boardType"`
	Status     RoomStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	// Version 每次持久化成功加一，缓存只接受不比已有版本旧的快照
	Version   int64         `json:"version"`
	Players   []RoomPlayer  `json:"players"`
	GameState RoomGameState `json:"gameState"`
}

// RoomPlayer 一条成员记录，按加入顺序追加，从不删除。
type RoomPlayer struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	DisplayName      string           `json:"displayName"`
	Role             PlayerRole       `json:"role"`
	TokenColor       string           `json:"tokenColor"`
	JoinedAt         time.Time        `json:"joinedAt"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
}

// RoomGameState 房间内可变的对局状态
type RoomGameState struct {
	CurrentTurnPlayerID string                     `json:"currentTurnPlayerId"`
	PerPlayerState      map[string]RoomPlayerState `json:"perPlayerState"`
	MoveHistory         []MoveRecord               `json:"moveHistory"`
	ActiveCard          *ActiveCard                `json:"activeCard"`
	Notes               RoomNotes                  `json:"notes"`
	Settings            RoomSettings               `json:"settings"`
}

type RoomPlayerState struct {
	UserID      string         `json:"userId"`
	CurrentCell int            `json:"currentCell"`
	Status      PlayerProgress `json:"status"`
	NotesCount  int            `json:"notesCount"`
}

type MoveRecord struct {
	UserID       string     `json:"userId"`
	FromCell     int        `json:"fromCell"`
	ToCell       int        `json:"toCell"`
	Dice         int        `json:"dice"`
	DiceValues   []int      `json:"diceValues"`
	SnakeOrArrow Transition `json:"snakeOrArrow,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// ActiveCard 表示一次移动之后尚未确认的反思卡片
type ActiveCard struct {
	CellNumber   int       `json:"cellNumber"`
	PlayerUserID string    `json:"playerUserId"`
	OpenedAt     time.Time `json:"openedAt"`
}

// NoteScope 笔记的归属范围
type NoteScope string

const (
	NoteScopeHostCell   NoteScope = "host_cell"
	NoteScopeHostPlayer NoteScope = "host_player"
	NoteScopePlayer     NoteScope = "player"
)

type NoteEntry struct {
	CellNumber   int       `json:"cellNumber"`
	Text         string    `json:"text"`
	AuthorUserID string    `json:"authorUserId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RoomNotes 自由文本批注，引擎不解释其内容。
type RoomNotes struct {
	HostByCell     map[int][]NoteEntry    `json:"hostByCell"`
	HostByPlayerID map[string][]NoteEntry `json:"hostByPlayerId"`
	PlayerByUserID map[string][]NoteEntry `json:"playerByUserId"`
}

type RoomSettings struct {
	DiceMode              DiceMode `json:"diceMode"`
	AllowHostCloseAnyCard bool     `json:"allowHostCloseAnyCard"`
	HostCanPause          bool     `json:"hostCanPause"`
}

// DefaultSettings 新建房间时的设置
func DefaultSettings() RoomSettings {
	return RoomSettings{
		DiceMode:              DiceClassic,
		AllowHostCloseAnyCard: true,
		HostCanPause:          true,
	}
}

// SettingsPatch 只包含需要修改的字段
type SettingsPatch struct {
	DiceMode              *DiceMode `json:"diceMode,omitempty"`
	AllowHostCloseAnyCard *bool     `json:"allowHostCloseAnyCard,omitempty"`
	HostCanPause          *bool     `json:"hostCanPause,omitempty"`
}

// FindPlayer 按 userId 查找成员
func (r *GameRoom) FindPlayer(userID string) (*RoomPlayer, bool) {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i], true
		}
	}
	return nil, false
}

func (r *GameRoom) IsMember(userID string) bool {
	_, ok := r.FindPlayer(userID)
	return ok
}

func (r *GameRoom) IsHost(userID string) bool {
	return userID != "" && userID == r.HostUserID
}

// GuestCount 统计除主持人以外的成员数
func (r *GameRoom) GuestCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Role != RoleHost {
			n++
		}
	}
	return n
}

// Clone 返回聚合的深拷贝，对外返回的快照都经过它，调用方修改不会影响仓库内的数据。
func (r *GameRoom) Clone() *GameRoom {
	if r == nil {
		return nil
	}
	out := *r
	out.Players = append([]RoomPlayer(nil), r.Players...)

	gs := r.GameState
	out.GameState = RoomGameState{
		CurrentTurnPlayerID: gs.CurrentTurnPlayerID,
		PerPlayerState:      make(map[string]RoomPlayerState, len(gs.PerPlayerState)),
		MoveHistory:         make([]MoveRecord, len(gs.MoveHistory)),
		Notes:               cloneNotes(gs.Notes),
		Settings:            gs.Settings,
	}
	for k, v := range gs.PerPlayerState {
		out.GameState.PerPlayerState[k] = v
	}
	for i, m := range gs.MoveHistory {
		m.DiceValues = append([]int(nil), m.DiceValues...)
		out.GameState.MoveHistory[i] = m
	}
	if gs.ActiveCard != nil {
		card := *gs.ActiveCard
		out.GameState.ActiveCard = &card
	}
	return &out
}

func cloneNotes(n RoomNotes) RoomNotes {
	out := NewRoomNotes()
	for k, v := range n.HostByCell {
		out.HostByCell[k] = append([]NoteEntry(nil), v...)
	}
	for k, v := range n.HostByPlayerID {
		out.HostByPlayerID[k] = append([]NoteEntry(nil), v...)
	}
	for k, v := range n.PlayerByUserID {
		out.PlayerByUserID[k] = append([]NoteEntry(nil), v...)
	}
	return out
}

// NewRoomNotes 返回三个 map 都已初始化的空笔记
func NewRoomNotes() RoomNotes {
	return RoomNotes{
		HostByCell:     make(map[int][]NoteEntry),
		HostByPlayerID: make(map[string][]NoteEntry),
		PlayerByUserID: make(map[string][]NoteEntry),
	}
}

// Normalize 补齐反序列化后可能为 nil 的 map/slice
func (r *GameRoom) Normalize() {
	if r.Players == nil {
		r.Players = []RoomPlayer{}
	}
	gs := &r.GameState
	if gs.PerPlayerState == nil {
		gs.PerPlayerState = make(map[string]RoomPlayerState)
	}
	if gs.MoveHistory == nil {
		gs.MoveHistory = []MoveRecord{}
	}
	if gs.Notes.HostByCell == nil {
		gs.Notes.HostByCell = make(map[int][]NoteEntry)
	}
	if gs.Notes.HostByPlayerID == nil {
		gs.Notes.HostByPlayerID = make(map[string][]NoteEntry)
	}
	if gs.Notes.PlayerByUserID == nil {
		gs.Notes.PlayerByUserID = make(map[string][]NoteEntry)
	}
	if gs.Settings.DiceMode == "" {
		gs.Settings.DiceMode = DiceClassic
	}
}
