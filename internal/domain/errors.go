package domain

import "errors"

// ErrorKind 是房间协调器对调用方可见的失败类型，每种类型只对应一个前置条件。
type ErrorKind int

const (
	KindRoomNotFound ErrorKind = iota + 1
	KindRoomFull
	KindRoomFinished
	KindForbidden
	KindNotYourTurn
	KindRoomNotInProgress
	KindActiveCardPending
	KindPlayerAlreadyFinished
	KindHostCannotRoll
	KindTargetPlayerRequired
	KindInvalidTokenColor
	KindNoPlayers
	KindPlayerNotInRoom
)

var kindNames = map[ErrorKind]string{
	KindRoomNotFound:          "ROOM_NOT_FOUND",
	KindRoomFull:              "ROOM_FULL",
	KindRoomFinished:          "ROOM_FINISHED",
	KindForbidden:             "FORBIDDEN",
	KindNotYourTurn:           "NOT_YOUR_TURN",
	KindRoomNotInProgress:     "ROOM_NOT_IN_PROGRESS",
	KindActiveCardPending:     "ACTIVE_CARD_PENDING",
	KindPlayerAlreadyFinished: "PLAYER_ALREADY_FINISHED",
	KindHostCannotRoll:        "HOST_CANNOT_ROLL",
	KindTargetPlayerRequired:  "TARGET_PLAYER_REQUIRED",
	KindInvalidTokenColor:     "INVALID_TOKEN_COLOR",
	KindNoPlayers:             "NO_PLAYERS",
	KindPlayerNotInRoom:       "PLAYER_NOT_IN_ROOM",
}

// String 返回对外使用的信号名，例如 "NOT_YOUR_TURN"
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// RoomError 携带一个 ErrorKind，errors.Is 按 Kind 比较。
type RoomError struct {
	Kind ErrorKind
}

func (e *RoomError) Error() string {
	return e.Kind.String()
}

func (e *RoomError) Is(target error) bool {
	var t *RoomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrRoomNotFound          = &RoomError{Kind: KindRoomNotFound}
	ErrRoomFull              = &RoomError{Kind: KindRoomFull}
	ErrRoomFinished          = &RoomError{Kind: KindRoomFinished}
	ErrForbidden             = &RoomError{Kind: KindForbidden}
	ErrNotYourTurn           = &RoomError{Kind: KindNotYourTurn}
	ErrRoomNotInProgress     = &RoomError{Kind: KindRoomNotInProgress}
	ErrActiveCardPending     = &RoomError{Kind: KindActiveCardPending}
	ErrPlayerAlreadyFinished = &RoomError{Kind: KindPlayerAlreadyFinished}
	ErrHostCannotRoll        = &RoomError{Kind: KindHostCannotRoll}
	ErrTargetPlayerRequired  = &RoomError{Kind: KindTargetPlayerRequired}
	ErrInvalidTokenColor     = &RoomError{Kind: KindInvalidTokenColor}
	ErrNoPlayers             = &RoomError{Kind: KindNoPlayers}
	ErrPlayerNotInRoom       = &RoomError{Kind: KindPlayerNotInRoom}
)

// KindOf 取出错误链上的 ErrorKind，非房间错误返回 false。
func KindOf(err error) (ErrorKind, bool) {
	var re *RoomError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}
