package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/game"
	"lila-rooms/internal/infra/memory"
	"lila-rooms/internal/repository"
	"lila-rooms/internal/repository/mocks"
	"lila-rooms/internal/service"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func constantRoller(v int) game.DiceRoller {
	return game.RollerFunc(func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = v
		}
		return out
	})
}

func newRoomService(t *testing.T, opts ...service.RoomOption) (*service.RoomService, *memory.RoomRepository) {
	t.Helper()
	repo := memory.NewRoomRepository(memory.NewRegistry())
	base := []service.RoomOption{
		service.WithRoller(constantRoller(3)),
		service.WithClock(func() time.Time { return fixedNow }),
	}
	svc, err := service.NewRoomService(repo, append(base, opts...)...)
	require.NoError(t, err)
	return svc, repo
}

func TestRoomService_FullScenario(t *testing.T) {
	ctx := context.Background()
	notifier := new(mocks.HistoryNotifier)
	svc, _ := newRoomService(t, service.WithHistoryNotifier(notifier))

	room, err := svc.CreateRoom(ctx, "H", "Host", domain.BoardFull)
	require.NoError(t, err)
	assert.Len(t, room.Code, 6)

	_, err = svc.JoinRoom(ctx, room.ID, "A", "Alice")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.ID, "B", "Bob")
	require.NoError(t, err)

	room, err = svc.StartRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusInProgress, room.Status)
	assert.Equal(t, "A", room.GameState.CurrentTurnPlayerID)

	room, move, err := svc.RollDice(ctx, room.ID, "A")
	require.NoError(t, err)
	// 1 + 3 = 4 是箭头，到 14
	assert.Equal(t, 1, move.FromCell)
	assert.Equal(t, 14, move.ToCell)
	assert.Equal(t, domain.TransitionArrow, move.SnakeOrArrow)
	assert.Equal(t, 14, room.GameState.PerPlayerState["A"].CurrentCell)
	assert.Equal(t, "B", room.GameState.CurrentTurnPlayerID)
	require.NotNil(t, room.GameState.ActiveCard)
	assert.Equal(t, "A", room.GameState.ActiveCard.PlayerUserID)

	_, _, err = svc.RollDice(ctx, room.ID, "H")
	assert.ErrorIs(t, err, domain.ErrHostCannotRoll)

	room, err = svc.PauseRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusPaused, room.Status)
	room, err = svc.ResumeRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusInProgress, room.Status)

	notifier.On("NotifyFinished", mock.Anything, mock.MatchedBy(func(entries []domain.HistoryEntry) bool {
		return len(entries) == 3 &&
			entries[1].UserID == "A" &&
			entries[1].FinalCell == 14 &&
			entries[1].MovesCount == 1 &&
			entries[1].ID == domain.HistoryEntryID(room.ID, "A")
	})).Return(nil).Twice()

	room, err = svc.FinishRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusFinished, room.Status)

	_, err = svc.RecordNote(ctx, room.ID, "A", game.NoteInput{CellNumber: 14, Text: "late"})
	assert.ErrorIs(t, err, domain.ErrRoomFinished)
	_, _, err = svc.RollDice(ctx, room.ID, "B")
	assert.ErrorIs(t, err, domain.ErrRoomNotInProgress)
	_, err = svc.JoinRoom(ctx, room.ID, "C", "Carol")
	assert.ErrorIs(t, err, domain.ErrRoomFinished)
	_, err = svc.PauseRoom(ctx, room.ID, "H")
	assert.ErrorIs(t, err, domain.ErrRoomFinished)

	// 再次结束仍然成功，通知的记录 ID 相同
	_, err = svc.FinishRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestRoomService_StartNeedsPlayers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t)
	room, err := svc.CreateRoom(ctx, "H", "Host", domain.BoardShort)
	require.NoError(t, err)

	_, err = svc.StartRoom(ctx, room.ID, "H")
	assert.ErrorIs(t, err, domain.ErrNoPlayers)

	_, err = svc.JoinRoom(ctx, room.ID, "A", "Alice")
	require.NoError(t, err)
	_, err = svc.StartRoom(ctx, room.ID, "A")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	room, err = svc.StartRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusInProgress, room.Status)
}

func TestRoomService_TurnLegalityLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t)
	room, _ := svc.CreateRoom(ctx, "H", "Host", domain.BoardFull)
	_, _ = svc.JoinRoom(ctx, room.ID, "A", "Alice")
	_, _ = svc.JoinRoom(ctx, room.ID, "B", "Bob")
	_, err := svc.StartRoom(ctx, room.ID, "H")
	require.NoError(t, err)

	before, err := svc.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	_, _, err = svc.RollDice(ctx, room.ID, "B")
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)
	after, err := svc.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRoomService_CardGate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t)
	room, _ := svc.CreateRoom(ctx, "H", "Host", domain.BoardFull)
	_, _ = svc.JoinRoom(ctx, room.ID, "A", "Alice")
	_, _ = svc.JoinRoom(ctx, room.ID, "B", "Bob")
	_, _ = svc.StartRoom(ctx, room.ID, "H")

	room, _, err := svc.RollDice(ctx, room.ID, "A")
	require.NoError(t, err)
	require.NotNil(t, room.GameState.ActiveCard)

	_, _, err = svc.RollDice(ctx, room.ID, "A")
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)

	_, err = svc.CloseActiveCard(ctx, room.ID, "B")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	room, err = svc.CloseActiveCard(ctx, room.ID, "A")
	require.NoError(t, err)
	assert.Nil(t, room.GameState.ActiveCard)

	// 没有卡片时关闭是空操作
	_, err = svc.CloseActiveCard(ctx, room.ID, "B")
	assert.NoError(t, err)
}

func TestRoomService_StrictCardGate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t, service.WithStrictCardGate(true))
	room, _ := svc.CreateRoom(ctx, "H", "Host", domain.BoardFull)
	_, _ = svc.JoinRoom(ctx, room.ID, "A", "Alice")
	_, _ = svc.JoinRoom(ctx, room.ID, "B", "Bob")
	_, _ = svc.StartRoom(ctx, room.ID, "H")

	_, _, err := svc.RollDice(ctx, room.ID, "A")
	require.NoError(t, err)
	_, _, err = svc.RollDice(ctx, room.ID, "B")
	assert.ErrorIs(t, err, domain.ErrActiveCardPending)

	_, err = svc.CloseActiveCard(ctx, room.ID, "H")
	require.NoError(t, err)
	_, _, err = svc.RollDice(ctx, room.ID, "B")
	assert.NoError(t, err)
}

func TestRoomService_IdempotentRejoinAtCapacity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t)
	room, _ := svc.CreateRoom(ctx, "H", "Host", domain.BoardShort)
	for i := 1; i < domain.MaxPlayers; i++ {
		_, err := svc.JoinRoom(ctx, room.ID, fmt.Sprintf("u%d", i), "P")
		require.NoError(t, err)
	}

	room, err := svc.JoinRoom(ctx, room.ID, "u1", "P")
	require.NoError(t, err)
	assert.Len(t, room.Players, domain.MaxPlayers)

	_, err = svc.JoinRoom(ctx, room.ID, "late", "Late")
	assert.ErrorIs(t, err, domain.ErrRoomFull)
}

func TestRoomService_CodesAreUnique(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		room, err := svc.CreateRoom(ctx, "H", "Host", domain.BoardShort)
		require.NoError(t, err)
		require.False(t, seen[room.Code], "duplicate code %s", room.Code)
		seen[room.Code] = true
		for _, c := range room.Code {
			assert.NotContains(t, "01IO", string(c))
		}
	}
}

func TestRoomService_CodeAllocationExhausted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t, service.WithCodeGenerator(func() (string, error) { return "SAMEAA", nil }))

	_, err := svc.CreateRoom(ctx, "H", "Host", domain.BoardShort)
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, "H2", "Host", domain.BoardShort)
	assert.ErrorIs(t, err, service.ErrInternalServer)
}

func TestRoomService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t)

	_, err := svc.GetRoomByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = svc.GetRoomByCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = svc.JoinRoom(ctx, "missing", "A", "Alice")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomService_NotesSettingsAndColor(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t)
	room, _ := svc.CreateRoom(ctx, "H", "Host", domain.BoardFull)
	_, _ = svc.JoinRoom(ctx, room.ID, "A", "Alice")

	_, err := svc.RecordNote(ctx, room.ID, "H", game.NoteInput{CellNumber: 5, Text: "x", Scope: domain.NoteScopeHostPlayer})
	assert.ErrorIs(t, err, domain.ErrTargetPlayerRequired)
	_, err = svc.RecordNote(ctx, room.ID, "stranger", game.NoteInput{CellNumber: 5, Text: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	room, err = svc.RecordNote(ctx, room.ID, "A", game.NoteInput{CellNumber: 5, Text: "mine"})
	require.NoError(t, err)
	assert.Equal(t, 1, room.GameState.PerPlayerState["A"].NotesCount)

	fast := domain.DiceFast
	_, err = svc.UpdateSettings(ctx, room.ID, "A", domain.SettingsPatch{DiceMode: &fast})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	room, err = svc.UpdateSettings(ctx, room.ID, "H", domain.SettingsPatch{DiceMode: &fast})
	require.NoError(t, err)
	assert.Equal(t, domain.DiceFast, room.GameState.Settings.DiceMode)

	bogus := domain.DiceMode("bogus")
	_, err = svc.UpdateSettings(ctx, room.ID, "H", domain.SettingsPatch{DiceMode: &bogus})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.UpdateTokenColor(ctx, room.ID, "A", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidTokenColor)
	room, err = svc.UpdateTokenColor(ctx, room.ID, "A", " teal ")
	require.NoError(t, err)
	p, _ := room.FindPlayer("A")
	assert.Equal(t, "teal", p.TokenColor)
}

// failingRepo 在 Update 时返回存储故障
type failingRepo struct {
	repository.RoomRepository
}

func (failingRepo) Update(context.Context, string, repository.MutateFunc) (*domain.GameRoom, error) {
	return nil, errors.New("connection refused")
}

func TestRoomService_StoreFaultIsOpaque(t *testing.T) {
	repo := failingRepo{RoomRepository: memory.NewRoomRepository(memory.NewRegistry())}
	svc, err := service.NewRoomService(repo, service.WithRoller(constantRoller(1)))
	require.NoError(t, err)

	_, err = svc.StartRoom(context.Background(), "r1", "H")
	assert.ErrorIs(t, err, service.ErrInternalServer)
	_, ok := domain.KindOf(err)
	assert.False(t, ok)
}

func TestRoomService_FinishNotifyFailureIsNotReturned(t *testing.T) {
	ctx := context.Background()
	notifier := new(mocks.HistoryNotifier)
	notifier.On("NotifyFinished", mock.Anything, mock.Anything).Return(errors.New("queue down")).Once()
	svc, _ := newRoomService(t, service.WithHistoryNotifier(notifier))
	room, _ := svc.CreateRoom(ctx, "H", "Host", domain.BoardShort)

	room, err := svc.FinishRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusFinished, room.Status)
	notifier.AssertExpectations(t)
}

func TestRoomService_ClearAll(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService(t)
	room, _ := svc.CreateRoom(ctx, "H", "Host", domain.BoardShort)

	require.NoError(t, svc.ClearAll(ctx))
	_, err := svc.GetRoomByID(ctx, room.ID)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestHistoryService_ListForUser(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.HistoryRepository)
	entries := []domain.HistoryEntry{{ID: "e1", UserID: "7", FinalCell: 30}}
	repo.On("ListByUser", ctx, "7", 100).Return(entries, nil).Once()

	svc := service.NewHistoryService(repo)
	got, err := svc.ListForUser(ctx, "7", 0)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	_, err = svc.ListForUser(ctx, "", 10)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	repo.AssertExpectations(t)
}

func TestRoomService_RefinishKeepsFinishTime(t *testing.T) {
	ctx := context.Background()
	history := memory.NewHistoryRepository()
	clock := fixedNow
	svc, _ := newRoomService(t,
		service.WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
		service.WithHistoryNotifier(service.NewDirectHistoryNotifier(history)),
	)
	room, err := svc.CreateRoom(ctx, "H", "Host", domain.BoardShort)
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.ID, "A", "Alice")
	require.NoError(t, err)

	first, err := svc.FinishRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	again, err := svc.FinishRoom(ctx, room.ID, "H")
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.Equal(first.UpdatedAt))

	list, err := history.ListByUser(ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].FinishedAt.Equal(first.UpdatedAt))
}
