package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository/mocks"
	"lila-rooms/internal/tasks"
)

func TestHistorySnapshotHandler_Upserts(t *testing.T) {
	repo := new(mocks.HistoryRepository)
	entry := domain.HistoryEntry{ID: domain.HistoryEntryID("r1", "2"), RoomID: "r1", UserID: "2", FinalCell: 55}
	repo.On("Upsert", mock.Anything, []domain.HistoryEntry{entry}).Return(nil).Once()

	task, err := tasks.NewHistorySnapshotTask(entry)
	require.NoError(t, err)

	// 通过 mux 分发，确认任务类型已注册
	require.NoError(t, NewServeMux(repo).ProcessTask(context.Background(), task))
	repo.AssertExpectations(t)
}

func TestHistorySnapshotHandler_BadPayloadSkipsRetry(t *testing.T) {
	repo := new(mocks.HistoryRepository)
	h := NewHistorySnapshotHandler(repo)

	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeHistorySnapshot, []byte("{oops")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	payload, _ := json.Marshal(tasks.HistorySnapshotPayload{})
	err = h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeHistorySnapshot, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestHistorySnapshotHandler_RepoErrorIsRetried(t *testing.T) {
	repo := new(mocks.HistoryRepository)
	boom := errors.New("db down")
	repo.On("Upsert", mock.Anything, mock.Anything).Return(boom).Once()

	task, err := tasks.NewHistorySnapshotTask(domain.HistoryEntry{ID: "h1", UserID: "2"})
	require.NoError(t, err)

	err = NewHistorySnapshotHandler(repo).ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
