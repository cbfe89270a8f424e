package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
	"lila-rooms/internal/tasks"
)

// HistorySnapshotHandler 把房间结束时的玩家进度写入历史仓库
type HistorySnapshotHandler struct {
	historyRepo repository.HistoryRepository
}

func NewHistorySnapshotHandler(historyRepo repository.HistoryRepository) *HistorySnapshotHandler {
	if historyRepo == nil {
		panic("HistoryRepository cannot be nil for HistorySnapshotHandler")
	}
	return &HistorySnapshotHandler{historyRepo: historyRepo}
}

// ProcessTask 实现 asynq.Handler 接口。payload 无法解析时跳过重试。
func (h *HistorySnapshotHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	currentRetry, _ := asynq.GetRetryCount(ctx)
	taskID, _ := asynq.GetTaskID(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
	})

	var payload tasks.HistorySnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	entry := payload.Entry
	if entry.ID == "" || entry.UserID == "" {
		logCtx.Error("History snapshot payload is missing id or user id")
		return fmt.Errorf("incomplete history payload: %w", asynq.SkipRetry)
	}

	if err := h.historyRepo.Upsert(ctx, []domain.HistoryEntry{entry}); err != nil {
		logCtx.WithError(err).Error("Failed to save history entry")
		return fmt.Errorf("failed to save history %s: %w", entry.ID, err)
	}

	logCtx.WithFields(logrus.Fields{"room_id": entry.RoomID, "user_id": entry.UserID}).Info("History snapshot saved")
	return nil
}
