// Package tasks 定义异步任务类型和入队逻辑。
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"lila-rooms/internal/domain"
)

// 任务类型常量
const (
	TypeHistorySnapshot = "history:snapshot"
)

// QueueDefault 历史快照使用的队列
const QueueDefault = "default"

// HistorySnapshotPayload 一个玩家在房间结束时的进度快照
type HistorySnapshotPayload struct {
	Entry domain.HistoryEntry `json:"entry"`
}

// NewHistorySnapshotTask 创建任务。任务 ID 就是历史记录 ID，队列中已存在同 ID 的任务时 asynq 会拒绝重复入队。
func NewHistorySnapshotTask(entry domain.HistoryEntry) (*asynq.Task, error) {
	payload, err := json.Marshal(HistorySnapshotPayload{Entry: entry})
	if err != nil {
		return nil, fmt.Errorf("marshal history snapshot payload: %w", err)
	}
	return asynq.NewTask(TypeHistorySnapshot, payload,
		asynq.TaskID(entry.ID),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// Enqueuer 是 *asynq.Client 中用到的部分
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqHistoryNotifier 为每位玩家入队一个历史快照任务，由 worker 写入历史仓库。
type AsynqHistoryNotifier struct {
	client Enqueuer
}

func NewAsynqHistoryNotifier(client Enqueuer) *AsynqHistoryNotifier {
	if client == nil {
		panic("asynq client cannot be nil for AsynqHistoryNotifier")
	}
	return &AsynqHistoryNotifier{client: client}
}

// NotifyFinished 逐条入队，遇到错误继续处理剩余记录，最后返回合并后的错误。
func (n *AsynqHistoryNotifier) NotifyFinished(ctx context.Context, entries []domain.HistoryEntry) error {
	var errs []error
	for _, entry := range entries {
		logCtx := logrus.WithFields(logrus.Fields{"room_id": entry.RoomID, "user_id": entry.UserID, "task_id": entry.ID})
		task, err := NewHistorySnapshotTask(entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := n.client.EnqueueContext(ctx, task); err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				// 同一条记录的任务还在队列里，等价于已入队
				logCtx.Debug("History snapshot task already queued")
				continue
			}
			logCtx.WithError(err).Error("Failed to enqueue history snapshot task")
			errs = append(errs, fmt.Errorf("enqueue history %s: %w", entry.ID, err))
			continue
		}
		logCtx.Debug("History snapshot task enqueued")
	}
	return errors.Join(errs...)
}
