// Package worker 运行 asynq 消费端，处理房间结束后的历史快照任务。
package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"lila-rooms/internal/repository"
	"lila-rooms/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 的启动和关闭逻辑
type WorkerServer struct {
	server      *asynq.Server
	log         *logrus.Entry
	historyRepo repository.HistoryRepository
}

// NewWorkerServer 创建一个新的 WorkerServer 实例
func NewWorkerServer(redisOpt asynq.RedisClientOpt, historyRepo repository.HistoryRepository, concurrency int, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")
	if concurrency <= 0 {
		concurrency = 5
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				tasks.QueueDefault: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID, _ := asynq.GetTaskID(ctx)
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
			Logger: logEntry,
		},
	)

	return &WorkerServer{
		server:      server,
		log:         logEntry,
		historyRepo: historyRepo,
	}
}

// NewServeMux 注册全部任务处理器
func NewServeMux(historyRepo repository.HistoryRepository) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeHistorySnapshot, NewHistorySnapshotHandler(historyRepo))
	return mux
}

// Start 运行 Worker Server，阻塞到 Shutdown 被调用，应在单独的 goroutine 中调用。
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(NewServeMux(ws.historyRepo)); err != nil {
		if errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Info("Worker server stopped.")
			return
		}
		ws.log.WithError(err).Error("Could not run worker server")
	}
}

// Shutdown 优雅地关闭 Worker Server
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
