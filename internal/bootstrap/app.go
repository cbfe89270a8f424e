// Package bootstrap 读取配置、组装依赖并管理进程生命周期。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lila-rooms/internal/infra/memory"
	gormpersistence "lila-rooms/internal/infra/persistence/gorm"
	"lila-rooms/internal/infra/setup"
	redisstate "lila-rooms/internal/infra/state/redis"
	"lila-rooms/internal/repository"
	"lila-rooms/internal/service"
	"lila-rooms/internal/tasks"
	"lila-rooms/internal/worker"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	Worker      *worker.WorkerServer
	RoomService *service.RoomService
	HttpServer  *http.Server
}

// Repositories 一种存储模式下的全部仓库
type Repositories struct {
	Rooms   repository.RoomRepository
	Users   repository.UserRepository
	History repository.HistoryRepository
}

// NewLogger 生产环境输出 JSON，其他环境输出带完整时间戳的文本
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	// 服务层直接使用 logrus 包级 logger，保持同样的格式和级别
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(level)
	return log
}

// NewMemoryRepositories 纯内存模式，进程退出后数据丢失
func NewMemoryRepositories() Repositories {
	return Repositories{
		Rooms:   memory.NewRoomRepository(memory.NewRegistry()),
		Users:   memory.NewUserRepository(),
		History: memory.NewHistoryRepository(),
	}
}

// NewGormRepositories 数据库模式。cache 为 nil 时使用进程内注册表作为读缓存。
func NewGormRepositories(db *gorm.DB, cache repository.RoomCache) Repositories {
	if cache == nil {
		cache = memory.NewRegistry()
	}
	return Repositories{
		Rooms:   gormpersistence.NewGormRoomRepository(db, cache),
		Users:   gormpersistence.NewGormUserRepository(db),
		History: gormpersistence.NewGormHistoryRepository(db),
	}
}

// OpenStores 按配置连接 MySQL 和 Redis 并返回对应的仓库。未配置的部分返回 nil。
func OpenStores(ctx context.Context, cfg *Config, log *logrus.Logger) (*gorm.DB, *redis.Client, Repositories, error) {
	var redisClient *redis.Client
	if cfg.UseRedis() {
		client, err := setup.InitRedis(ctx, setup.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return nil, nil, Repositories{}, fmt.Errorf("failed to init Redis: %w", err)
		}
		redisClient = client
	}

	if !cfg.UseDatabase() {
		log.Warn("DB_HOST not set, running with in-memory storage")
		return nil, redisClient, NewMemoryRepositories(), nil
	}

	db, err := setup.InitDB(setup.DBOptions{
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		Debug:    log.IsLevelEnabled(logrus.DebugLevel),
	})
	if err != nil {
		return nil, nil, Repositories{}, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, nil, Repositories{}, fmt.Errorf("failed to migrate DB: %w", err)
	}

	var cache repository.RoomCache
	if redisClient != nil {
		cache = redisstate.NewRedisRoomCache(redisClient, cfg.RedisKeyPrefix, cfg.RoomCacheTTL)
	}
	return db, redisClient, NewGormRepositories(db, cache), nil
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}
	log := NewLogger(cfg)
	log.WithFields(logrus.Fields{"env": cfg.AppEnv, "level": log.GetLevel().String()}).Info("Configuration loaded")

	db, redisClient, repos, err := OpenStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Log: log, DB: db, RedisClient: redisClient}

	var notifier service.HistoryNotifier = service.NewDirectHistoryNotifier(repos.History)
	if cfg.HistoryAsync {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		app.AsynqClient = asynq.NewClient(redisOpt)
		app.Worker = worker.NewWorkerServer(redisOpt, repos.History, cfg.WorkerConcurrency, log)
		notifier = tasks.NewAsynqHistoryNotifier(app.AsynqClient)
		log.Info("History snapshots are written asynchronously through asynq")
	}

	authService, err := service.NewAuthService(repos.Users, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	roomService, err := service.NewRoomService(repos.Rooms,
		service.WithHistoryNotifier(notifier),
		service.WithStrictCardGate(cfg.StrictCardGate),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create RoomService: %w", err)
	}
	app.RoomService = roomService

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := NewRouter(RouterDeps{
		Config:         cfg,
		Log:            log,
		RedisClient:    redisClient,
		AuthService:    authService,
		RoomService:    roomService,
		HistoryService: service.NewHistoryService(repos.History),
	})

	app.HttpServer = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return app, nil
}

// Start 启动 worker 和 HTTP 服务器，不阻塞
func (a *App) Start() {
	if a.Worker != nil {
		go a.Worker.Start()
	}
	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.Worker != nil {
		a.Worker.Shutdown()
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	a.Log.Info("Application shutdown complete.")
}
