package bootstrap

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	httpHandler "lila-rooms/internal/handler/http"
	"lila-rooms/internal/middleware"
	"lila-rooms/internal/service"
)

// RouterDeps 组装路由所需的服务。RedisClient 为 nil 时不启用限流。
type RouterDeps struct {
	Config         *Config
	Log            *logrus.Logger
	RedisClient    *redis.Client
	AuthService    *service.AuthService
	RoomService    *service.RoomService
	HistoryService *service.HistoryService
}

// NewRouter 创建 gin 引擎并注册全部路由
func NewRouter(d RouterDeps) *gin.Engine {
	cfg := d.Config
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(d.Log))
	router.Use(corsMiddleware(cfg.CORSAllowedOrigin))
	if d.RedisClient != nil && cfg.RateLimitMax > 0 {
		router.Use(middleware.RateLimit(d.RedisClient, cfg.RedisKeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))
	}

	authHandler := httpHandler.NewAuthHandler(d.AuthService)
	roomHandler := httpHandler.NewRoomHandler(d.RoomService)
	historyHandler := httpHandler.NewHistoryHandler(d.HistoryService)

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	secured := api.Group("", middleware.Auth(cfg.JWTSecret))
	roomHandler.RegisterRoutes(secured)
	secured.GET("/me/history", historyHandler.ListMine)
	if cfg.EnableAdminRoutes {
		d.Log.Warn("Admin routes enabled: POST /api/admin/clear wipes every room")
		secured.POST("/admin/clear", roomHandler.ClearAll)
	}

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	return router
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  time.Since(startTime).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
