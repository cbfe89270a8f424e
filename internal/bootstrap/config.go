package bootstrap

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 从环境变量加载的全部配置。DB_HOST 为空时以纯内存模式运行。
type Config struct {
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`
	DBName     string `env:"DB_NAME" envDefault:"lila_rooms"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"lila:"`

	JWTSecret      string `env:"JWT_SECRET,required"`
	JWTExpiryHours int    `env:"JWT_EXPIRY_HOURS" envDefault:"24"`

	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`

	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1s"`

	RoomCacheTTL      time.Duration `env:"ROOM_CACHE_TTL" envDefault:"30m"`
	StrictCardGate    bool          `env:"ROOM_STRICT_CARD_GATE" envDefault:"false"`
	EnableAdminRoutes bool          `env:"ENABLE_ADMIN_ROUTES" envDefault:"false"`
	HistoryAsync      bool          `env:"HISTORY_ASYNC" envDefault:"true"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"5"`
	CORSAllowedOrigin string        `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`
}

// UseDatabase 是否配置了 MySQL
func (c *Config) UseDatabase() bool { return c.DBHost != "" }

// UseRedis 是否配置了 Redis
func (c *Config) UseRedis() bool { return c.RedisAddr != "" }

// IsProduction APP_ENV=production
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// LoadConfig 先加载 .env (如果存在)，再解析环境变量
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	if cfg.DBHost != "" && cfg.DBUser == "" {
		return nil, fmt.Errorf("environment variable DB_USER must be set when DB_HOST is set")
	}
	if cfg.HistoryAsync && !cfg.UseRedis() {
		// 异步历史任务依赖 Redis
		cfg.HistoryAsync = false
	}
	return cfg, nil
}
