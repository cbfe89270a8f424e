// Package setup 负责建立 MySQL 和 Redis 连接以及表结构迁移。
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBOptions MySQL 连接参数
type DBOptions struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	// Debug 为 true 时打印全部 SQL
	Debug bool
}

// DSN 构建 MySQL 连接字符串
func (o DBOptions) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		o.User, o.Password, o.Host, o.Port, o.Name)
}

// InitDB 打开 MySQL 连接并配置连接池
func InitDB(opts DBOptions) (*gorm.DB, error) {
	logLevel := logger.Warn
	if opts.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(mysql.Open(opts.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	logrus.WithFields(logrus.Fields{"host": opts.Host, "db": opts.Name}).Info("MySQL connected")
	return db, nil
}

// RedisOptions Redis 连接参数
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// InitRedis 创建 Redis 客户端并 Ping 一次
func InitRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	logrus.WithField("addr", opts.Addr).Info("Redis connected")
	return client, nil
}
