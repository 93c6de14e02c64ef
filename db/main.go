package db

import (
	"fmt"

	"github.com/eminbuyuk/lxmon/db/cache"
	"github.com/eminbuyuk/lxmon/db/sqlite"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"go.uber.org/zap"
)

// Manager 数据库管理器
type Manager struct {
	DB    *DB
	Cache *Cache
}

// Config 数据库配置
type Config struct {
	// SQLite配置
	SQLitePath string

	// Redis配置
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewManager 创建新的数据库管理器
func NewManager(cfg *Config) (*Manager, error) {
	// 初始化SQLite
	sqliteDB, err := sqlite.NewSQLiteDB(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to init SQLite: %w", err)
	}
	logger.Info("SQLite已初始化", zap.String("path", cfg.SQLitePath))

	manager := &Manager{
		DB: NewDB(sqliteDB),
	}

	// 初始化Redis
	// Redis是可选的：连接失败时聚合与命令队列降级，引擎其余部分照常运行
	redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("Redis连接失败，降级为无缓存模式", zap.Error(err))
	} else {
		logger.Info("Redis已连接", zap.String("addr", cfg.RedisAddr))
		manager.Cache = NewCache(redisCache)
	}

	return manager, nil
}

// Close 关闭所有数据库连接
func (m *Manager) Close() error {
	var errs []error

	if m.DB != nil {
		if err := m.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("SQLite close error: %w", err))
		}
	}

	if m.Cache != nil {
		if err := m.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("Redis close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}

	return nil
}

// HasCache 检查是否有缓存可用
func (m *Manager) HasCache() bool {
	return m.Cache != nil && m.Cache.Redis != nil
}
