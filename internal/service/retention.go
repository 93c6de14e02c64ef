package service

import (
	"fmt"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	"github.com/eminbuyuk/lxmon/internal/config"
	"github.com/eminbuyuk/lxmon/internal/metrics"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"go.uber.org/zap"
)

// RetentionService 数据清理服务
// 周期性删除超过保留期的历史指标，控制SQLite体积
type RetentionService struct {
	db  *db.Manager
	cfg *config.EngineConfig
}

// NewRetentionService 创建数据清理服务
func NewRetentionService(dbManager *db.Manager, cfg *config.EngineConfig) *RetentionService {
	return &RetentionService{
		db:  dbManager,
		cfg: cfg,
	}
}

// RunPass 执行一轮清理
func (s *RetentionService) RunPass() error {
	cutoff := time.Now().UTC().Add(-s.cfg.RetentionDuration())

	deleted, err := s.db.DB.SQLite.DeleteMetricsBefore(cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired metrics: %w", err)
	}

	if deleted > 0 {
		metrics.MetricsPruned.Add(float64(deleted))
		logger.Info("清理过期指标",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return nil
}
