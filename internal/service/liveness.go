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

// LivenessService 存活检测服务
// 心跳超过阈值未更新的服务器标记为离线，恢复上线只由心跳处理触发
type LivenessService struct {
	db  *db.Manager
	cfg *config.EngineConfig
}

// NewLivenessService 创建存活检测服务
func NewLivenessService(dbManager *db.Manager, cfg *config.EngineConfig) *LivenessService {
	return &LivenessService{
		db:  dbManager,
		cfg: cfg,
	}
}

// RunPass 执行一轮存活检测
func (s *LivenessService) RunPass() error {
	cutoff := time.Now().UTC().Add(-s.cfg.StalenessWindowDuration())

	marked, err := s.db.DB.SQLite.MarkStaleServersOffline(cutoff)
	if err != nil {
		return fmt.Errorf("failed to mark stale servers offline: %w", err)
	}

	if marked > 0 {
		logger.Info("服务器心跳超时，标记为离线",
			zap.Int64("count", marked),
			zap.Time("cutoff", cutoff))
	}

	counts, err := s.db.DB.SQLite.CountOnlineServersByTenant()
	if err != nil {
		return fmt.Errorf("failed to count online servers: %w", err)
	}
	metrics.ServersOnline.Reset()
	for tenantID, count := range counts {
		metrics.ServersOnline.WithLabelValues(tenantID).Set(float64(count))
	}
	return nil
}
