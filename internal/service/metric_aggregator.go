package service

import (
	"fmt"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	dbinit "github.com/eminbuyuk/lxmon/db/init"
	"github.com/eminbuyuk/lxmon/internal/config"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"go.uber.org/zap"
)

// MetricAggregatorService 指标汇聚服务
// 周期性地把最近窗口内的原始指标压缩成每台服务器的最新快照，写入Redis
type MetricAggregatorService struct {
	db  *db.Manager
	cfg *config.EngineConfig
}

// NewMetricAggregatorService 创建指标汇聚服务
func NewMetricAggregatorService(dbManager *db.Manager, cfg *config.EngineConfig) *MetricAggregatorService {
	return &MetricAggregatorService{
		db:  dbManager,
		cfg: cfg,
	}
}

// RunPass 执行一轮汇聚
func (s *MetricAggregatorService) RunPass() error {
	if !s.db.HasCache() {
		logger.Debug("Redis不可用，跳过指标汇聚")
		return nil
	}

	since := time.Now().UTC().Add(-s.cfg.AggregationWindowDuration())
	metrics, err := s.db.DB.SQLite.ListRecentMetrics(since, s.cfg.AggregationBatch)
	if err != nil {
		return fmt.Errorf("failed to list recent metrics: %w", err)
	}

	if len(metrics) == 0 {
		return nil
	}

	snapshots := GroupLatestSnapshots(metrics)

	ttl := s.cfg.CacheTTLDuration()
	var failed int
	for serverID, snapshot := range snapshots {
		if err := s.db.Cache.Redis.SetLatestMetrics(serverID, snapshot, ttl); err != nil {
			// 单台服务器写入失败不影响其他服务器
			logger.Error("写入最新指标缓存失败",
				zap.Int64("serverID", serverID),
				zap.Error(err))
			failed++
		}
	}

	logger.Debug("指标汇聚完成",
		zap.Int("metrics", len(metrics)),
		zap.Int("servers", len(snapshots)))

	if failed > 0 {
		return fmt.Errorf("failed to cache snapshots for %d servers", failed)
	}
	return nil
}

// GroupLatestSnapshots 把原始指标按服务器分组，每个指标类型只保留采集时间最新的一条
// 输入按采集时间降序时等价于保留首条，乱序输入同样能得到正确结果
func GroupLatestSnapshots(metrics []*dbinit.Metric) map[int64]map[string]*dbinit.MetricSnapshot {
	snapshots := make(map[int64]map[string]*dbinit.MetricSnapshot)

	for _, m := range metrics {
		byType, ok := snapshots[m.ServerID]
		if !ok {
			byType = make(map[string]*dbinit.MetricSnapshot)
			snapshots[m.ServerID] = byType
		}

		existing, ok := byType[m.MetricType]
		if ok && !m.CollectedAt.After(existing.Timestamp) {
			continue
		}

		byType[m.MetricType] = &dbinit.MetricSnapshot{
			Value:     m.Value,
			Unit:      m.Unit,
			Timestamp: m.CollectedAt,
		}
	}

	return snapshots
}
