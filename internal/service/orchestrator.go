package service

import (
	"context"
	"sync"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	"github.com/eminbuyuk/lxmon/internal/config"
	"github.com/eminbuyuk/lxmon/internal/metrics"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"go.uber.org/zap"
)

// Orchestrator 后台引擎编排器
// 管理四个周期循环：指标汇聚、告警评估、存活检测、数据清理
// 单轮失败只记录日志，不影响后续轮次和其他循环
type Orchestrator struct {
	cfg *config.EngineConfig

	aggregator *MetricAggregatorService
	evaluator  *AlertEvaluatorService
	liveness   *LivenessService
	retention  *RetentionService

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator 创建编排器
func NewOrchestrator(dbManager *db.Manager, cfg *config.EngineConfig) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		aggregator: NewMetricAggregatorService(dbManager, cfg),
		evaluator:  NewAlertEvaluatorService(dbManager, cfg),
		liveness:   NewLivenessService(dbManager, cfg),
		retention:  NewRetentionService(dbManager, cfg),
	}
}

// Start 启动全部循环，重复调用无效果
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	o.running = true

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	o.spawn(ctx, "aggregator", o.cfg.AggregatorInterval, o.aggregator.RunPass)
	o.spawn(ctx, "evaluator", o.cfg.EvaluatorInterval, o.evaluator.RunPass)
	o.spawn(ctx, "liveness", o.cfg.LivenessInterval, o.liveness.RunPass)
	o.spawn(ctx, "retention", o.cfg.RetentionInterval, o.retention.RunPass)

	logger.Info("后台引擎已启动",
		zap.Int("aggregatorInterval", o.cfg.AggregatorInterval),
		zap.Int("evaluatorInterval", o.cfg.EvaluatorInterval),
		zap.Int("livenessInterval", o.cfg.LivenessInterval),
		zap.Int("retentionInterval", o.cfg.RetentionInterval))
}

// Stop 停止全部循环并等待退出，重复调用无效果
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cancel := o.cancel
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
	logger.Info("后台引擎已停止")
}

// Running 返回引擎是否在运行
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// spawn 启动单个循环：立即执行一轮，之后按周期触发
func (o *Orchestrator) spawn(ctx context.Context, name string, intervalSec int, pass func() error) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		o.runOnce(name, pass)

		ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				o.runOnce(name, pass)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// runOnce 执行单轮并记录结果
func (o *Orchestrator) runOnce(name string, pass func() error) {
	metrics.EnginePasses.WithLabelValues(name).Inc()
	if err := pass(); err != nil {
		metrics.EngineErrors.WithLabelValues(name).Inc()
		logger.Error("引擎循环执行失败",
			zap.String("loop", name),
			zap.Error(err))
	}
}
