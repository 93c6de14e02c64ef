package service

import (
	"fmt"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	dbinit "github.com/eminbuyuk/lxmon/db/init"
	"github.com/eminbuyuk/lxmon/internal/config"
	"github.com/eminbuyuk/lxmon/internal/metrics"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"go.uber.org/zap"
)

// AlertEvaluatorService 告警评估服务
// 周期性地对照启用的规则检查最近指标，命中且无在途告警时生成新告警
type AlertEvaluatorService struct {
	db  *db.Manager
	cfg *config.EngineConfig
}

// NewAlertEvaluatorService 创建告警评估服务
func NewAlertEvaluatorService(dbManager *db.Manager, cfg *config.EngineConfig) *AlertEvaluatorService {
	return &AlertEvaluatorService{
		db:  dbManager,
		cfg: cfg,
	}
}

// RunPass 执行一轮评估
func (s *AlertEvaluatorService) RunPass() error {
	enabled := true
	rules, err := s.db.DB.SQLite.ListAlertRules("", &enabled)
	if err != nil {
		return fmt.Errorf("failed to list alert rules: %w", err)
	}

	since := time.Now().UTC().Add(-s.cfg.EvaluatorLookbackDuration())

	var failed int
	for _, rule := range rules {
		// 单条规则失败不影响其他规则
		if err := s.evaluateRule(rule, since); err != nil {
			logger.Error("告警规则评估失败",
				zap.Int64("ruleID", rule.ID),
				zap.String("rule", rule.Name),
				zap.Error(err))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d rules failed to evaluate", failed, len(rules))
	}
	return nil
}

// evaluateRule 评估单条规则
func (s *AlertEvaluatorService) evaluateRule(rule *dbinit.AlertRule, since time.Time) error {
	rows, err := s.db.DB.SQLite.ListMetricsForRule(rule.MetricType, rule.MetricName, rule.TenantID, since)
	if err != nil {
		return fmt.Errorf("failed to list metrics for rule: %w", err)
	}

	// 全部违规指标中取采集时间最新的一条作为代表，仅对其所属服务器考虑告警
	var latest *dbinit.Metric
	for _, m := range rows {
		if !CheckThreshold(m.Value, rule.Condition, rule.Threshold) {
			continue
		}
		if latest == nil || m.CollectedAt.After(latest.CollectedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil
	}

	return s.triggerAlert(rule, latest.ServerID, latest)
}

// triggerAlert 生成告警，同一(规则,服务器)存在活跃告警时去重
func (s *AlertEvaluatorService) triggerAlert(rule *dbinit.AlertRule, serverID int64, violation *dbinit.Metric) error {
	active, err := s.db.DB.SQLite.GetActiveAlert(rule.ID, serverID)
	if err != nil {
		return fmt.Errorf("failed to check active alert: %w", err)
	}
	if active != nil {
		return nil
	}

	alert := &dbinit.Alert{
		AlertRuleID: rule.ID,
		ServerID:    serverID,
		Message:     fmt.Sprintf("%s: %s is %s %g", rule.Name, rule.MetricName, rule.Condition, rule.Threshold),
		Severity:    rule.Severity,
		Status:      "active",
		TriggeredAt: time.Now().UTC(),
	}
	if err := s.db.DB.SQLite.CreateAlert(alert); err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	metrics.AlertsTriggered.WithLabelValues(rule.Severity).Inc()
	logger.Info("触发告警",
		zap.Int64("ruleID", rule.ID),
		zap.Int64("serverID", serverID),
		zap.String("severity", rule.Severity),
		zap.Float64("value", violation.Value),
		zap.Float64("threshold", rule.Threshold))
	return nil
}

// CheckThreshold 判断指标值是否命中阈值条件
// eq/ne 使用精确浮点比较，适用于整数型指标（如进程数、磁盘挂载数）
func CheckThreshold(value float64, condition string, threshold float64) bool {
	switch condition {
	case "gt":
		return value > threshold
	case "lt":
		return value < threshold
	case "eq":
		return value == threshold
	case "ne":
		return value != threshold
	default:
		return false
	}
}
