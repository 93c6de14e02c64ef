package service

import (
	"testing"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
)

func TestCheckThreshold(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		condition string
		threshold float64
		expected  bool
	}{
		{"大于-命中", 95.0, "gt", 90.0, true},
		{"大于-未命中", 85.0, "gt", 90.0, false},
		{"大于-相等不命中", 90.0, "gt", 90.0, false},
		{"小于-命中", 5.0, "lt", 10.0, true},
		{"小于-未命中", 15.0, "lt", 10.0, false},
		{"等于-命中", 0.0, "eq", 0.0, true},
		{"等于-未命中", 0.5, "eq", 0.0, false},
		{"不等于-命中", 3.0, "ne", 0.0, true},
		{"不等于-未命中", 0.0, "ne", 0.0, false},
		{"未知条件不命中", 95.0, "ge", 90.0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckThreshold(tt.value, tt.condition, tt.threshold); got != tt.expected {
				t.Errorf("CheckThreshold(%v, %q, %v) = %v, want %v",
					tt.value, tt.condition, tt.threshold, got, tt.expected)
			}
		})
	}
}

func TestEvaluatorTriggersAlert(t *testing.T) {
	m := newTestManager(t)
	server := createTestServer(t, m, "web-1", "default")

	rule := &dbinit.AlertRule{
		Name:       "CPU过载",
		MetricType: "cpu",
		MetricName: "usage",
		Condition:  "gt",
		Threshold:  90.0,
		Severity:   "critical",
		Enabled:    true,
		TenantID:   "default",
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.DB.SQLite.CreateAlertRule(rule); err != nil {
		t.Fatalf("创建规则失败: %v", err)
	}

	now := time.Now().UTC()
	createTestMetric(t, m, server.ID, "cpu", "usage", 85.0, now.Add(-3*time.Minute))
	createTestMetric(t, m, server.ID, "cpu", "usage", 95.0, now.Add(-2*time.Minute))
	createTestMetric(t, m, server.ID, "cpu", "usage", 97.0, now.Add(-1*time.Minute))

	evaluator := NewAlertEvaluatorService(m, testEngineConfig())
	if err := evaluator.RunPass(); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	alerts, err := m.DB.SQLite.ListAlerts("", server.ID, "active", 10, 0)
	if err != nil {
		t.Fatalf("查询告警失败: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("告警数量 = %d, want 1", len(alerts))
	}

	alert := alerts[0]
	if alert.Severity != "critical" {
		t.Errorf("Severity = %q, want critical", alert.Severity)
	}
	if want := "CPU过载: usage is gt 90"; alert.Message != want {
		t.Errorf("Message = %q, want %q", alert.Message, want)
	}
	// 触发时间使用评估时刻
	if diff := time.Now().UTC().Sub(alert.TriggeredAt); diff < 0 || diff > 5*time.Second {
		t.Errorf("TriggeredAt = %v, want ~now", alert.TriggeredAt)
	}
}

func TestEvaluatorAlertsOnlyLatestViolation(t *testing.T) {
	m := newTestManager(t)
	serverOld := createTestServer(t, m, "web-1", "default")
	serverNew := createTestServer(t, m, "web-2", "default")

	rule := &dbinit.AlertRule{
		Name:       "CPU过载",
		MetricType: "cpu",
		MetricName: "usage",
		Condition:  "gt",
		Threshold:  90.0,
		Severity:   "critical",
		Enabled:    true,
		TenantID:   "default",
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.DB.SQLite.CreateAlertRule(rule); err != nil {
		t.Fatalf("创建规则失败: %v", err)
	}

	// 两台服务器都违规，只对采集时间最新的一台生成告警
	now := time.Now().UTC()
	createTestMetric(t, m, serverOld.ID, "cpu", "usage", 99.0, now.Add(-5*time.Minute))
	createTestMetric(t, m, serverNew.ID, "cpu", "usage", 95.0, now.Add(-1*time.Minute))

	evaluator := NewAlertEvaluatorService(m, testEngineConfig())
	if err := evaluator.RunPass(); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	alertsOld, _ := m.DB.SQLite.ListAlerts("", serverOld.ID, "", 10, 0)
	alertsNew, _ := m.DB.SQLite.ListAlerts("", serverNew.ID, "", 10, 0)
	if len(alertsOld) != 0 {
		t.Errorf("旧违规服务器告警数量 = %d, want 0", len(alertsOld))
	}
	if len(alertsNew) != 1 {
		t.Errorf("最新违规服务器告警数量 = %d, want 1", len(alertsNew))
	}
}

func TestEvaluatorDeduplicatesActiveAlerts(t *testing.T) {
	m := newTestManager(t)
	server := createTestServer(t, m, "web-1", "default")

	rule := &dbinit.AlertRule{
		Name:       "内存不足",
		MetricType: "memory",
		MetricName: "usage",
		Condition:  "gt",
		Threshold:  80.0,
		Severity:   "warning",
		Enabled:    true,
		TenantID:   "default",
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.DB.SQLite.CreateAlertRule(rule); err != nil {
		t.Fatalf("创建规则失败: %v", err)
	}

	createTestMetric(t, m, server.ID, "memory", "usage", 92.0, time.Now().UTC())

	evaluator := NewAlertEvaluatorService(m, testEngineConfig())

	// 连续两轮评估只产生一条活跃告警
	for i := 0; i < 2; i++ {
		if err := evaluator.RunPass(); err != nil {
			t.Fatalf("第%d轮RunPass() error = %v", i+1, err)
		}
	}

	alerts, err := m.DB.SQLite.ListAlerts("", server.ID, "active", 10, 0)
	if err != nil {
		t.Fatalf("查询告警失败: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("告警数量 = %d, want 1", len(alerts))
	}

	// 告警解决后再次评估会产生新告警
	resolvedAt := time.Now().UTC()
	if err := m.DB.SQLite.UpdateAlertStatus(alerts[0].ID, "resolved", &resolvedAt); err != nil {
		t.Fatalf("更新告警状态失败: %v", err)
	}
	if err := evaluator.RunPass(); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	active, err := m.DB.SQLite.ListAlerts("", server.ID, "active", 10, 0)
	if err != nil {
		t.Fatalf("查询告警失败: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("解决后重新触发的告警数量 = %d, want 1", len(active))
	}
}

func TestEvaluatorSkipsOtherTenants(t *testing.T) {
	m := newTestManager(t)
	serverA := createTestServer(t, m, "tenant-a-host", "tenant-a")
	serverB := createTestServer(t, m, "tenant-b-host", "tenant-b")

	rule := &dbinit.AlertRule{
		Name:       "磁盘告警",
		MetricType: "disk",
		MetricName: "usage",
		Condition:  "gt",
		Threshold:  90.0,
		Severity:   "error",
		Enabled:    true,
		TenantID:   "tenant-a",
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.DB.SQLite.CreateAlertRule(rule); err != nil {
		t.Fatalf("创建规则失败: %v", err)
	}

	now := time.Now().UTC()
	createTestMetric(t, m, serverA.ID, "disk", "usage", 95.0, now)
	createTestMetric(t, m, serverB.ID, "disk", "usage", 99.0, now)

	evaluator := NewAlertEvaluatorService(m, testEngineConfig())
	if err := evaluator.RunPass(); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	alertsA, _ := m.DB.SQLite.ListAlerts("", serverA.ID, "", 10, 0)
	alertsB, _ := m.DB.SQLite.ListAlerts("", serverB.ID, "", 10, 0)
	if len(alertsA) != 1 {
		t.Errorf("租户A告警数量 = %d, want 1", len(alertsA))
	}
	if len(alertsB) != 0 {
		t.Errorf("租户B告警数量 = %d, want 0", len(alertsB))
	}
}

func TestEvaluatorIgnoresDisabledRules(t *testing.T) {
	m := newTestManager(t)
	server := createTestServer(t, m, "web-1", "default")

	rule := &dbinit.AlertRule{
		Name:       "已停用规则",
		MetricType: "cpu",
		MetricName: "usage",
		Condition:  "gt",
		Threshold:  50.0,
		Severity:   "info",
		Enabled:    false,
		TenantID:   "default",
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.DB.SQLite.CreateAlertRule(rule); err != nil {
		t.Fatalf("创建规则失败: %v", err)
	}

	createTestMetric(t, m, server.ID, "cpu", "usage", 99.0, time.Now().UTC())

	evaluator := NewAlertEvaluatorService(m, testEngineConfig())
	if err := evaluator.RunPass(); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	alerts, _ := m.DB.SQLite.ListAlerts("", server.ID, "", 10, 0)
	if len(alerts) != 0 {
		t.Errorf("告警数量 = %d, want 0", len(alerts))
	}
}
