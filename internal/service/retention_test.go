package service

import (
	"testing"
	"time"
)

func TestRetentionDeletesExpiredMetrics(t *testing.T) {
	m := newTestManager(t)
	server := createTestServer(t, m, "web-1", "default")
	now := time.Now().UTC()

	// 40条过期，60条在保留期内
	for i := 0; i < 40; i++ {
		createTestMetric(t, m, server.ID, "cpu", "usage", float64(i),
			now.Add(-31*24*time.Hour).Add(-time.Duration(i)*time.Minute))
	}
	for i := 0; i < 60; i++ {
		createTestMetric(t, m, server.ID, "cpu", "usage", float64(i),
			now.Add(-time.Duration(i)*time.Minute))
	}

	retention := NewRetentionService(m, testEngineConfig())
	if err := retention.RunPass(); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	remaining, err := m.DB.SQLite.ListServerMetrics(server.ID, "", now.Add(-40*24*time.Hour), now.Add(time.Hour), 1000)
	if err != nil {
		t.Fatalf("查询指标失败: %v", err)
	}
	if len(remaining) != 60 {
		t.Errorf("剩余指标数量 = %d, want 60", len(remaining))
	}

	// 第二轮无可删数据
	if err := retention.RunPass(); err != nil {
		t.Fatalf("第二轮RunPass() error = %v", err)
	}
	remaining, _ = m.DB.SQLite.ListServerMetrics(server.ID, "", now.Add(-40*24*time.Hour), now.Add(time.Hour), 1000)
	if len(remaining) != 60 {
		t.Errorf("第二轮后剩余指标数量 = %d, want 60", len(remaining))
	}
}

func TestRetentionEmptyDatabase(t *testing.T) {
	m := newTestManager(t)

	retention := NewRetentionService(m, testEngineConfig())
	if err := retention.RunPass(); err != nil {
		t.Errorf("空数据库RunPass() error = %v, want nil", err)
	}
}
