package service

import (
	"testing"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
)

func TestGroupLatestSnapshots(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	metrics := []*dbinit.Metric{
		{ServerID: 1, MetricType: "cpu", Value: 80.0, Unit: "percent", CollectedAt: base.Add(2 * time.Minute)},
		{ServerID: 1, MetricType: "cpu", Value: 70.0, Unit: "percent", CollectedAt: base.Add(1 * time.Minute)},
		{ServerID: 1, MetricType: "memory", Value: 60.0, Unit: "percent", CollectedAt: base},
		{ServerID: 2, MetricType: "cpu", Value: 30.0, Unit: "percent", CollectedAt: base},
	}

	snapshots := GroupLatestSnapshots(metrics)

	if len(snapshots) != 2 {
		t.Fatalf("服务器数量 = %d, want 2", len(snapshots))
	}

	s1 := snapshots[1]
	if len(s1) != 2 {
		t.Fatalf("服务器1指标类型数量 = %d, want 2", len(s1))
	}
	if s1["cpu"].Value != 80.0 {
		t.Errorf("cpu快照值 = %v, want 80.0 (采集时间最新)", s1["cpu"].Value)
	}
	if !s1["cpu"].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("cpu快照时间 = %v, want %v", s1["cpu"].Timestamp, base.Add(2*time.Minute))
	}
	if s1["memory"].Value != 60.0 {
		t.Errorf("memory快照值 = %v, want 60.0", s1["memory"].Value)
	}

	if snapshots[2]["cpu"].Value != 30.0 {
		t.Errorf("服务器2 cpu快照值 = %v, want 30.0", snapshots[2]["cpu"].Value)
	}
}

func TestGroupLatestSnapshotsUnordered(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// 乱序输入同样保留采集时间最新的一条
	metrics := []*dbinit.Metric{
		{ServerID: 1, MetricType: "cpu", Value: 10.0, CollectedAt: base},
		{ServerID: 1, MetricType: "cpu", Value: 50.0, CollectedAt: base.Add(3 * time.Minute)},
		{ServerID: 1, MetricType: "cpu", Value: 20.0, CollectedAt: base.Add(1 * time.Minute)},
	}

	snapshots := GroupLatestSnapshots(metrics)
	if got := snapshots[1]["cpu"].Value; got != 50.0 {
		t.Errorf("cpu快照值 = %v, want 50.0", got)
	}
}

func TestGroupLatestSnapshotsEmpty(t *testing.T) {
	snapshots := GroupLatestSnapshots(nil)
	if len(snapshots) != 0 {
		t.Errorf("空输入快照数量 = %d, want 0", len(snapshots))
	}
}

func TestAggregatorSkipsWithoutCache(t *testing.T) {
	m := newTestManager(t)
	server := createTestServer(t, m, "web-1", "default")
	createTestMetric(t, m, server.ID, "cpu", "usage", 50.0, time.Now().UTC())

	aggregator := NewMetricAggregatorService(m, testEngineConfig())
	if err := aggregator.RunPass(); err != nil {
		t.Errorf("无Redis时RunPass() error = %v, want nil", err)
	}
}

func TestAggregatorWritesSnapshots(t *testing.T) {
	m := newTestManagerWithRedis(t)
	server := createTestServer(t, m, "web-1", "default")

	now := time.Now().UTC()
	createTestMetric(t, m, server.ID, "cpu", "usage", 42.0, now.Add(-2*time.Minute))
	createTestMetric(t, m, server.ID, "cpu", "usage", 55.0, now.Add(-1*time.Minute))
	createTestMetric(t, m, server.ID, "memory", "usage", 70.0, now.Add(-1*time.Minute))

	aggregator := NewMetricAggregatorService(m, testEngineConfig())
	if err := aggregator.RunPass(); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	snapshot, err := m.Cache.Redis.GetLatestMetrics(server.ID)
	if err != nil {
		t.Fatalf("读取快照失败: %v", err)
	}
	if snapshot == nil {
		t.Fatal("快照不存在")
	}
	if snapshot["cpu"].Value != 55.0 {
		t.Errorf("cpu快照值 = %v, want 55.0", snapshot["cpu"].Value)
	}
	if snapshot["memory"].Value != 70.0 {
		t.Errorf("memory快照值 = %v, want 70.0", snapshot["memory"].Value)
	}
}
