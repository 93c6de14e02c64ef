package service

import (
	"testing"
	"time"

	"github.com/eminbuyuk/lxmon/internal/config"
)

func TestOrchestratorStartStop(t *testing.T) {
	m := newTestManager(t)

	cfg := testEngineConfig()
	cfg.AggregatorInterval = 3600
	cfg.EvaluatorInterval = 3600
	cfg.LivenessInterval = 3600
	cfg.RetentionInterval = 3600

	o := NewOrchestrator(m, cfg)

	if o.Running() {
		t.Error("启动前Running() = true, want false")
	}

	o.Start()
	if !o.Running() {
		t.Error("启动后Running() = false, want true")
	}

	// 重复启动无效果
	o.Start()
	if !o.Running() {
		t.Error("重复启动后Running() = false, want true")
	}

	// 给立即执行的首轮留出时间
	time.Sleep(100 * time.Millisecond)

	o.Stop()
	if o.Running() {
		t.Error("停止后Running() = true, want false")
	}

	// 重复停止无效果
	o.Stop()
}

func TestOrchestratorRestart(t *testing.T) {
	m := newTestManager(t)

	cfg := testEngineConfig()
	cfg.AggregatorInterval = 3600
	cfg.EvaluatorInterval = 3600
	cfg.LivenessInterval = 3600
	cfg.RetentionInterval = 3600

	o := NewOrchestrator(m, cfg)

	o.Start()
	o.Stop()
	o.Start()
	if !o.Running() {
		t.Error("重启后Running() = false, want true")
	}
	o.Stop()
}

func TestOrchestratorRunsImmediatePass(t *testing.T) {
	m := newTestManager(t)
	now := time.Now().UTC()

	// 心跳超时的服务器应在首轮立即被标记离线
	server := createTestServer(t, m, "stale-host", "default")
	if err := m.DB.SQLite.TouchHeartbeat(server.ID, "online", now.Add(-10*time.Minute)); err != nil {
		t.Fatalf("设置心跳失败: %v", err)
	}

	cfg := config.DefaultConfig().Engine
	cfg.AggregatorInterval = 3600
	cfg.EvaluatorInterval = 3600
	cfg.LivenessInterval = 3600
	cfg.RetentionInterval = 3600

	o := NewOrchestrator(m, &cfg)
	o.Start()
	defer o.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := m.DB.SQLite.GetServer(server.ID)
		if err != nil {
			t.Fatalf("查询服务器失败: %v", err)
		}
		if got.Status == "offline" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("首轮存活检测未将超时服务器标记为离线")
}
