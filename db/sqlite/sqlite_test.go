package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()

	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("初始化SQLite失败: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newServer(t *testing.T, db *SQLiteDB, hostname string) *dbinit.Server {
	t.Helper()

	server := &dbinit.Server{
		Name:        hostname,
		Hostname:    hostname,
		IPAddress:   "10.0.0.1",
		AgentAPIKey: "key-" + hostname,
		TenantID:    "default",
		Status:      "unknown",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := db.CreateServer(server); err != nil {
		t.Fatalf("创建服务器失败: %v", err)
	}
	return server
}

func TestServerCRUD(t *testing.T) {
	db := newTestDB(t)

	server := newServer(t, db, "web-1")
	if server.ID == 0 {
		t.Fatal("服务器ID未回填")
	}

	got, err := db.GetServer(server.ID)
	if err != nil {
		t.Fatalf("GetServer() error = %v", err)
	}
	if got == nil || got.Hostname != "web-1" {
		t.Errorf("GetServer() = %+v, want hostname web-1", got)
	}
	if got.LastHeartbeat.Valid {
		t.Error("新服务器LastHeartbeat应为空")
	}

	// 按主机名与API密钥查询
	byHost, err := db.GetServerByHostname("web-1")
	if err != nil || byHost == nil || byHost.ID != server.ID {
		t.Errorf("GetServerByHostname() = %+v, %v", byHost, err)
	}
	byKey, err := db.GetServerByAPIKey("key-web-1")
	if err != nil || byKey == nil || byKey.ID != server.ID {
		t.Errorf("GetServerByAPIKey() = %+v, %v", byKey, err)
	}

	// 不存在时返回nil而非错误
	missing, err := db.GetServer(9999)
	if err != nil {
		t.Errorf("GetServer(9999) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetServer(9999) = %+v, want nil", missing)
	}

	// 更新
	server.Name = "web-1-renamed"
	if err := db.UpdateServer(server); err != nil {
		t.Fatalf("UpdateServer() error = %v", err)
	}
	got, _ = db.GetServer(server.ID)
	if got.Name != "web-1-renamed" {
		t.Errorf("Name = %q, want web-1-renamed", got.Name)
	}

	// 删除
	if err := db.DeleteServer(server.ID); err != nil {
		t.Fatalf("DeleteServer() error = %v", err)
	}
	if err := db.DeleteServer(server.ID); err == nil {
		t.Error("重复删除应返回错误")
	}
}

func TestTouchHeartbeatAndStaleness(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	stale := newServer(t, db, "stale")
	fresh := newServer(t, db, "fresh")

	if err := db.TouchHeartbeat(stale.ID, "online", now.Add(-10*time.Minute)); err != nil {
		t.Fatalf("TouchHeartbeat() error = %v", err)
	}
	if err := db.TouchHeartbeat(fresh.ID, "online", now); err != nil {
		t.Fatalf("TouchHeartbeat() error = %v", err)
	}

	marked, err := db.MarkStaleServersOffline(now.Add(-5 * time.Minute))
	if err != nil {
		t.Fatalf("MarkStaleServersOffline() error = %v", err)
	}
	if marked != 1 {
		t.Errorf("标记数量 = %d, want 1", marked)
	}

	got, _ := db.GetServer(stale.ID)
	if got.Status != "offline" {
		t.Errorf("stale状态 = %q, want offline", got.Status)
	}
	got, _ = db.GetServer(fresh.ID)
	if got.Status != "online" {
		t.Errorf("fresh状态 = %q, want online", got.Status)
	}

	// 已离线的服务器不重复标记
	marked, err = db.MarkStaleServersOffline(now.Add(-5 * time.Minute))
	if err != nil {
		t.Fatalf("MarkStaleServersOffline() error = %v", err)
	}
	if marked != 0 {
		t.Errorf("第二轮标记数量 = %d, want 0", marked)
	}
}

func TestMetricsBulkInsertAndRetention(t *testing.T) {
	db := newTestDB(t)
	server := newServer(t, db, "web-1")
	now := time.Now().UTC()

	batch := []*dbinit.Metric{}
	for i := 0; i < 10; i++ {
		age := time.Duration(i) * time.Minute
		if i >= 7 {
			age = 31 * 24 * time.Hour
		}
		batch = append(batch, &dbinit.Metric{
			ServerID:    server.ID,
			MetricType:  "cpu",
			MetricName:  "usage",
			Value:       float64(i * 10),
			Unit:        "percent",
			CollectedAt: now.Add(-age),
		})
	}
	if err := db.CreateMetrics(batch); err != nil {
		t.Fatalf("CreateMetrics() error = %v", err)
	}

	recent, err := db.ListRecentMetrics(now.Add(-5*time.Minute), 100)
	if err != nil {
		t.Fatalf("ListRecentMetrics() error = %v", err)
	}
	if len(recent) != 5 {
		t.Errorf("近5分钟指标数量 = %d, want 5", len(recent))
	}
	// 按采集时间降序
	for i := 1; i < len(recent); i++ {
		if recent[i].CollectedAt.After(recent[i-1].CollectedAt) {
			t.Error("ListRecentMetrics未按采集时间降序排列")
			break
		}
	}

	deleted, err := db.DeleteMetricsBefore(now.Add(-30 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteMetricsBefore() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("删除数量 = %d, want 3", deleted)
	}
}

func TestListMetricsForRuleFiltersTenant(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	serverA := newServer(t, db, "host-a")
	serverB := &dbinit.Server{
		Name: "host-b", Hostname: "host-b", IPAddress: "10.0.0.2",
		AgentAPIKey: "key-host-b", TenantID: "other", Status: "unknown",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := db.CreateServer(serverB); err != nil {
		t.Fatalf("创建服务器失败: %v", err)
	}

	for _, s := range []*dbinit.Server{serverA, serverB} {
		if err := db.CreateMetric(&dbinit.Metric{
			ServerID: s.ID, MetricType: "cpu", MetricName: "usage",
			Value: 99, Unit: "percent", CollectedAt: now,
		}); err != nil {
			t.Fatalf("创建指标失败: %v", err)
		}
	}

	rows, err := db.ListMetricsForRule("cpu", "usage", "default", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("ListMetricsForRule() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("指标数量 = %d, want 1", len(rows))
	}
	if rows[0].ServerID != serverA.ID {
		t.Errorf("ServerID = %d, want %d", rows[0].ServerID, serverA.ID)
	}
}

func TestActiveAlertLookup(t *testing.T) {
	db := newTestDB(t)
	server := newServer(t, db, "web-1")
	now := time.Now().UTC()

	rule := &dbinit.AlertRule{
		Name: "r1", MetricType: "cpu", MetricName: "usage",
		Condition: "gt", Threshold: 90, Severity: "warning",
		Enabled: true, TenantID: "default", CreatedAt: now,
	}
	if err := db.CreateAlertRule(rule); err != nil {
		t.Fatalf("创建规则失败: %v", err)
	}

	// 无告警时返回nil
	active, err := db.GetActiveAlert(rule.ID, server.ID)
	if err != nil {
		t.Fatalf("GetActiveAlert() error = %v", err)
	}
	if active != nil {
		t.Errorf("GetActiveAlert() = %+v, want nil", active)
	}

	alert := &dbinit.Alert{
		AlertRuleID: rule.ID, ServerID: server.ID,
		Message: "r1: usage is gt 90", Severity: "warning",
		Status: "active", TriggeredAt: now,
	}
	if err := db.CreateAlert(alert); err != nil {
		t.Fatalf("创建告警失败: %v", err)
	}

	active, err = db.GetActiveAlert(rule.ID, server.ID)
	if err != nil {
		t.Fatalf("GetActiveAlert() error = %v", err)
	}
	if active == nil || active.ID != alert.ID {
		t.Errorf("GetActiveAlert() = %+v, want alert %d", active, alert.ID)
	}

	// 解决后不再命中
	resolvedAt := now.Add(time.Minute)
	if err := db.UpdateAlertStatus(alert.ID, "resolved", &resolvedAt); err != nil {
		t.Fatalf("UpdateAlertStatus() error = %v", err)
	}
	active, _ = db.GetActiveAlert(rule.ID, server.ID)
	if active != nil {
		t.Errorf("解决后GetActiveAlert() = %+v, want nil", active)
	}

	got, _ := db.GetAlert(alert.ID, "")
	if !got.ResolvedAt.Valid {
		t.Error("ResolvedAt未设置")
	}
}

func TestAlertTenantScoping(t *testing.T) {
	db := newTestDB(t)
	serverA := newServer(t, db, "tenant-a-host")
	serverB := &dbinit.Server{
		Name: "tenant-b-host", Hostname: "tenant-b-host",
		IPAddress: "10.0.0.2", AgentAPIKey: "key-tenant-b-host",
		TenantID: "tenant-b", Status: "unknown",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	if err := db.CreateServer(serverB); err != nil {
		t.Fatalf("创建服务器失败: %v", err)
	}

	rule := &dbinit.AlertRule{
		Name: "r1", MetricType: "cpu", MetricName: "usage",
		Condition: "gt", Threshold: 90, Severity: "warning",
		Enabled: true, TenantID: "tenant-b", CreatedAt: time.Now().UTC(),
	}
	if err := db.CreateAlertRule(rule); err != nil {
		t.Fatalf("创建规则失败: %v", err)
	}

	alert := &dbinit.Alert{
		AlertRuleID: rule.ID, ServerID: serverB.ID,
		Message: "r1: usage is gt 90", Severity: "warning",
		Status: "active", TriggeredAt: time.Now().UTC(),
	}
	if err := db.CreateAlert(alert); err != nil {
		t.Fatalf("创建告警失败: %v", err)
	}

	// 其他租户看不到该告警
	got, err := db.GetAlert(alert.ID, serverA.TenantID)
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if got != nil {
		t.Errorf("跨租户GetAlert() = %+v, want nil", got)
	}

	list, err := db.ListAlerts(serverA.TenantID, 0, "", 10, 0)
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("跨租户ListAlerts() 数量 = %d, want 0", len(list))
	}

	count, err := db.CountAlerts(serverA.TenantID, "active")
	if err != nil {
		t.Fatalf("CountAlerts() error = %v", err)
	}
	if count != 0 {
		t.Errorf("跨租户CountAlerts() = %d, want 0", count)
	}

	// 所属租户可见
	if got, _ := db.GetAlert(alert.ID, "tenant-b"); got == nil || got.ID != alert.ID {
		t.Errorf("本租户GetAlert() = %+v, want alert %d", got, alert.ID)
	}
	if list, _ := db.ListAlerts("tenant-b", serverB.ID, "active", 10, 0); len(list) != 1 {
		t.Errorf("本租户ListAlerts() 数量 = %d, want 1", len(list))
	}
	if count, _ := db.CountAlerts("tenant-b", "active"); count != 1 {
		t.Errorf("本租户CountAlerts() = %d, want 1", count)
	}
}

func TestCommandLifecycle(t *testing.T) {
	db := newTestDB(t)
	server := newServer(t, db, "web-1")
	now := time.Now().UTC()

	cmd := &dbinit.Command{
		ServerID: server.ID, Command: "uptime",
		Status: "pending", CreatedAt: now,
	}
	if err := db.CreateCommand(cmd); err != nil {
		t.Fatalf("CreateCommand() error = %v", err)
	}

	// pending -> running
	if err := db.MarkCommandRunning(cmd.ID, server.ID, now); err != nil {
		t.Fatalf("MarkCommandRunning() error = %v", err)
	}
	got, _ := db.GetCommand(cmd.ID, server.ID)
	if got.Status != "running" || !got.ExecutedAt.Valid {
		t.Errorf("出队后命令 = %+v, want running with ExecutedAt", got)
	}

	// running -> completed
	if err := db.CompleteCommand(cmd.ID, server.ID, "completed", 0, "ok", "", now.Add(time.Second)); err != nil {
		t.Fatalf("CompleteCommand() error = %v", err)
	}
	got, _ = db.GetCommand(cmd.ID, server.ID)
	if got.Status != "completed" || got.Stdout != "ok" {
		t.Errorf("完成后命令 = %+v", got)
	}
	if !got.ExitCode.Valid || got.ExitCode.Int64 != 0 {
		t.Errorf("ExitCode = %+v, want 0", got.ExitCode)
	}

	// 终态后重复完成幂等成功且不覆盖
	if err := db.CompleteCommand(cmd.ID, server.ID, "failed", 1, "second", "", now.Add(2*time.Second)); err != nil {
		t.Fatalf("重复CompleteCommand() error = %v", err)
	}
	got, _ = db.GetCommand(cmd.ID, server.ID)
	if got.Status != "completed" || got.Stdout != "ok" {
		t.Errorf("终态被覆盖: %+v", got)
	}

	// 未知命令报错
	if err := db.CompleteCommand(9999, server.ID, "completed", 0, "", "", now); err == nil {
		t.Error("未知命令CompleteCommand应返回错误")
	}
}

func TestCountOnlineServersByTenant(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	a := newServer(t, db, "a")
	b := newServer(t, db, "b")
	_ = newServer(t, db, "c") // 保持unknown

	if err := db.TouchHeartbeat(a.ID, "online", now); err != nil {
		t.Fatalf("TouchHeartbeat() error = %v", err)
	}
	if err := db.TouchHeartbeat(b.ID, "online", now); err != nil {
		t.Fatalf("TouchHeartbeat() error = %v", err)
	}

	counts, err := db.CountOnlineServersByTenant()
	if err != nil {
		t.Fatalf("CountOnlineServersByTenant() error = %v", err)
	}
	if counts["default"] != 2 {
		t.Errorf("在线数量 = %d, want 2", counts["default"])
	}
}
