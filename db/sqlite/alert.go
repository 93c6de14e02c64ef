package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
)

// === AlertRule 操作 ===

// CreateAlertRule 创建告警规则
func (s *SQLiteDB) CreateAlertRule(rule *dbinit.AlertRule) error {
	query := `
		INSERT INTO alert_rules (name, description, metric_type, metric_name, condition, threshold, severity, enabled, tenant_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, rule.Name, rule.Description, rule.MetricType, rule.MetricName,
		rule.Condition, rule.Threshold, rule.Severity, rule.Enabled, rule.TenantID)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rule.ID = id

	return nil
}

// GetAlertRule 获取告警规则
func (s *SQLiteDB) GetAlertRule(id int64) (*dbinit.AlertRule, error) {
	rule := &dbinit.AlertRule{}
	query := `SELECT * FROM alert_rules WHERE id = ?`
	err := s.db.QueryRow(query, id).Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.MetricType, &rule.MetricName,
		&rule.Condition, &rule.Threshold, &rule.Severity, &rule.Enabled, &rule.TenantID, &rule.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rule, err
}

// ListAlertRules 列出告警规则
func (s *SQLiteDB) ListAlertRules(tenantID string, enabled *bool) ([]*dbinit.AlertRule, error) {
	query := `SELECT * FROM alert_rules WHERE 1=1`
	args := []interface{}{}

	if tenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, tenantID)
	}
	if enabled != nil {
		query += ` AND enabled = ?`
		args = append(args, *enabled)
	}

	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []*dbinit.AlertRule{}
	for rows.Next() {
		rule := &dbinit.AlertRule{}
		err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description, &rule.MetricType, &rule.MetricName,
			&rule.Condition, &rule.Threshold, &rule.Severity, &rule.Enabled, &rule.TenantID, &rule.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// UpdateAlertRule 更新告警规则
func (s *SQLiteDB) UpdateAlertRule(rule *dbinit.AlertRule) error {
	query := `
		UPDATE alert_rules
		SET name=?, description=?, metric_type=?, metric_name=?, condition=?, threshold=?, severity=?, enabled=?
		WHERE id=?
	`
	result, err := s.db.Exec(query, rule.Name, rule.Description, rule.MetricType, rule.MetricName,
		rule.Condition, rule.Threshold, rule.Severity, rule.Enabled, rule.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("alert rule not found")
	}

	return nil
}

// DeleteAlertRule 删除告警规则
func (s *SQLiteDB) DeleteAlertRule(id int64) error {
	query := `DELETE FROM alert_rules WHERE id = ?`
	result, err := s.db.Exec(query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("alert rule not found")
	}

	return nil
}

// === Alert 操作 ===

// CreateAlert 创建告警
func (s *SQLiteDB) CreateAlert(alert *dbinit.Alert) error {
	query := `
		INSERT INTO alerts (alert_rule_id, server_id, message, severity, status, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, alert.AlertRuleID, alert.ServerID, alert.Message,
		alert.Severity, alert.Status, alert.TriggeredAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	alert.ID = id

	return nil
}

// GetActiveAlert 获取(规则, 服务器)对应的活跃告警
// 去重不变量：同一(规则, 服务器)最多存在一条active告警
func (s *SQLiteDB) GetActiveAlert(ruleID, serverID int64) (*dbinit.Alert, error) {
	alert := &dbinit.Alert{}
	query := `
		SELECT * FROM alerts
		WHERE alert_rule_id = ? AND server_id = ? AND status = 'active'
		LIMIT 1
	`
	err := s.db.QueryRow(query, ruleID, serverID).Scan(
		&alert.ID, &alert.AlertRuleID, &alert.ServerID, &alert.Message,
		&alert.Severity, &alert.Status, &alert.TriggeredAt, &alert.ResolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return alert, err
}

// GetAlert 获取告警，tenantID非空时限定所属服务器的租户
func (s *SQLiteDB) GetAlert(id int64, tenantID string) (*dbinit.Alert, error) {
	alert := &dbinit.Alert{}
	query := `SELECT a.* FROM alerts a WHERE a.id = ?`
	args := []interface{}{id}

	if tenantID != "" {
		query = `
			SELECT a.* FROM alerts a
			JOIN servers s ON a.server_id = s.id
			WHERE a.id = ? AND s.tenant_id = ?
		`
		args = append(args, tenantID)
	}

	err := s.db.QueryRow(query, args...).Scan(
		&alert.ID, &alert.AlertRuleID, &alert.ServerID, &alert.Message,
		&alert.Severity, &alert.Status, &alert.TriggeredAt, &alert.ResolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return alert, err
}

// ListAlerts 列出告警，tenantID非空时按所属服务器的租户过滤
func (s *SQLiteDB) ListAlerts(tenantID string, serverID int64, status string, limit, offset int) ([]*dbinit.Alert, error) {
	query := `SELECT a.* FROM alerts a JOIN servers s ON a.server_id = s.id WHERE 1=1`
	args := []interface{}{}

	if tenantID != "" {
		query += ` AND s.tenant_id = ?`
		args = append(args, tenantID)
	}
	if serverID > 0 {
		query += ` AND a.server_id = ?`
		args = append(args, serverID)
	}
	if status != "" {
		query += ` AND a.status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY a.triggered_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []*dbinit.Alert{}
	for rows.Next() {
		alert := &dbinit.Alert{}
		err := rows.Scan(
			&alert.ID, &alert.AlertRuleID, &alert.ServerID, &alert.Message,
			&alert.Severity, &alert.Status, &alert.TriggeredAt, &alert.ResolvedAt,
		)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// CountAlerts 统计指定状态的告警数量，tenantID非空时按租户过滤
func (s *SQLiteDB) CountAlerts(tenantID, status string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM alerts a
		JOIN servers s ON a.server_id = s.id
		WHERE a.status = ?
	`
	args := []interface{}{status}

	if tenantID != "" {
		query += ` AND s.tenant_id = ?`
		args = append(args, tenantID)
	}

	var count int64
	err := s.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

// UpdateAlertStatus 更新告警状态
func (s *SQLiteDB) UpdateAlertStatus(id int64, status string, resolvedAt *time.Time) error {
	var result sql.Result
	var err error

	if resolvedAt != nil {
		result, err = s.db.Exec(`UPDATE alerts SET status=?, resolved_at=? WHERE id=?`, status, *resolvedAt, id)
	} else {
		result, err = s.db.Exec(`UPDATE alerts SET status=? WHERE id=?`, status, id)
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("alert not found")
	}

	return nil
}
