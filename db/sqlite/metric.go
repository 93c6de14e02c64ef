package sqlite

import (
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
)

// === Metric 操作 ===

// CreateMetric 创建指标记录
func (s *SQLiteDB) CreateMetric(metric *dbinit.Metric) error {
	query := `
		INSERT INTO metrics (server_id, metric_type, metric_name, value, unit, metadata, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, metric.ServerID, metric.MetricType, metric.MetricName,
		metric.Value, metric.Unit, metric.Metadata, metric.CollectedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	metric.ID = id

	return nil
}

// CreateMetrics 批量创建指标记录（单事务）
func (s *SQLiteDB) CreateMetrics(metrics []*dbinit.Metric) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO metrics (server_id, metric_type, metric_name, value, unit, metadata, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, metric := range metrics {
		if _, err := stmt.Exec(metric.ServerID, metric.MetricType, metric.MetricName,
			metric.Value, metric.Unit, metric.Metadata, metric.CollectedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRecentMetrics 获取时间窗口内的指标（最新在前，限制批量大小）
func (s *SQLiteDB) ListRecentMetrics(since time.Time, limit int) ([]*dbinit.Metric, error) {
	query := `
		SELECT * FROM metrics
		WHERE collected_at >= ?
		ORDER BY collected_at DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := []*dbinit.Metric{}
	for rows.Next() {
		metric := &dbinit.Metric{}
		err := rows.Scan(
			&metric.ID, &metric.ServerID, &metric.MetricType, &metric.MetricName,
			&metric.Value, &metric.Unit, &metric.Metadata, &metric.CollectedAt,
		)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}

	return metrics, rows.Err()
}

// ListMetricsForRule 获取规则匹配的指标（按租户隔离，最新在前）
// 租户过滤通过与servers表连接完成，不在应用层绕过
func (s *SQLiteDB) ListMetricsForRule(metricType, metricName, tenantID string, since time.Time) ([]*dbinit.Metric, error) {
	query := `
		SELECT m.id, m.server_id, m.metric_type, m.metric_name, m.value, m.unit, m.metadata, m.collected_at
		FROM metrics m
		JOIN servers s ON s.id = m.server_id
		WHERE m.metric_type = ? AND m.metric_name = ? AND m.collected_at >= ? AND s.tenant_id = ?
		ORDER BY m.collected_at DESC
	`
	rows, err := s.db.Query(query, metricType, metricName, since, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := []*dbinit.Metric{}
	for rows.Next() {
		metric := &dbinit.Metric{}
		err := rows.Scan(
			&metric.ID, &metric.ServerID, &metric.MetricType, &metric.MetricName,
			&metric.Value, &metric.Unit, &metric.Metadata, &metric.CollectedAt,
		)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}

	return metrics, rows.Err()
}

// ListServerMetrics 获取单个服务器的指标历史
func (s *SQLiteDB) ListServerMetrics(serverID int64, metricType string, from, to time.Time, limit int) ([]*dbinit.Metric, error) {
	query := `SELECT * FROM metrics WHERE server_id = ? AND collected_at >= ? AND collected_at <= ?`
	args := []interface{}{serverID, from, to}

	if metricType != "" {
		query += ` AND metric_type = ?`
		args = append(args, metricType)
	}

	query += ` ORDER BY collected_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := []*dbinit.Metric{}
	for rows.Next() {
		metric := &dbinit.Metric{}
		err := rows.Scan(
			&metric.ID, &metric.ServerID, &metric.MetricType, &metric.MetricName,
			&metric.Value, &metric.Unit, &metric.Metadata, &metric.CollectedAt,
		)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}

	return metrics, rows.Err()
}

// DeleteMetricsBefore 批量删除过期指标，返回删除数量
func (s *SQLiteDB) DeleteMetricsBefore(cutoff time.Time) (int64, error) {
	query := `DELETE FROM metrics WHERE collected_at < ?`
	result, err := s.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
