package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB SQLite数据库客户端
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB 创建新的SQLite数据库连接
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &SQLiteDB{db: db}

	// 初始化schema
	if err := dbinit.InitSQLiteSchema(db); err != nil {
		return nil, err
	}

	// 创建触发器
	if err := dbinit.CreateTriggers(db); err != nil {
		return nil, err
	}

	return client, nil
}

// Close 关闭数据库连接
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping 检查数据库连接
func (s *SQLiteDB) Ping() error {
	return s.db.Ping()
}

// === Server 操作 ===

// CreateServer 创建服务器
func (s *SQLiteDB) CreateServer(server *dbinit.Server) error {
	query := `
		INSERT INTO servers (name, hostname, ip_address, agent_api_key, tenant_id, status, last_heartbeat)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, server.Name, server.Hostname, server.IPAddress,
		server.AgentAPIKey, server.TenantID, server.Status, server.LastHeartbeat)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	server.ID = id

	return nil
}

// GetServer 获取服务器
func (s *SQLiteDB) GetServer(id int64) (*dbinit.Server, error) {
	server := &dbinit.Server{}
	query := `SELECT * FROM servers WHERE id = ?`
	err := s.db.QueryRow(query, id).Scan(
		&server.ID, &server.Name, &server.Hostname, &server.IPAddress, &server.AgentAPIKey,
		&server.TenantID, &server.Status, &server.LastHeartbeat, &server.CreatedAt, &server.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return server, err
}

// GetServerByHostname 通过主机名获取服务器
func (s *SQLiteDB) GetServerByHostname(hostname string) (*dbinit.Server, error) {
	server := &dbinit.Server{}
	query := `SELECT * FROM servers WHERE hostname = ?`
	err := s.db.QueryRow(query, hostname).Scan(
		&server.ID, &server.Name, &server.Hostname, &server.IPAddress, &server.AgentAPIKey,
		&server.TenantID, &server.Status, &server.LastHeartbeat, &server.CreatedAt, &server.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return server, err
}

// CountOnlineServersByTenant 按租户统计在线服务器数量
func (s *SQLiteDB) CountOnlineServersByTenant() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT tenant_id, COUNT(*) FROM servers WHERE status = 'online' GROUP BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var tenantID string
		var count int64
		if err := rows.Scan(&tenantID, &count); err != nil {
			return nil, err
		}
		counts[tenantID] = count
	}
	return counts, rows.Err()
}

// GetServerByAPIKey 通过Agent API密钥获取服务器
func (s *SQLiteDB) GetServerByAPIKey(apiKey string) (*dbinit.Server, error) {
	server := &dbinit.Server{}
	query := `SELECT * FROM servers WHERE agent_api_key = ?`
	err := s.db.QueryRow(query, apiKey).Scan(
		&server.ID, &server.Name, &server.Hostname, &server.IPAddress, &server.AgentAPIKey,
		&server.TenantID, &server.Status, &server.LastHeartbeat, &server.CreatedAt, &server.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return server, err
}

// ListServers 列出服务器
func (s *SQLiteDB) ListServers(tenantID, status string, limit, offset int) ([]*dbinit.Server, error) {
	query := `SELECT * FROM servers WHERE 1=1`
	args := []interface{}{}

	if tenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, tenantID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	servers := []*dbinit.Server{}
	for rows.Next() {
		server := &dbinit.Server{}
		err := rows.Scan(
			&server.ID, &server.Name, &server.Hostname, &server.IPAddress, &server.AgentAPIKey,
			&server.TenantID, &server.Status, &server.LastHeartbeat, &server.CreatedAt, &server.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}

	return servers, rows.Err()
}

// UpdateServer 更新服务器
func (s *SQLiteDB) UpdateServer(server *dbinit.Server) error {
	query := `
		UPDATE servers
		SET name=?, ip_address=?, status=?, last_heartbeat=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?
	`
	result, err := s.db.Exec(query, server.Name, server.IPAddress, server.Status,
		server.LastHeartbeat, server.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("server not found")
	}

	return nil
}

// TouchHeartbeat 更新服务器心跳和状态
func (s *SQLiteDB) TouchHeartbeat(id int64, status string, at time.Time) error {
	query := `
		UPDATE servers
		SET status=?, last_heartbeat=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?
	`
	result, err := s.db.Exec(query, status, at, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("server not found")
	}

	return nil
}

// MarkStaleServersOffline 将心跳过期的服务器标记为离线
// 单向转换：只由本方法改为offline，恢复online只能通过心跳接收路径
func (s *SQLiteDB) MarkStaleServersOffline(cutoff time.Time) (int64, error) {
	query := `
		UPDATE servers
		SET status='offline', updated_at=CURRENT_TIMESTAMP
		WHERE last_heartbeat IS NOT NULL AND last_heartbeat < ? AND status != 'offline'
	`
	result, err := s.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteServer 删除服务器
func (s *SQLiteDB) DeleteServer(id int64) error {
	query := `DELETE FROM servers WHERE id = ?`
	result, err := s.db.Exec(query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("server not found")
	}

	return nil
}
