package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
)

// === Command 操作 ===

// CreateCommand 创建命令记录
func (s *SQLiteDB) CreateCommand(cmd *dbinit.Command) error {
	query := `
		INSERT INTO commands (server_id, command, status, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, cmd.ServerID, cmd.Command, cmd.Status, cmd.CreatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	cmd.ID = id

	return nil
}

// GetCommand 获取命令（限定服务器，防止跨服务器查询）
func (s *SQLiteDB) GetCommand(id, serverID int64) (*dbinit.Command, error) {
	cmd := &dbinit.Command{}
	query := `SELECT * FROM commands WHERE id = ? AND server_id = ?`
	err := s.db.QueryRow(query, id, serverID).Scan(
		&cmd.ID, &cmd.ServerID, &cmd.Command, &cmd.Status, &cmd.ExitCode,
		&cmd.Stdout, &cmd.Stderr, &cmd.ExecutedAt, &cmd.CompletedAt, &cmd.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cmd, err
}

// ListCommands 列出服务器的命令历史
func (s *SQLiteDB) ListCommands(serverID int64, status string, limit, offset int) ([]*dbinit.Command, error) {
	query := `SELECT * FROM commands WHERE server_id = ?`
	args := []interface{}{serverID}

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

	commands := []*dbinit.Command{}
	for rows.Next() {
		cmd := &dbinit.Command{}
		err := rows.Scan(
			&cmd.ID, &cmd.ServerID, &cmd.Command, &cmd.Status, &cmd.ExitCode,
			&cmd.Stdout, &cmd.Stderr, &cmd.ExecutedAt, &cmd.CompletedAt, &cmd.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}

	return commands, rows.Err()
}

// MarkCommandRunning 将命令标记为执行中
// 只从pending转换，重复出队同一命令ID时是幂等的
func (s *SQLiteDB) MarkCommandRunning(id, serverID int64, executedAt time.Time) error {
	query := `
		UPDATE commands
		SET status='running', executed_at=?
		WHERE id=? AND server_id=? AND status='pending'
	`
	_, err := s.db.Exec(query, executedAt, id, serverID)
	return err
}

// CompleteCommand 记录命令执行结果
// 同一命令重复上报结果时保留第一次的结果
func (s *SQLiteDB) CompleteCommand(id, serverID int64, status string, exitCode int, stdout, stderr string, completedAt time.Time) error {
	query := `
		UPDATE commands
		SET status=?, exit_code=?, stdout=?, stderr=?, completed_at=?
		WHERE id=? AND server_id=? AND status IN ('pending', 'running')
	`
	result, err := s.db.Exec(query, status, exitCode, stdout, stderr, completedAt, id, serverID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// 区分"不存在"与"已完成"：后者视为幂等成功
		existing, err := s.GetCommand(id, serverID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("command not found")
		}
	}

	return nil
}
